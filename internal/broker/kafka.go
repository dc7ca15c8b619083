package broker

import (
	"fmt"
	"strconv"

	"restoran-pos/internal/logger"
	"restoran-pos/internal/notify"

	"github.com/IBM/sarama"
)

type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

func NewKafkaSink(brokers []string, topic string, log *logger.Logger) (*KafkaSink, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Infof("BROKER", "connected to kafka brokers %v, topic %s", brokers, topic)
	return NewKafkaSinkWithProducer(producer, topic, log), nil
}

func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string, log *logger.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, log: log}
}

func (k *KafkaSink) Send(ev notify.Event) error {
	data, err := encode(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(partitionKey(ev, data)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(ev.Name)},
		},
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	k.log.Debug("BROKER", fmt.Sprintf("%s sent to %s[%d]@%d", ev.Name, k.topic, partition, offset))
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
