// Package sequence issues date-scoped, human-readable numbers such as
// ORD-20261017-0042.
package sequence

import (
	"context"
	"fmt"
	"time"

	"restoran-pos/internal/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	OrderPrefix   = "ORD"
	ReceiptPrefix = "RCP"
)

// Generator returns the next number for prefix on the day of at. The tx
// argument is the caller's open transaction; implementations backed by the
// database must use it so a rolled back order does not leave the counter
// advanced.
type Generator interface {
	Next(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error)
}

func Format(prefix, day string, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, n)
}

func dayOf(at time.Time) string {
	return at.UTC().Format("20060102")
}

// DBGenerator keeps one row per (prefix, day). The UPDATE takes a row lock
// that is held until the caller commits, so concurrent callers serialize.
type DBGenerator struct{}

func NewDBGenerator() *DBGenerator {
	return &DBGenerator{}
}

func (g *DBGenerator) Next(ctx context.Context, tx *gorm.DB, prefix string, at time.Time) (string, error) {
	day := dayOf(at)
	db := tx.WithContext(ctx)

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Sequence{Name: prefix, Day: day, Value: 0}).Error; err != nil {
		return "", fmt.Errorf("sequence init failed: %w", err)
	}

	if err := db.Model(&models.Sequence{}).
		Where("name = ? AND day = ?", prefix, day).
		UpdateColumn("value", gorm.Expr("value + 1")).Error; err != nil {
		return "", fmt.Errorf("sequence increment failed: %w", err)
	}

	var seq models.Sequence
	if err := db.Where("name = ? AND day = ?", prefix, day).First(&seq).Error; err != nil {
		return "", fmt.Errorf("sequence read failed: %w", err)
	}

	return Format(prefix, day, seq.Value), nil
}

// RedisGenerator uses INCR so that several server instances share one
// counter without touching the orders database. Numbers allocated by a
// rolled back transaction are skipped, never reused.
type RedisGenerator struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGenerator(client *redis.Client) *RedisGenerator {
	return &RedisGenerator{client: client, ttl: 48 * time.Hour}
}

func (g *RedisGenerator) Next(ctx context.Context, _ *gorm.DB, prefix string, at time.Time) (string, error) {
	day := dayOf(at)
	key := "seq:" + prefix + ":" + day

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, g.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis sequence failed: %w", err)
	}

	return Format(prefix, day, incr.Val()), nil
}
