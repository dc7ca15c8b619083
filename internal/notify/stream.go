package notify

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	streamBuffer = 32
	pingInterval = 15 * time.Second
)

var errSlowClient = errors.New("event stream client is not keeping up")

// StreamHandler serves GET /api/events?token=...&event=... as server-sent
// events. Browsers cannot set headers on EventSource, so the session token
// travels in the query string and is checked against an active account.
func StreamHandler(bus Bus, sessions *auth.SessionValidator, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "token is required")
		}
		claims, err := sessions.Validate(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid session")
		}

		event := c.Query("event", AllEvents)

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")
		c.Set("X-Accel-Buffering", "no")

		events := make(chan Event, streamBuffer)
		dropped := make(chan struct{})
		var once sync.Once

		sub := bus.Subscribe(event, func(ev Event) error {
			select {
			case events <- ev:
				return nil
			default:
				once.Do(func() { close(dropped) })
				return errSlowClient
			}
		})
		log.Infof("EVENTS", "user %d subscribed to %s (%s)", claims.UserID, event, sub.ID)

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer func() {
				bus.Unsubscribe(sub)
				log.Infof("EVENTS", "user %d unsubscribed (%s)", claims.UserID, sub.ID)
			}()

			fmt.Fprintf(w, "event: connected\ndata: {\"subscription\":%q}\n\n", sub.ID)
			if err := w.Flush(); err != nil {
				return
			}

			ping := time.NewTicker(pingInterval)
			defer ping.Stop()

			for {
				select {
				case ev := <-events:
					if err := WriteEvent(w, ev); err != nil {
						return
					}
				case <-ping.C:
					fmt.Fprint(w, ": ping\n\n")
				case <-dropped:
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}))
		return nil
	}
}

// WriteEvent encodes one event in text/event-stream framing.
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}
