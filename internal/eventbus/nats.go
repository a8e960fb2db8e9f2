// Package eventbus announces completed parses on NATS.
package eventbus

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Stream and subjects used for parse events.
const (
	StreamName            = "PARSES"
	SubjectParseCompleted = "parse.completed"
)

// Bus is a NATS connection, with JetStream persistence when the server
// supports it.
type Bus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
}

// Connect dials url and prepares the PARSES stream. A server without
// JetStream still gets core NATS publishes.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	nc, err := nats.Connect(url,
		nats.Name("stanford-parse"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	bus := &Bus{nc: nc, logger: logger}

	js, err := nc.JetStream()
	if err != nil {
		logger.Warn("jetstream unavailable, using core nats", zap.Error(err))
		return bus, nil
	}
	if err := ensureStream(js); err != nil {
		logger.Warn("jetstream stream setup failed, using core nats", zap.Error(err))
		return bus, nil
	}
	bus.js = js

	logger.Info("nats connected", zap.String("url", nc.ConnectedUrl()), zap.Bool("jetstream", true))
	return bus, nil
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"parse.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	return err
}

// Publish sends data on subject.
func (b *Bus) Publish(subject string, data []byte) error {
	if b == nil || b.nc == nil {
		return nats.ErrConnectionClosed
	}
	if b.js != nil {
		_, err := b.js.Publish(subject, data)
		return err
	}
	return b.nc.Publish(subject, data)
}

// Ping reports whether the connection is usable.
func (b *Bus) Ping() error {
	if b == nil || b.nc == nil || !b.nc.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return nil
}

// Close drains the connection.
func (b *Bus) Close() {
	if b != nil && b.nc != nil {
		if err := b.nc.Drain(); err != nil {
			b.nc.Close()
		}
	}
}
