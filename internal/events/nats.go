package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/logging"
)

// DefaultPrefix is the first subject token of every hearth event.
const DefaultPrefix = "hearth"

// NATS publishes events on a NATS connection.
type NATS struct {
	conn   *nats.Conn
	prefix string
	owned  bool
	logger *logging.Logger
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(url, prefix string, logger *logging.Logger) (*NATS, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	nc, err := nats.Connect(url,
		nats.Name("hearthd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(context.Background(), "nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(context.Background(), "nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	p := NewNATS(nc, prefix, logger)
	p.owned = true
	return p, nil
}

// NewNATS wraps an existing connection. Close does not close nc.
func NewNATS(nc *nats.Conn, prefix string, logger *logging.Logger) *NATS {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &NATS{conn: nc, prefix: prefix, logger: logger}
}

// Publish sends ev as JSON on its family subject.
func (p *NATS) Publish(ctx context.Context, ev Event) error {
	if p.conn == nil {
		return errors.New("nats connection is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := Subject(p.prefix, ev.Family, ev.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Kind, err)
	}

	p.logger.Debug(ctx, "event published",
		zap.String("subject", subject),
		zap.String("action", ev.Action),
		zap.String("event_id", ev.ID),
	)
	return nil
}

// Close drains the connection when the publisher owns it.
func (p *NATS) Close() error {
	if p.conn == nil || !p.owned {
		return nil
	}
	return p.conn.Drain()
}
