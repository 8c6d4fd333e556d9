// Package nats publishes commit events to a NATS subject.
package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/matzehuels/gantt/pkg/events"
)

// DefaultSubject is the subject prefix. Events go to <prefix>.<type>.
const DefaultSubject = "gantt.commits"

// Config configures the connection.
type Config struct {
	URL            string
	Subject        string
	ConnectTimeout time.Duration
}

// Publisher implements [events.Publisher] over NATS.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// Connect dials the server described by cfg.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("gantt"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return New(conn, cfg.Subject), nil
}

// New wraps an existing connection.
func New(conn *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Subject returns the subject an event of type t is published on.
func (p *Publisher) Subject(t events.Type) string {
	return p.subject + "." + string(t)
}

// Publish implements [events.Publisher].
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(e.Type), e.JSON())
}

// Subscribe delivers every event under the subject prefix to handler until
// ctx is done. Messages that do not decode are dropped.
func (p *Publisher) Subscribe(ctx context.Context, handler func(events.Event)) error {
	sub, err := p.conn.Subscribe(p.subject+".>", func(msg *nats.Msg) {
		e, err := events.Parse(msg.Data)
		if err != nil {
			return
		}
		handler(e)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", p.subject, err)
	}
	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}

var _ events.Publisher = (*Publisher)(nil)
