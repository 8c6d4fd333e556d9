package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/gantt/pkg/events"
)

func TestSubject(t *testing.T) {
	p := New(nil, "")
	if got := p.Subject(events.Committed); got != "gantt.commits.committed" {
		t.Errorf("Subject = %q", got)
	}
	if got := New(nil, "acme.plan").Subject(events.Rejected); got != "acme.plan.rejected" {
		t.Errorf("Subject = %q", got)
	}
}

func TestPublishSubscribe(t *testing.T) {
	url := os.Getenv("GANTT_TEST_NATS_URL")
	if url == "" {
		t.Skip("GANTT_TEST_NATS_URL not set")
	}
	p, err := Connect(Config{URL: url, Subject: "gantt.test." + time.Now().Format("150405.000")})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan events.Event, 1)
	if err := p.Subscribe(ctx, func(e events.Event) { got <- e }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := p.conn.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := p.Publish(ctx, events.Event{Type: events.Rejected, ItemID: "a", Reason: "validation_rejected"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-got:
		if e.ItemID != "a" || e.Type != events.Rejected {
			t.Errorf("received %+v", e)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}
