// Package events publishes home change notifications.
//
// Every successful mutation in a home produces an Event. With NATS enabled,
// events are published as JSON to
//
//	{prefix}.{family_token}.{kind}
//
// so that other household devices can follow changes without polling.
//
// Family names are case-sensitive but subject tokens are not, so "Okafor"
// and "okafor" share a subject. Subscribers must match Event.Family exactly.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind groups events by the part of the home that changed.
type Kind string

const (
	KindStatus Kind = "status"
	KindItems  Kind = "items"
	KindNotes  Kind = "notes"
)

// Event describes a single change to a family's home.
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Action  string    `json:"action"`
	Family  string    `json:"family"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// New builds an event with a fresh ID and timestamp.
func New(kind Kind, action, family string, payload any) Event {
	return Event{
		ID:      uuid.New().String(),
		Kind:    kind,
		Action:  action,
		Family:  family,
		Payload: payload,
		At:      time.Now().UTC(),
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                          { return nil }

// FamilyToken turns a family name into a single subject token: lowercased,
// with every rune outside [a-z0-9-] replaced by '_'. Distinct families can
// map to the same token; Event.Family carries the exact name.
func FamilyToken(family string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(family) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// Subject returns the subject an event for family and kind is published on.
func Subject(prefix, family string, kind Kind) string {
	return prefix + "." + FamilyToken(family) + "." + string(kind)
}

// Recorder keeps published events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
