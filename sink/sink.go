// Package sink forwards decoded events to external systems
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/ridge/solstream/event"
)

// Sink receives events
type Sink interface {
	// Write delivers one event. Errors are final: retriable failures are
	// retried inside.
	Write(ctx context.Context, ev event.DexEvent) error

	Close() error
}

// Envelope is the JSON form of an event written by the sinks
type Envelope struct {
	Type     event.Type     `json:"type"`
	Protocol event.Protocol `json:"protocol,omitempty"`
	Slot     uint64         `json:"slot"`
	Event    event.DexEvent `json:"event"`
}

// Encode returns the JSON envelope of ev
func Encode(ev event.DexEvent) ([]byte, error) {
	meta := ev.Metadata()
	data, err := json.Marshal(Envelope{
		Type:     meta.Type,
		Protocol: meta.Protocol,
		Slot:     meta.Slot,
		Event:    ev,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", meta.Type, err)
	}
	return data, nil
}

// Key identifies the source of ev: the transaction signature, or the slot for
// events not tied to a transaction
func Key(ev event.DexEvent) []byte {
	meta := ev.Metadata()
	if !meta.Signature.IsZero() {
		return []byte(meta.Signature.String())
	}
	return []byte(strconv.FormatUint(meta.Slot, 10))
}

// Multi writes every event to all the sinks in order
type Multi []Sink

// Write implements Sink. Stops at the first failing sink.
func (m Multi) Write(ctx context.Context, ev event.DexEvent) error {
	for _, s := range m {
		if err := s.Write(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink
func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
