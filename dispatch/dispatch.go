// Package dispatch routes feed updates to protocol decoders and hands the
// decoded events to the subscriber
package dispatch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/filter"
	"github.com/ridge/solstream/protocol"
	"github.com/ridge/solstream/wire"
)

// Handler receives decoded events
type Handler func(ev event.DexEvent)

type route struct {
	protocol event.Protocol
	program  solana.PublicKey
	decoder  protocol.Decoder
}

// Dispatcher decodes updates with the decoders of the active protocols
type Dispatcher struct {
	routes     []route
	eventTypes *filter.EventTypeFilter
	handler    Handler
}

// New creates a Dispatcher for the given protocols. Decoders run in the order
// of protocols.
//
// Every protocol must have a decoder in registry, and the program of every
// protocol outside the known ones must be reported by its decoder.
func New(protocols []event.Protocol, registry protocol.Registry, eventTypes *filter.EventTypeFilter, handler Handler) (*Dispatcher, error) {
	d := &Dispatcher{eventTypes: eventTypes, handler: handler}
	for _, p := range protocols {
		decoder, ok := registry[p]
		if !ok {
			return nil, fmt.Errorf("no decoder for protocol %s", p)
		}
		program, err := protocol.ProgramOf(p, decoder)
		if err != nil {
			return nil, err
		}
		d.routes = append(d.routes, route{protocol: p, program: program, decoder: decoder})
	}
	return d, nil
}

// Dispatch decodes the update and calls the handler for every resulting event,
// synchronously and in order. Returns the number of delivered events.
//
// Updates no active protocol is interested in produce no events. Blocks and
// block metadata are reported as one BlockMetaEvent without consulting the
// decoders.
func (d *Dispatcher) Dispatch(ctx context.Context, u *wire.SubscribeUpdate) int {
	var events []event.DexEvent
	switch {
	case u.Transaction != nil:
		tx := &protocol.Transaction{
			Slot:       u.Transaction.Slot,
			Info:       &u.Transaction.Transaction,
			ReceivedAt: u.CreatedAt,
		}
		keys := tx.Info.AccountKeys()
		for _, r := range d.routes {
			if containsKey(keys, r.program) {
				events = append(events, r.decoder.DecodeTransaction(ctx, tx)...)
			}
		}
	case u.Account != nil:
		acc := &protocol.Account{
			Slot:       u.Account.Slot,
			Info:       &u.Account.Account,
			ReceivedAt: u.CreatedAt,
		}
		for _, r := range d.routes {
			if bytes.Equal(acc.Info.Owner, r.program[:]) {
				events = append(events, r.decoder.DecodeAccount(ctx, acc)...)
			}
		}
	case u.Block != nil:
		events = append(events, &event.BlockMetaEvent{
			Meta: event.Metadata{
				Type:       event.BlockMeta,
				Slot:       u.Block.Slot,
				BlockTime:  u.Block.BlockTime,
				ReceivedAt: u.CreatedAt,
			},
			Blockhash:                u.Block.Blockhash,
			ParentSlot:               u.Block.ParentSlot,
			ParentBlockhash:          u.Block.ParentBlockhash,
			BlockHeight:              u.Block.BlockHeight,
			ExecutedTransactionCount: u.Block.ExecutedTransactionCount,
		})
	case u.BlockMeta != nil:
		events = append(events, &event.BlockMetaEvent{
			Meta: event.Metadata{
				Type:       event.BlockMeta,
				Slot:       u.BlockMeta.Slot,
				BlockTime:  u.BlockMeta.BlockTime,
				ReceivedAt: u.CreatedAt,
			},
			Blockhash:                u.BlockMeta.Blockhash,
			ParentSlot:               u.BlockMeta.ParentSlot,
			ParentBlockhash:          u.BlockMeta.ParentBlockhash,
			BlockHeight:              u.BlockMeta.BlockHeight,
			ExecutedTransactionCount: u.BlockMeta.ExecutedTransactionCount,
		})
	}

	delivered := 0
	for _, ev := range events {
		if !d.eventTypes.Allows(ev.Metadata().Type) {
			continue
		}
		d.handler(ev)
		delivered++
	}
	return delivered
}

func containsKey(keys [][]byte, program solana.PublicKey) bool {
	for _, key := range keys {
		if bytes.Equal(key, program[:]) {
			return true
		}
	}
	return false
}
