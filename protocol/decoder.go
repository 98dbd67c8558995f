// Package protocol turns raw feed updates into typed events for individual
// on-chain programs
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/wire"
)

// Transaction is a transaction update handed to decoders
type Transaction struct {
	Slot       uint64
	Info       *wire.TransactionInfo
	BlockTime  *int64
	ReceivedAt time.Time
}

// Metadata returns the metadata shared by all events decoded from the
// transaction
func (tx *Transaction) Metadata(typ event.Type, p event.Protocol) event.Metadata {
	index := tx.Info.Index
	return event.Metadata{
		Type:             typ,
		Protocol:         p,
		Slot:             tx.Slot,
		TransactionIndex: &index,
		Signature:        solana.SignatureFromBytes(tx.Info.Signature),
		BlockTime:        tx.BlockTime,
		ReceivedAt:       tx.ReceivedAt,
	}
}

// Account is an account update handed to decoders
type Account struct {
	Slot       uint64
	Info       *wire.AccountInfo
	ReceivedAt time.Time
}

// Metadata returns the metadata shared by all events decoded from the account
// update
func (acc *Account) Metadata(typ event.Type, p event.Protocol) event.Metadata {
	return event.Metadata{
		Type:       typ,
		Protocol:   p,
		Slot:       acc.Slot,
		Signature:  solana.SignatureFromBytes(acc.Info.TxnSignature),
		ReceivedAt: acc.ReceivedAt,
	}
}

// Decoder decodes the updates of one protocol.
//
// Decoders must not retain the passed updates. Payloads that cannot be decoded
// produce no events.
type Decoder interface {
	DecodeTransaction(ctx context.Context, tx *Transaction) []event.DexEvent
	DecodeAccount(ctx context.Context, acc *Account) []event.DexEvent
}

// Registry maps protocols to their decoders
type Registry map[event.Protocol]Decoder

// Program is implemented by decoders that know the program they decode.
// Decoders of the known protocols need not implement it.
type Program interface {
	ProgramID() (solana.PublicKey, bool)
}

// ProgramOf returns the program whose updates d decodes for protocol p
func ProgramOf(p event.Protocol, d Decoder) (solana.PublicKey, error) {
	if pd, ok := d.(Program); ok {
		if id, ok := pd.ProgramID(); ok {
			return id, nil
		}
	}
	if id, ok := p.LookupProgramID(); ok {
		return id, nil
	}
	return solana.PublicKey{}, fmt.Errorf("unknown program for protocol %q", p)
}

// DefaultRegistry returns a registry with decoders for all known protocols
func DefaultRegistry() Registry {
	r := Registry{}
	for _, p := range event.AllProtocols {
		r[p] = NewAccountDecoder(p)
	}
	r[event.PumpFun] = NewPumpFun()
	return r
}
