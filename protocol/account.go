package protocol

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/ridge/solstream/event"
)

// AccountDecoder reports every account owned by the program of a protocol as a
// ProgramAccountEvent without looking into its data
type AccountDecoder struct {
	protocol event.Protocol
	program  solana.PublicKey // zero for known protocols
}

// NewAccountDecoder creates an AccountDecoder for a known protocol p
func NewAccountDecoder(p event.Protocol) *AccountDecoder {
	return &AccountDecoder{protocol: p}
}

// NewProgramAccountDecoder creates an AccountDecoder reporting the accounts of
// program under the name p
func NewProgramAccountDecoder(p event.Protocol, program solana.PublicKey) *AccountDecoder {
	return &AccountDecoder{protocol: p, program: program}
}

// ProgramID implements Program
func (d *AccountDecoder) ProgramID() (solana.PublicKey, bool) {
	return d.program, !d.program.IsZero()
}

// DecodeTransaction implements Decoder; it produces no events
func (d *AccountDecoder) DecodeTransaction(ctx context.Context, tx *Transaction) []event.DexEvent {
	return nil
}

// DecodeAccount implements Decoder
func (d *AccountDecoder) DecodeAccount(ctx context.Context, acc *Account) []event.DexEvent {
	ev := programAccountEvent(acc, d.protocol)
	if ev == nil {
		return nil
	}
	return []event.DexEvent{ev}
}

func programAccountEvent(acc *Account, p event.Protocol) *event.ProgramAccountEvent {
	pubkey, ok := event.PublicKey(acc.Info.Pubkey)
	if !ok {
		return nil
	}
	owner, ok := event.PublicKey(acc.Info.Owner)
	if !ok {
		return nil
	}
	ev := &event.ProgramAccountEvent{
		Meta:         acc.Metadata(event.ProgramAccount, p),
		Account:      pubkey,
		Owner:        owner,
		Lamports:     acc.Info.Lamports,
		Data:         append([]byte(nil), acc.Info.Data...),
		WriteVersion: acc.Info.WriteVersion,
	}
	copy(ev.Discriminator[:], acc.Info.Data)
	return ev
}
