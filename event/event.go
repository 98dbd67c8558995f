// Package event defines the typed events delivered to subscribers
package event

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap/zapcore"
)

// Metadata is carried by every event
type Metadata struct {
	Type     Type     `json:"type"`
	Protocol Protocol `json:"protocol,omitempty"` // empty for block events
	Slot     uint64   `json:"slot"`

	// TransactionIndex is the position of the transaction inside its block,
	// unset for account and block events
	TransactionIndex *uint64          `json:"transactionIndex,omitempty"`
	Signature        solana.Signature `json:"signature"` // omitted from JSON when zero
	BlockTime        *int64           `json:"blockTime,omitempty"`
	ReceivedAt       time.Time        `json:"receivedAt"`
}

// Category returns the category of the event type
func (m Metadata) Category() Category {
	return m.Type.Category()
}

// MarshalJSON implements json.Marshaler
func (m Metadata) MarshalJSON() ([]byte, error) {
	type plain Metadata
	out := struct {
		plain
		Signature *solana.Signature `json:"signature,omitempty"`
	}{plain: plain(m)}
	if !m.Signature.IsZero() {
		out.Signature = &m.Signature
	}
	return json.Marshal(out)
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Metadata with zap.Object
func (m Metadata) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("type", string(m.Type))
	if m.Protocol != "" {
		e.AddString("protocol", string(m.Protocol))
	}
	e.AddUint64("slot", m.Slot)
	if m.TransactionIndex != nil {
		e.AddUint64("transactionIndex", *m.TransactionIndex)
	}
	if !m.Signature.IsZero() {
		e.AddString("signature", m.Signature.String())
	}
	return nil
}

// DexEvent is a decoded event
type DexEvent interface {
	Metadata() Metadata
}

// PumpFunTradeEvent is a buy or sell on a PumpFun bonding curve
type PumpFunTradeEvent struct {
	Meta Metadata `json:"metadata"`

	Mint                 solana.PublicKey `json:"mint"`
	User                 solana.PublicKey `json:"user"`
	SolAmount            uint64           `json:"solAmount"`
	TokenAmount          uint64           `json:"tokenAmount"`
	IsBuy                bool             `json:"isBuy"`
	Timestamp            int64            `json:"timestamp"`
	VirtualSolReserves   uint64           `json:"virtualSolReserves"`
	VirtualTokenReserves uint64           `json:"virtualTokenReserves"`
	RealSolReserves      uint64           `json:"realSolReserves"`
	RealTokenReserves    uint64           `json:"realTokenReserves"`
}

// Metadata returns the event metadata
func (e *PumpFunTradeEvent) Metadata() Metadata { return e.Meta }

// PumpFunCreateTokenEvent is a token launch on PumpFun
type PumpFunCreateTokenEvent struct {
	Meta Metadata `json:"metadata"`

	Name         string           `json:"name"`
	Symbol       string           `json:"symbol"`
	URI          string           `json:"uri"`
	Mint         solana.PublicKey `json:"mint"`
	BondingCurve solana.PublicKey `json:"bondingCurve"`
	User         solana.PublicKey `json:"user"`
	Creator      solana.PublicKey `json:"creator"`
}

// Metadata returns the event metadata
func (e *PumpFunCreateTokenEvent) Metadata() Metadata { return e.Meta }

// PumpFunBondingCurveEvent is the new state of a PumpFun bonding curve account
type PumpFunBondingCurveEvent struct {
	Meta Metadata `json:"metadata"`

	Account              solana.PublicKey `json:"account"`
	VirtualTokenReserves uint64           `json:"virtualTokenReserves"`
	VirtualSolReserves   uint64           `json:"virtualSolReserves"`
	RealTokenReserves    uint64           `json:"realTokenReserves"`
	RealSolReserves      uint64           `json:"realSolReserves"`
	TokenTotalSupply     uint64           `json:"tokenTotalSupply"`
	Complete             bool             `json:"complete"`
}

// Metadata returns the event metadata
func (e *PumpFunBondingCurveEvent) Metadata() Metadata { return e.Meta }

// ProgramAccountEvent is the new state of an account owned by a protocol
// program, with the data left undecoded
type ProgramAccountEvent struct {
	Meta Metadata `json:"metadata"`

	Account       solana.PublicKey `json:"account"`
	Owner         solana.PublicKey `json:"owner"`
	Lamports      uint64           `json:"lamports"`
	Discriminator [8]byte          `json:"discriminator"`
	Data          []byte           `json:"data"`
	WriteVersion  uint64           `json:"writeVersion"`
}

// Metadata returns the event metadata
func (e *ProgramAccountEvent) Metadata() Metadata { return e.Meta }

// BlockMetaEvent reports a produced block
type BlockMetaEvent struct {
	Meta Metadata `json:"metadata"`

	Blockhash                string  `json:"blockhash"`
	ParentSlot               uint64  `json:"parentSlot"`
	ParentBlockhash          string  `json:"parentBlockhash"`
	BlockHeight              *uint64 `json:"blockHeight,omitempty"`
	ExecutedTransactionCount uint64  `json:"executedTransactionCount"`
}

// Metadata returns the event metadata
func (e *BlockMetaEvent) Metadata() Metadata { return e.Meta }
