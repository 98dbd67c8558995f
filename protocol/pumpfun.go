package protocol

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/ridge/solstream/event"
	"github.com/ridge/solstream/tlog"
	"go.uber.org/zap"
)

var (
	pumpFunTradeDiscriminator        = eventDiscriminator("TradeEvent")
	pumpFunCreateDiscriminator       = eventDiscriminator("CreateEvent")
	pumpFunBondingCurveDiscriminator = bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, "BondingCurve")
)

// PumpFun decodes trades and token launches of the PumpFun bonding curve
// program, and the state of its bonding curve accounts
type PumpFun struct {
	program solana.PublicKey
}

// NewPumpFun creates a PumpFun decoder
func NewPumpFun() *PumpFun {
	return &PumpFun{program: event.PumpFun.ProgramID()}
}

// DecodeTransaction implements Decoder.
//
// Events emitted through self-invocation take precedence. Log lines are only
// looked at when there are none, since the program may emit the same event
// both ways.
func (d *PumpFun) DecodeTransaction(ctx context.Context, tx *Transaction) []event.DexEvent {
	raw := cpiEvents(tx.Info, d.program)
	if len(raw) == 0 {
		raw = logEvents(tx.Info.Meta.LogMessages, d.program)
	}

	var res []event.DexEvent
	for _, ae := range raw {
		ev, err := d.decodeEvent(tx, ae)
		if err != nil {
			tlog.Get(ctx).Debug("Skipping undecodable PumpFun event", zap.Object("metadata", tx.Metadata("", event.PumpFun)), zap.Error(err))
			continue
		}
		if ev != nil {
			res = append(res, ev)
		}
	}
	return res
}

func (d *PumpFun) decodeEvent(tx *Transaction, ae anchorEvent) (event.DexEvent, error) {
	switch ae.discriminator {
	case pumpFunTradeDiscriminator:
		ev := &event.PumpFunTradeEvent{Meta: tx.Metadata(event.PumpFunTrade, event.PumpFun)}
		if err := decodeTrade(ae.body, ev); err != nil {
			return nil, fmt.Errorf("trade event: %w", err)
		}
		return ev, nil
	case pumpFunCreateDiscriminator:
		ev := &event.PumpFunCreateTokenEvent{Meta: tx.Metadata(event.PumpFunCreateToken, event.PumpFun)}
		if err := decodeCreate(ae.body, ev); err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		return ev, nil
	default:
		return nil, nil
	}
}

// DecodeAccount implements Decoder.
//
// Bonding curves are decoded; other accounts of the program are reported as
// ProgramAccountEvent.
func (d *PumpFun) DecodeAccount(ctx context.Context, acc *Account) []event.DexEvent {
	if bytes.HasPrefix(acc.Info.Data, pumpFunBondingCurveDiscriminator[:]) {
		ev, err := decodeBondingCurve(acc)
		if err == nil {
			return []event.DexEvent{ev}
		}
		tlog.Get(ctx).Debug("Skipping undecodable PumpFun bonding curve", zap.Object("metadata", acc.Metadata(event.PumpFunBondingCurve, event.PumpFun)), zap.Error(err))
		return nil
	}

	if ev := programAccountEvent(acc, event.PumpFun); ev != nil {
		return []event.DexEvent{ev}
	}
	return nil
}

func readPublicKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// borshReader reads borsh fields in sequence and remembers the first error
type borshReader struct {
	dec *bin.Decoder
	err error
}

func (r *borshReader) publicKey(out *solana.PublicKey) {
	if r.err == nil {
		*out, r.err = readPublicKey(r.dec)
	}
}

func (r *borshReader) uint64(out *uint64) {
	if r.err == nil {
		*out, r.err = r.dec.ReadUint64(bin.LE)
	}
}

func (r *borshReader) int64(out *int64) {
	if r.err == nil {
		*out, r.err = r.dec.ReadInt64(bin.LE)
	}
}

func (r *borshReader) bool(out *bool) {
	if r.err == nil {
		*out, r.err = r.dec.ReadBool()
	}
}

func (r *borshReader) string(out *string) {
	if r.err == nil {
		*out, r.err = r.dec.ReadString()
	}
}

// Fields appended in later program versions are read only when present
func (r *borshReader) more(n int) bool {
	return r.err == nil && r.dec.Remaining() >= n
}

func decodeTrade(body []byte, ev *event.PumpFunTradeEvent) error {
	r := &borshReader{dec: bin.NewBorshDecoder(body)}
	r.publicKey(&ev.Mint)
	r.uint64(&ev.SolAmount)
	r.uint64(&ev.TokenAmount)
	r.bool(&ev.IsBuy)
	r.publicKey(&ev.User)
	r.int64(&ev.Timestamp)
	r.uint64(&ev.VirtualSolReserves)
	r.uint64(&ev.VirtualTokenReserves)
	if r.more(16) {
		r.uint64(&ev.RealSolReserves)
		r.uint64(&ev.RealTokenReserves)
	}
	return r.err
}

func decodeCreate(body []byte, ev *event.PumpFunCreateTokenEvent) error {
	r := &borshReader{dec: bin.NewBorshDecoder(body)}
	r.string(&ev.Name)
	r.string(&ev.Symbol)
	r.string(&ev.URI)
	r.publicKey(&ev.Mint)
	r.publicKey(&ev.BondingCurve)
	r.publicKey(&ev.User)
	if r.more(solana.PublicKeyLength) {
		r.publicKey(&ev.Creator)
	}
	return r.err
}

func decodeBondingCurve(acc *Account) (*event.PumpFunBondingCurveEvent, error) {
	pubkey, ok := event.PublicKey(acc.Info.Pubkey)
	if !ok {
		return nil, fmt.Errorf("invalid account key length %d", len(acc.Info.Pubkey))
	}
	ev := &event.PumpFunBondingCurveEvent{
		Meta:    acc.Metadata(event.PumpFunBondingCurve, event.PumpFun),
		Account: pubkey,
	}
	r := &borshReader{dec: bin.NewBorshDecoder(acc.Info.Data[len(pumpFunBondingCurveDiscriminator):])}
	r.uint64(&ev.VirtualTokenReserves)
	r.uint64(&ev.VirtualSolReserves)
	r.uint64(&ev.RealTokenReserves)
	r.uint64(&ev.RealSolReserves)
	r.uint64(&ev.TokenTotalSupply)
	r.bool(&ev.Complete)
	if r.err != nil {
		return nil, r.err
	}
	return ev, nil
}
