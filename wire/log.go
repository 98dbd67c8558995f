package wire

import (
	"github.com/mr-tron/base58"
	"github.com/ridge/must/v2"
	"go.uber.org/zap/zapcore"
)

type stringsForLog []string

func (s stringsForLog) MarshalLogArray(e zapcore.ArrayEncoder) error {
	for _, str := range s {
		e.AppendString(str)
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of SubscribeRequest with zap.Object
func (req *SubscribeRequest) MarshalLogObject(e zapcore.ObjectEncoder) error {
	if len(req.Accounts) > 0 {
		must.OK(e.AddArray("accounts", stringsForLog(sortedKeys(req.Accounts))))
	}
	if len(req.Transactions) > 0 {
		must.OK(e.AddArray("transactions", stringsForLog(sortedKeys(req.Transactions))))
	}
	if len(req.Blocks) > 0 {
		must.OK(e.AddArray("blocks", stringsForLog(sortedKeys(req.Blocks))))
	}
	if len(req.BlocksMeta) > 0 {
		must.OK(e.AddArray("blocksMeta", stringsForLog(sortedKeys(req.BlocksMeta))))
	}
	if req.Commitment != nil {
		e.AddString("commitment", req.Commitment.String())
	}
	if req.Ping != nil {
		e.AddInt32("ping", req.Ping.ID)
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of SubscribeUpdate with zap.Object
func (u *SubscribeUpdate) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", u.Kind().String())
	if slot := u.SlotNumber(); slot != 0 {
		e.AddUint64("slot", slot)
	}
	if len(u.Filters) > 0 {
		must.OK(e.AddArray("filters", stringsForLog(u.Filters)))
	}
	if !u.CreatedAt.IsZero() {
		e.AddTime("createdAt", u.CreatedAt)
	}
	switch {
	case u.Account != nil:
		e.AddString("pubkey", base58.Encode(u.Account.Account.Pubkey))
		e.AddString("owner", base58.Encode(u.Account.Account.Owner))
		e.AddInt("dataLen", len(u.Account.Account.Data))
	case u.Transaction != nil:
		e.AddString("signature", base58.Encode(u.Transaction.Transaction.Signature))
		e.AddUint64("index", u.Transaction.Transaction.Index)
		if u.Transaction.Transaction.Meta.Failed {
			e.AddBool("failed", true)
		}
	case u.Block != nil:
		e.AddString("blockhash", u.Block.Blockhash)
		e.AddInt("transactions", len(u.Block.Transactions))
	case u.BlockMeta != nil:
		e.AddString("blockhash", u.BlockMeta.Blockhash)
	case u.Pong != nil:
		e.AddInt32("pong", u.Pong.ID)
	}
	return nil
}
