package wire

import (
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers follow geyser.proto and solana-storage.proto of the
// Yellowstone feed. Scalars holding their zero value are omitted unless the
// field is declared optional, in which case a non-nil pointer is always
// written.

// EncodeRequest serializes a SubscribeRequest in protobuf wire format.
//
// Map sections are written in label order, so equal requests always encode to
// identical bytes.
func EncodeRequest(req *SubscribeRequest) []byte {
	var b []byte
	for _, label := range sortedKeys(req.Accounts) {
		b = appendMapEntry(b, 1, label, encodeAccountsFilterSet(req.Accounts[label]))
	}
	for _, label := range sortedKeys(req.Transactions) {
		b = appendMapEntry(b, 3, label, encodeTransactionsFilter(req.Transactions[label]))
	}
	for _, label := range sortedKeys(req.Blocks) {
		b = appendMapEntry(b, 4, label, encodeBlocksFilter(req.Blocks[label]))
	}
	for _, label := range sortedKeys(req.BlocksMeta) {
		b = appendMapEntry(b, 5, label, nil)
	}
	if req.Commitment != nil {
		b = appendOptionalVarint(b, 6, uint64(*req.Commitment))
	}
	if req.Ping != nil {
		var ping []byte
		ping = appendInt32(ping, 1, req.Ping.ID)
		b = appendMessage(b, 9, ping)
	}
	return b
}

func encodeAccountsFilterSet(f *AccountsFilterSet) []byte {
	var b []byte
	if f == nil {
		return b
	}
	b = appendStrings(b, 2, f.Account)
	b = appendStrings(b, 3, f.Owner)
	for _, sub := range f.Filters {
		b = appendMessage(b, 4, encodeAccountsFilter(sub))
	}
	if f.NonemptyTxnSignature != nil {
		b = appendOptionalBool(b, 5, *f.NonemptyTxnSignature)
	}
	return b
}

func encodeAccountsFilter(f AccountsFilter) []byte {
	var b []byte
	switch {
	case f.Memcmp != nil:
		var m []byte
		m = appendUint64(m, 1, f.Memcmp.Offset)
		switch {
		case f.Memcmp.Bytes != nil:
			m = appendOptionalBytes(m, 2, f.Memcmp.Bytes)
		case f.Memcmp.Base58 != "":
			m = appendOptionalBytes(m, 3, []byte(f.Memcmp.Base58))
		case f.Memcmp.Base64 != "":
			m = appendOptionalBytes(m, 4, []byte(f.Memcmp.Base64))
		}
		b = appendMessage(b, 1, m)
	case f.Datasize != nil:
		b = appendOptionalVarint(b, 2, *f.Datasize)
	case f.TokenAccountState != nil:
		b = appendOptionalBool(b, 3, *f.TokenAccountState)
	case f.Lamports != nil:
		var l []byte
		l = appendOptionalVarint(l, protowire.Number(f.Lamports.Cmp), f.Lamports.Value)
		b = appendMessage(b, 4, l)
	}
	return b
}

func encodeTransactionsFilter(f *TransactionsFilter) []byte {
	var b []byte
	if f == nil {
		return b
	}
	if f.Vote != nil {
		b = appendOptionalBool(b, 1, *f.Vote)
	}
	if f.Failed != nil {
		b = appendOptionalBool(b, 2, *f.Failed)
	}
	b = appendStrings(b, 3, f.AccountInclude)
	b = appendStrings(b, 4, f.AccountExclude)
	if f.Signature != nil {
		b = appendOptionalBytes(b, 5, []byte(*f.Signature))
	}
	b = appendStrings(b, 6, f.AccountRequired)
	return b
}

func encodeBlocksFilter(f *BlocksFilter) []byte {
	var b []byte
	if f == nil {
		return b
	}
	b = appendStrings(b, 1, f.AccountInclude)
	if f.IncludeTransactions != nil {
		b = appendOptionalBool(b, 2, *f.IncludeTransactions)
	}
	if f.IncludeAccounts != nil {
		b = appendOptionalBool(b, 3, *f.IncludeAccounts)
	}
	if f.IncludeEntries != nil {
		b = appendOptionalBool(b, 4, *f.IncludeEntries)
	}
	return b
}

// EncodeUpdate serializes a SubscribeUpdate in protobuf wire format
func EncodeUpdate(u *SubscribeUpdate) []byte {
	var b []byte
	b = appendStrings(b, 1, u.Filters)
	switch {
	case u.Account != nil:
		var m []byte
		m = appendMessage(m, 1, encodeAccountInfo(&u.Account.Account))
		m = appendUint64(m, 2, u.Account.Slot)
		m = appendBool(m, 3, u.Account.IsStartup)
		b = appendMessage(b, 2, m)
	case u.Slot != nil:
		var m []byte
		m = appendUint64(m, 1, u.Slot.Slot)
		if u.Slot.Parent != nil {
			m = appendOptionalVarint(m, 2, *u.Slot.Parent)
		}
		m = appendUint64(m, 3, uint64(u.Slot.Status))
		b = appendMessage(b, 3, m)
	case u.Transaction != nil:
		var m []byte
		m = appendMessage(m, 1, encodeTransactionInfo(&u.Transaction.Transaction))
		m = appendUint64(m, 2, u.Transaction.Slot)
		b = appendMessage(b, 4, m)
	case u.Block != nil:
		b = appendMessage(b, 5, encodeBlock(u.Block))
	case u.Ping != nil:
		b = appendMessage(b, 6, nil)
	case u.BlockMeta != nil:
		b = appendMessage(b, 7, encodeBlockMeta(u.BlockMeta))
	case u.Pong != nil:
		var m []byte
		m = appendInt32(m, 1, u.Pong.ID)
		b = appendMessage(b, 9, m)
	}
	if !u.CreatedAt.IsZero() {
		var ts []byte
		ts = appendUint64(ts, 1, uint64(u.CreatedAt.Unix()))
		ts = appendInt32(ts, 2, int32(u.CreatedAt.Nanosecond()))
		b = appendMessage(b, 11, ts)
	}
	return b
}

func encodeAccountInfo(a *AccountInfo) []byte {
	var b []byte
	b = appendBytes(b, 1, a.Pubkey)
	b = appendUint64(b, 2, a.Lamports)
	b = appendBytes(b, 3, a.Owner)
	b = appendBool(b, 4, a.Executable)
	b = appendUint64(b, 5, a.RentEpoch)
	b = appendBytes(b, 6, a.Data)
	b = appendUint64(b, 7, a.WriteVersion)
	if a.TxnSignature != nil {
		b = appendOptionalBytes(b, 8, a.TxnSignature)
	}
	return b
}

func encodeTransactionInfo(ti *TransactionInfo) []byte {
	var b []byte
	b = appendBytes(b, 1, ti.Signature)
	b = appendBool(b, 2, ti.IsVote)

	var msg []byte
	for _, key := range ti.Message.AccountKeys {
		msg = appendOptionalBytes(msg, 2, key)
	}
	msg = appendBytes(msg, 3, ti.Message.RecentBlockhash)
	for _, ix := range ti.Message.Instructions {
		var m []byte
		m = appendUint64(m, 1, uint64(ix.ProgramIDIndex))
		m = appendBytes(m, 2, ix.Accounts)
		m = appendBytes(m, 3, ix.Data)
		msg = appendMessage(msg, 4, m)
	}
	msg = appendBool(msg, 5, ti.Message.Versioned)

	var tx []byte
	for _, sig := range ti.Signatures {
		tx = appendOptionalBytes(tx, 1, sig)
	}
	tx = appendMessage(tx, 2, msg)
	b = appendMessage(b, 3, tx)

	b = appendMessage(b, 4, encodeTransactionMeta(&ti.Meta))
	b = appendUint64(b, 5, ti.Index)
	return b
}

func encodeTransactionMeta(meta *TransactionMeta) []byte {
	var b []byte
	if meta.Failed {
		b = appendMessage(b, 1, nil)
	}
	b = appendUint64(b, 2, meta.Fee)
	for _, inner := range meta.InnerInstructions {
		var m []byte
		m = appendUint64(m, 1, uint64(inner.Index))
		for _, ix := range inner.Instructions {
			var im []byte
			im = appendUint64(im, 1, uint64(ix.ProgramIDIndex))
			im = appendBytes(im, 2, ix.Accounts)
			im = appendBytes(im, 3, ix.Data)
			if ix.StackHeight != nil {
				im = appendOptionalVarint(im, 4, uint64(*ix.StackHeight))
			}
			m = appendMessage(m, 2, im)
		}
		b = appendMessage(b, 5, m)
	}
	b = appendStrings(b, 6, meta.LogMessages)
	for _, addr := range meta.LoadedWritableAddresses {
		b = appendOptionalBytes(b, 12, addr)
	}
	for _, addr := range meta.LoadedReadonlyAddresses {
		b = appendOptionalBytes(b, 13, addr)
	}
	if meta.ComputeUnitsConsumed != nil {
		b = appendOptionalVarint(b, 16, *meta.ComputeUnitsConsumed)
	}
	return b
}

func encodeBlock(blk *BlockUpdate) []byte {
	var b []byte
	b = appendUint64(b, 1, blk.Slot)
	b = appendBytes(b, 2, []byte(blk.Blockhash))
	b = appendBlockTime(b, 4, blk.BlockTime)
	b = appendBlockHeight(b, 5, blk.BlockHeight)
	for i := range blk.Transactions {
		b = appendMessage(b, 6, encodeTransactionInfo(&blk.Transactions[i]))
	}
	b = appendUint64(b, 7, blk.ParentSlot)
	b = appendBytes(b, 8, []byte(blk.ParentBlockhash))
	b = appendUint64(b, 9, blk.ExecutedTransactionCount)
	b = appendUint64(b, 10, blk.UpdatedAccountCount)
	b = appendUint64(b, 12, blk.EntriesCount)
	return b
}

func encodeBlockMeta(meta *BlockMetaUpdate) []byte {
	var b []byte
	b = appendUint64(b, 1, meta.Slot)
	b = appendBytes(b, 2, []byte(meta.Blockhash))
	b = appendBlockTime(b, 4, meta.BlockTime)
	b = appendBlockHeight(b, 5, meta.BlockHeight)
	b = appendUint64(b, 6, meta.ParentSlot)
	b = appendBytes(b, 7, []byte(meta.ParentBlockhash))
	b = appendUint64(b, 8, meta.ExecutedTransactionCount)
	b = appendUint64(b, 9, meta.EntriesCount)
	return b
}

func appendBlockTime(b []byte, num protowire.Number, t *int64) []byte {
	if t == nil {
		return b
	}
	var m []byte
	m = appendUint64(m, 1, uint64(*t))
	return appendMessage(b, num, m)
}

func appendBlockHeight(b []byte, num protowire.Number, h *uint64) []byte {
	if h == nil {
		return b
	}
	var m []byte
	m = appendUint64(m, 1, *h)
	return appendMessage(b, num, m)
}

func appendMapEntry(b []byte, num protowire.Number, key string, value []byte) []byte {
	var entry []byte
	entry = appendOptionalBytes(entry, 1, []byte(key))
	entry = appendMessage(entry, 2, value)
	return appendMessage(b, num, entry)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

func appendOptionalBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	return appendOptionalBytes(b, num, v)
}

func appendStrings(b []byte, num protowire.Number, v []string) []byte {
	for _, s := range v {
		b = appendOptionalBytes(b, num, []byte(s))
	}
	return b
}

func appendOptionalVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendUint64(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	return appendOptionalVarint(b, num, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	// negative int32 values are sign-extended to ten bytes on the wire
	return appendUint64(b, num, uint64(int64(v)))
}

func appendOptionalBool(b []byte, num protowire.Number, v bool) []byte {
	return appendOptionalVarint(b, num, protowire.EncodeBool(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendOptionalBool(b, num, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
