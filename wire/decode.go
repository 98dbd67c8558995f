package wire

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// field is one decoded protobuf field. Only the member matching typ is
// meaningful; fields arriving with an unexpected wire type read as zero values.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) uint64() uint64 {
	if f.typ != protowire.VarintType {
		return 0
	}
	return f.varint
}

func (f field) uint64Ptr() *uint64 {
	v := f.uint64()
	return &v
}

func (f field) int32() int32 {
	return int32(f.uint64())
}

func (f field) bool() bool {
	return protowire.DecodeBool(f.uint64())
}

func (f field) boolPtr() *bool {
	v := f.bool()
	return &v
}

func (f field) data() []byte {
	if f.typ != protowire.BytesType {
		return nil
	}
	return f.bytes
}

func (f field) string() string {
	return string(f.data())
}

// walk calls visit for every field in b. Groups and fixed-width fields are
// skipped since none of the feed messages use them.
func walk(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

func walkMapEntry(b []byte) (string, []byte, error) {
	var key string
	var value []byte
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			key = f.string()
		case 2:
			value = f.data()
		}
		return nil
	})
	return key, value, err
}

// DecodeRequest parses a SubscribeRequest from protobuf wire format.
// The result may alias b.
func DecodeRequest(b []byte) (*SubscribeRequest, error) {
	req := &SubscribeRequest{
		Accounts:     map[string]*AccountsFilterSet{},
		Transactions: map[string]*TransactionsFilter{},
		Blocks:       map[string]*BlocksFilter{},
		BlocksMeta:   map[string]*BlocksMetaFilter{},
	}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1, 3, 4, 5:
			label, value, err := walkMapEntry(f.data())
			if err != nil {
				return err
			}
			switch f.num {
			case 1:
				set, err := decodeAccountsFilterSet(value)
				if err != nil {
					return fmt.Errorf("accounts[%q]: %w", label, err)
				}
				req.Accounts[label] = set
			case 3:
				tf, err := decodeTransactionsFilter(value)
				if err != nil {
					return fmt.Errorf("transactions[%q]: %w", label, err)
				}
				req.Transactions[label] = tf
			case 4:
				bf, err := decodeBlocksFilter(value)
				if err != nil {
					return fmt.Errorf("blocks[%q]: %w", label, err)
				}
				req.Blocks[label] = bf
			case 5:
				req.BlocksMeta[label] = &BlocksMetaFilter{}
			}
		case 6:
			c := CommitmentLevel(f.int32())
			req.Commitment = &c
		case 9:
			ping := &Ping{}
			if err := walk(f.data(), func(f field) error {
				if f.num == 1 {
					ping.ID = f.int32()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			req.Ping = ping
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decodeAccountsFilterSet(b []byte) (*AccountsFilterSet, error) {
	set := &AccountsFilterSet{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 2:
			set.Account = append(set.Account, f.string())
		case 3:
			set.Owner = append(set.Owner, f.string())
		case 4:
			sub, err := decodeAccountsFilter(f.data())
			if err != nil {
				return err
			}
			set.Filters = append(set.Filters, sub)
		case 5:
			set.NonemptyTxnSignature = f.boolPtr()
		}
		return nil
	})
	return set, err
}

func decodeAccountsFilter(b []byte) (AccountsFilter, error) {
	var af AccountsFilter
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			m := &Memcmp{}
			if err := walk(f.data(), func(f field) error {
				switch f.num {
				case 1:
					m.Offset = f.uint64()
				case 2:
					m.Bytes = append([]byte{}, f.data()...)
				case 3:
					m.Base58 = f.string()
				case 4:
					m.Base64 = f.string()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("memcmp: %w", err)
			}
			af.Memcmp = m
		case 2:
			af.Datasize = f.uint64Ptr()
		case 3:
			af.TokenAccountState = f.boolPtr()
		case 4:
			l := &LamportsFilter{}
			if err := walk(f.data(), func(f field) error {
				if f.num >= 1 && f.num <= 4 {
					l.Cmp = LamportsCmp(f.num)
					l.Value = f.uint64()
				}
				return nil
			}); err != nil {
				return fmt.Errorf("lamports: %w", err)
			}
			af.Lamports = l
		}
		return nil
	})
	return af, err
}

func decodeTransactionsFilter(b []byte) (*TransactionsFilter, error) {
	tf := &TransactionsFilter{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			tf.Vote = f.boolPtr()
		case 2:
			tf.Failed = f.boolPtr()
		case 3:
			tf.AccountInclude = append(tf.AccountInclude, f.string())
		case 4:
			tf.AccountExclude = append(tf.AccountExclude, f.string())
		case 5:
			s := f.string()
			tf.Signature = &s
		case 6:
			tf.AccountRequired = append(tf.AccountRequired, f.string())
		}
		return nil
	})
	return tf, err
}

func decodeBlocksFilter(b []byte) (*BlocksFilter, error) {
	bf := &BlocksFilter{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			bf.AccountInclude = append(bf.AccountInclude, f.string())
		case 2:
			bf.IncludeTransactions = f.boolPtr()
		case 3:
			bf.IncludeAccounts = f.boolPtr()
		case 4:
			bf.IncludeEntries = f.boolPtr()
		}
		return nil
	})
	return bf, err
}

// DecodeUpdate parses a SubscribeUpdate from protobuf wire format.
// The result may alias b.
func DecodeUpdate(b []byte) (*SubscribeUpdate, error) {
	u := &SubscribeUpdate{}
	err := walk(b, func(f field) error {
		var err error
		switch f.num {
		case 1:
			u.Filters = append(u.Filters, f.string())
		case 2:
			u.Account, err = decodeAccountUpdate(f.data())
		case 3:
			u.Slot, err = decodeSlotUpdate(f.data())
		case 4:
			u.Transaction, err = decodeTransactionUpdate(f.data())
		case 5:
			u.Block, err = decodeBlock(f.data())
		case 6:
			u.Ping = &PingUpdate{}
		case 7:
			u.BlockMeta, err = decodeBlockMeta(f.data())
		case 9:
			pong := &PongUpdate{}
			err = walk(f.data(), func(f field) error {
				if f.num == 1 {
					pong.ID = f.int32()
				}
				return nil
			})
			u.Pong = pong
		case 11:
			var seconds int64
			var nanos int32
			err = walk(f.data(), func(f field) error {
				switch f.num {
				case 1:
					seconds = int64(f.uint64())
				case 2:
					nanos = f.int32()
				}
				return nil
			})
			u.CreatedAt = time.Unix(seconds, int64(nanos)).UTC()
		}
		if err != nil {
			return fmt.Errorf("field %d: %w", f.num, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func decodeAccountUpdate(b []byte) (*AccountUpdate, error) {
	au := &AccountUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeAccountInfo(f.data(), &au.Account)
		case 2:
			au.Slot = f.uint64()
		case 3:
			au.IsStartup = f.bool()
		}
		return nil
	})
	return au, err
}

func decodeAccountInfo(b []byte, info *AccountInfo) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			info.Pubkey = f.data()
		case 2:
			info.Lamports = f.uint64()
		case 3:
			info.Owner = f.data()
		case 4:
			info.Executable = f.bool()
		case 5:
			info.RentEpoch = f.uint64()
		case 6:
			info.Data = f.data()
		case 7:
			info.WriteVersion = f.uint64()
		case 8:
			info.TxnSignature = f.data()
		}
		return nil
	})
}

func decodeSlotUpdate(b []byte) (*SlotUpdate, error) {
	su := &SlotUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			su.Slot = f.uint64()
		case 2:
			su.Parent = f.uint64Ptr()
		case 3:
			su.Status = SlotStatus(f.int32())
		}
		return nil
	})
	return su, err
}

func decodeTransactionUpdate(b []byte) (*TransactionUpdate, error) {
	tu := &TransactionUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			return decodeTransactionInfo(f.data(), &tu.Transaction)
		case 2:
			tu.Slot = f.uint64()
		}
		return nil
	})
	return tu, err
}

func decodeTransactionInfo(b []byte, ti *TransactionInfo) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			ti.Signature = f.data()
		case 2:
			ti.IsVote = f.bool()
		case 3:
			return walk(f.data(), func(f field) error {
				switch f.num {
				case 1:
					ti.Signatures = append(ti.Signatures, f.data())
				case 2:
					return decodeMessage(f.data(), &ti.Message)
				}
				return nil
			})
		case 4:
			return decodeTransactionMeta(f.data(), &ti.Meta)
		case 5:
			ti.Index = f.uint64()
		}
		return nil
	})
}

func decodeMessage(b []byte, msg *Message) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 2:
			msg.AccountKeys = append(msg.AccountKeys, f.data())
		case 3:
			msg.RecentBlockhash = f.data()
		case 4:
			var ix CompiledInstruction
			if err := walk(f.data(), func(f field) error {
				switch f.num {
				case 1:
					ix.ProgramIDIndex = uint32(f.uint64())
				case 2:
					ix.Accounts = f.data()
				case 3:
					ix.Data = f.data()
				}
				return nil
			}); err != nil {
				return err
			}
			msg.Instructions = append(msg.Instructions, ix)
		case 5:
			msg.Versioned = f.bool()
		}
		return nil
	})
}

func decodeTransactionMeta(b []byte, meta *TransactionMeta) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			meta.Failed = true
		case 2:
			meta.Fee = f.uint64()
		case 5:
			var inner InnerInstructions
			if err := walk(f.data(), func(f field) error {
				switch f.num {
				case 1:
					inner.Index = uint32(f.uint64())
				case 2:
					ix, err := decodeInnerInstruction(f.data())
					if err != nil {
						return err
					}
					inner.Instructions = append(inner.Instructions, ix)
				}
				return nil
			}); err != nil {
				return err
			}
			meta.InnerInstructions = append(meta.InnerInstructions, inner)
		case 6:
			meta.LogMessages = append(meta.LogMessages, f.string())
		case 12:
			meta.LoadedWritableAddresses = append(meta.LoadedWritableAddresses, f.data())
		case 13:
			meta.LoadedReadonlyAddresses = append(meta.LoadedReadonlyAddresses, f.data())
		case 16:
			meta.ComputeUnitsConsumed = f.uint64Ptr()
		}
		return nil
	})
}

func decodeInnerInstruction(b []byte) (InnerInstruction, error) {
	var ix InnerInstruction
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			ix.ProgramIDIndex = uint32(f.uint64())
		case 2:
			ix.Accounts = f.data()
		case 3:
			ix.Data = f.data()
		case 4:
			h := uint32(f.uint64())
			ix.StackHeight = &h
		}
		return nil
	})
	return ix, err
}

func decodeBlock(b []byte) (*BlockUpdate, error) {
	blk := &BlockUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			blk.Slot = f.uint64()
		case 2:
			blk.Blockhash = f.string()
		case 4:
			blk.BlockTime = decodeInt64Wrapper(f.data())
		case 5:
			blk.BlockHeight = decodeUint64Wrapper(f.data())
		case 6:
			var ti TransactionInfo
			if err := decodeTransactionInfo(f.data(), &ti); err != nil {
				return err
			}
			blk.Transactions = append(blk.Transactions, ti)
		case 7:
			blk.ParentSlot = f.uint64()
		case 8:
			blk.ParentBlockhash = f.string()
		case 9:
			blk.ExecutedTransactionCount = f.uint64()
		case 10:
			blk.UpdatedAccountCount = f.uint64()
		case 12:
			blk.EntriesCount = f.uint64()
		}
		return nil
	})
	return blk, err
}

func decodeBlockMeta(b []byte) (*BlockMetaUpdate, error) {
	meta := &BlockMetaUpdate{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 1:
			meta.Slot = f.uint64()
		case 2:
			meta.Blockhash = f.string()
		case 4:
			meta.BlockTime = decodeInt64Wrapper(f.data())
		case 5:
			meta.BlockHeight = decodeUint64Wrapper(f.data())
		case 6:
			meta.ParentSlot = f.uint64()
		case 7:
			meta.ParentBlockhash = f.string()
		case 8:
			meta.ExecutedTransactionCount = f.uint64()
		case 9:
			meta.EntriesCount = f.uint64()
		}
		return nil
	})
	return meta, err
}

// UnixTimestamp and BlockHeight are single-field wrapper messages
func decodeInt64Wrapper(b []byte) *int64 {
	v := int64(0)
	_ = walk(b, func(f field) error {
		if f.num == 1 {
			v = int64(f.uint64())
		}
		return nil
	})
	return &v
}

func decodeUint64Wrapper(b []byte) *uint64 {
	v := uint64(0)
	_ = walk(b, func(f field) error {
		if f.num == 1 {
			v = f.uint64()
		}
		return nil
	})
	return &v
}
