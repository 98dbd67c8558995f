package protocol

import (
	"bytes"
	"encoding/base64"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/ridge/solstream/wire"
)

// eventIxTag prefixes the data of the instruction an Anchor program invokes on
// itself to emit an event
var eventIxTag = []byte{0xe4, 0x45, 0xa5, 0x2e, 0x51, 0xcb, 0x9a, 0x1d}

const programDataPrefix = "Program data: "

// anchorEvent is an event emitted by an Anchor program, not yet decoded
type anchorEvent struct {
	discriminator bin.TypeID
	body          []byte
}

// eventDiscriminator returns the discriminator Anchor assigns to the event
// struct called name
func eventDiscriminator(name string) bin.TypeID {
	return bin.SighashTypeID("event", name)
}

func splitAnchorEvent(data []byte) (anchorEvent, bool) {
	if len(data) < 8 {
		return anchorEvent{}, false
	}
	return anchorEvent{discriminator: bin.TypeIDFromBytes(data[:8]), body: data[8:]}, true
}

// cpiEvents returns the events program emitted through self-invocation, in
// execution order
func cpiEvents(ti *wire.TransactionInfo, program solana.PublicKey) []anchorEvent {
	keys := ti.AccountKeys()
	var res []anchorEvent
	for _, inner := range ti.Meta.InnerInstructions {
		for _, ix := range inner.Instructions {
			if int(ix.ProgramIDIndex) >= len(keys) || !bytes.Equal(keys[ix.ProgramIDIndex], program[:]) {
				continue
			}
			if !bytes.HasPrefix(ix.Data, eventIxTag) {
				continue
			}
			if ev, ok := splitAnchorEvent(ix.Data[len(eventIxTag):]); ok {
				res = append(res, ev)
			}
		}
	}
	return res
}

// logEvents returns the events program emitted through "Program data:" log
// lines. Only lines logged while program is the innermost running program are
// considered.
func logEvents(logs []string, program solana.PublicKey) []anchorEvent {
	id := program.String()
	var stack []string
	var res []anchorEvent
	for _, line := range logs {
		if data, ok := strings.CutPrefix(line, programDataPrefix); ok {
			if len(stack) == 0 || stack[len(stack)-1] != id {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(data))
			if err != nil {
				continue
			}
			if ev, ok := splitAnchorEvent(raw); ok {
				res = append(res, ev)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Program" {
			continue
		}
		switch {
		case fields[2] == "invoke":
			stack = append(stack, fields[1])
		case fields[2] == "success", strings.HasPrefix(fields[2], "failed"):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return res
}
