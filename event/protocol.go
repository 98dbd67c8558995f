package event

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Protocol is an on-chain program whose activity can be decoded
type Protocol string

// Protocol values
const (
	PumpFun       Protocol = "PumpFun"
	PumpSwap      Protocol = "PumpSwap"
	Bonk          Protocol = "Bonk"
	RaydiumCpmm   Protocol = "RaydiumCpmm"
	RaydiumClmm   Protocol = "RaydiumClmm"
	RaydiumAmmV4  Protocol = "RaydiumAmmV4"
	MeteoraDammV2 Protocol = "MeteoraDammV2"
)

var programIDs = map[Protocol]solana.PublicKey{
	PumpFun:       solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"),
	PumpSwap:      solana.MustPublicKeyFromBase58("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"),
	Bonk:          solana.MustPublicKeyFromBase58("LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"),
	RaydiumCpmm:   solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"),
	RaydiumClmm:   solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"),
	RaydiumAmmV4:  solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"),
	MeteoraDammV2: solana.MustPublicKeyFromBase58("cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG"),
}

// AllProtocols lists the known protocols in a stable order
var AllProtocols = []Protocol{PumpFun, PumpSwap, Bonk, RaydiumCpmm, RaydiumClmm, RaydiumAmmV4, MeteoraDammV2}

// ProgramID returns the program identifier of the protocol.
//
// Panics for unknown protocols.
func (p Protocol) ProgramID() solana.PublicKey {
	id, ok := p.LookupProgramID()
	if !ok {
		panic(fmt.Errorf("unknown protocol %q", p))
	}
	return id
}

// LookupProgramID returns the program identifier of a known protocol
func (p Protocol) LookupProgramID() (solana.PublicKey, bool) {
	id, ok := programIDs[p]
	return id, ok
}

// ParseProtocol converts a protocol name into a Protocol
func ParseProtocol(s string) (Protocol, error) {
	p := Protocol(s)
	if _, ok := programIDs[p]; !ok {
		return "", fmt.Errorf("unknown protocol %q", s)
	}
	return p, nil
}

// ProgramIDs returns the program identifiers of protocols as base58 strings,
// the form the feed filters take
func ProgramIDs(protocols []Protocol) []string {
	res := make([]string, 0, len(protocols))
	for _, p := range protocols {
		res = append(res, p.ProgramID().String())
	}
	return res
}

// PublicKey converts raw key bytes into a solana.PublicKey, reporting false for
// a key of the wrong length
func PublicKey(b []byte) (solana.PublicKey, bool) {
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(b), true
}
