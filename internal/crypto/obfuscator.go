package crypto

import "fmt"

// Obfuscator is the keyless, reversible transform applied to GS-property
// message payloads. The exact retail transform is not pinned down yet, so the
// framing layer takes it as a strategy selected by configuration.
type Obfuscator interface {
	Name() string
	Obfuscate(data []byte) []byte
	Deobfuscate(data []byte) []byte
}

// Passthrough leaves payloads untouched.
type Passthrough struct{}

func (Passthrough) Name() string { return ObfuscationNone }

func (Passthrough) Obfuscate(data []byte) []byte {
	return append([]byte(nil), data...)
}

func (Passthrough) Deobfuscate(data []byte) []byte {
	return append([]byte(nil), data...)
}

// XORChain is a rolling XOR where every output byte also feeds the next one:
//
//	encrypted[i] = raw[i] ^ seed ^ encrypted[i-1]
//
// The same chaining the game-server traffic cipher uses, minus the key table.
type XORChain struct {
	Seed byte
}

func (XORChain) Name() string { return ObfuscationXORChain }

func (x XORChain) Obfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	var prev byte
	for i, b := range data {
		prev = b ^ x.Seed ^ prev
		out[i] = prev
	}
	return out
}

func (x XORChain) Deobfuscate(data []byte) []byte {
	out := make([]byte, len(data))
	var prev byte
	for i, b := range data {
		out[i] = b ^ x.Seed ^ prev
		prev = b
	}
	return out
}

// Obfuscation strategy names accepted by NewObfuscator.
const (
	ObfuscationNone     = "none"
	ObfuscationXORChain = "xorchain"
)

// NewObfuscator returns the strategy registered under name.
func NewObfuscator(name string, seed byte) (Obfuscator, error) {
	switch name {
	case "", ObfuscationNone:
		return Passthrough{}, nil
	case ObfuscationXORChain:
		return XORChain{Seed: seed}, nil
	default:
		return nil, fmt.Errorf("unknown obfuscation strategy %q", name)
	}
}
