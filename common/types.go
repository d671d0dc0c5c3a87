package common

import (
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashLength is the length of a digest in bytes.
const HashLength = 32

// Hash is a 32 byte digest of a program or a machine state.
type Hash [HashLength]byte

// Bytes returns the byte representation of the hash.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the string representation of the hash.
func (h Hash) String() string {
	return h.Hex()
}

// Short returns a compact base58 identifier built from the first eight bytes.
func (h Hash) Short() string {
	return base58.Encode(h[:8])
}

// Hex returns the hexadecimal string representation of the hash.
func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText encodes the hash as 0x-prefixed hex.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes 0x-prefixed hex.
func (h *Hash) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != HashLength {
		return fmt.Errorf("hash: want %d bytes, got %d", HashLength, len(b))
	}
	copy(h[:], b)
	return nil
}

// BytesToHash converts a byte slice to a Hash. Longer input keeps the trailing
// bytes, shorter input is left padded.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}
