package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func TestHashText(t *testing.T) {
	h := Blake2Hash([]byte("seti 5 0 1\n"))
	assert.Len(t, h.Hex(), 66)
	var parsed Hash
	require.NoError(t, parsed.UnmarshalText([]byte(h.Hex()[2:])))
	assert.Equal(t, h, parsed)

	b, err := json.Marshal(h)
	require.NoError(t, err)
	var back Hash
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, h, back)

	assert.Error(t, back.UnmarshalText([]byte("0x1234")))
	assert.Error(t, back.UnmarshalText([]byte("zz")))
}

func TestHashShortForms(t *testing.T) {
	var h Hash
	h[0] = 0xab
	h[31] = 0xcd
	assert.NotEmpty(t, h.Short())
	assert.Less(t, len(h.Short()), len(h.Hex()))
	short := h.Short()
	h[31] = 0
	assert.Equal(t, short, h.Short(), "only the first eight bytes count")
}

func TestBytesToHash(t *testing.T) {
	h := BytesToHash([]byte{1, 2})
	assert.Equal(t, byte(1), h[30])
	assert.Equal(t, byte(2), h[31])

	long := make([]byte, 40)
	long[39] = 7
	assert.Equal(t, byte(7), BytesToHash(long)[31])
}

func TestBlake3Words(t *testing.T) {
	a := Blake3Words(1, 2, 3)
	assert.Equal(t, a, Hash(blake3.Sum256(append(append(Uint64ToBytes(1), Uint64ToBytes(2)...), Uint64ToBytes(3)...))))
	assert.NotEqual(t, a, Blake3Words(1, 2, 4))
	assert.NotEqual(t, a, Blake2Hash(append(append(Uint64ToBytes(1), Uint64ToBytes(2)...), Uint64ToBytes(3)...)))
}

func TestUint64Bytes(t *testing.T) {
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, Uint64ToBytes(0x0102030405060708))
}

func TestGetCommitHash(t *testing.T) {
	assert.NotEmpty(t, GetCommitHash())
}
