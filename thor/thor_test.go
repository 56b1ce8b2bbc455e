// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestBytes32(t *testing.T) {
	assert.Equal(t, Bytes32{31: 1}, BytesToBytes32([]byte{1}))
	exact := make([]byte, 32)
	exact[0], exact[1] = 1, 2
	assert.Equal(t, Bytes32{0: 1, 1: 2}, BytesToBytes32(exact))

	long := make([]byte, 40)
	long[8], long[39] = 0xaa, 0xbb
	assert.Equal(t, Bytes32{0: 0xaa, 31: 0xbb}, BytesToBytes32(long))

	assert.Equal(t, "0x"+strings.Repeat("00", 31)+"01", BytesToBytes32([]byte{1}).String())
}

func TestDecodeFixedHex(t *testing.T) {
	var dst [2]byte
	assert.EqualError(t, decodeFixedHex("0x12", dst[:]), "invalid length")
	assert.EqualError(t, decodeFixedHex("1x1234", dst[:]), "invalid prefix")
	require.NoError(t, decodeFixedHex("0X12ab", dst[:]))
	assert.Equal(t, [2]byte{0x12, 0xab}, dst)
	require.NoError(t, decodeFixedHex("ffee", dst[:]))
	assert.Equal(t, [2]byte{0xff, 0xee}, dst)
}

func TestBLSKeyText(t *testing.T) {
	var key BLSKey
	for i := range key {
		key[i] = byte(i)
	}
	text, err := key.MarshalText()
	require.NoError(t, err)

	var decoded BLSKey
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, key, decoded)

	_, err = ParseBLSKey("0x00")
	assert.Error(t, err)

	_, err = BytesToBLSKey(make([]byte, 95))
	assert.Error(t, err)
}

func TestBLSSignatureJSON(t *testing.T) {
	sig := BLSSignature{0: 0xaa, 47: 0xbb}
	data, err := json.Marshal(struct{ Sig BLSSignature }{sig})
	require.NoError(t, err)

	var decoded struct{ Sig BLSSignature }
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, sig, decoded.Sig)
}

func TestAddress(t *testing.T) {
	addr, err := ParseAddress("0x00000000000000000000000000000000000000a1")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", addr.String())
	assert.False(t, addr.IsZero())
}

func TestBlake2b(t *testing.T) {
	assert.Equal(t, Bytes32(blake2b.Sum256([]byte("foo"))), Blake2b([]byte("foo")))
	assert.Equal(t, Blake2b([]byte("foobar")), Blake2b([]byte("foo"), []byte("bar")))
}
