// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// BLSKeyLength length of a validator BLS public key in bytes.
	BLSKeyLength = 96
	// BLSSignatureLength length of a BLS proof-of-possession signature in bytes.
	BLSSignatureLength = 48
)

// BLSKey is a validator node's BLS public key.
type BLSKey [BLSKeyLength]byte

// BLSSignature is the signature registered alongside a BLS key.
type BLSSignature [BLSSignatureLength]byte

func (k BLSKey) String() string {
	return "0x" + hex.EncodeToString(k[:])
}

// AbbrevString returns abbrev string presentation.
func (k BLSKey) AbbrevString() string {
	return fmt.Sprintf("0x%x…%x", k[:4], k[BLSKeyLength-4:])
}

func (k BLSKey) Bytes() []byte {
	return k[:]
}

func (k BLSKey) IsZero() bool {
	return k == BLSKey{}
}

// MarshalText implements encoding.TextMarshaler.
func (k BLSKey) MarshalText() ([]byte, error) {
	return hexutil.Bytes(k[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BLSKey) UnmarshalText(text []byte) error {
	return decodeFixedHex(string(text), k[:])
}

// ParseBLSKey parses a hex string into a BLSKey.
func ParseBLSKey(s string) (BLSKey, error) {
	var k BLSKey
	if err := decodeFixedHex(s, k[:]); err != nil {
		return BLSKey{}, err
	}
	return k, nil
}

// BytesToBLSKey converts b into a BLSKey, failing on length mismatch.
func BytesToBLSKey(b []byte) (BLSKey, error) {
	var k BLSKey
	if len(b) != BLSKeyLength {
		return k, fmt.Errorf("invalid bls key length %d", len(b))
	}
	copy(k[:], b)
	return k, nil
}

func (s BLSSignature) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

func (s BLSSignature) Bytes() []byte {
	return s[:]
}

// MarshalText implements encoding.TextMarshaler.
func (s BLSSignature) MarshalText() ([]byte, error) {
	return hexutil.Bytes(s[:]).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *BLSSignature) UnmarshalText(text []byte) error {
	return decodeFixedHex(string(text), s[:])
}

// ParseBLSSignature parses a hex string into a BLSSignature.
func ParseBLSSignature(s string) (BLSSignature, error) {
	var sig BLSSignature
	if err := decodeFixedHex(s, sig[:]); err != nil {
		return BLSSignature{}, err
	}
	return sig, nil
}

// BytesToBLSSignature converts b into a BLSSignature, failing on length mismatch.
func BytesToBLSSignature(b []byte) (BLSSignature, error) {
	var s BLSSignature
	if len(b) != BLSSignatureLength {
		return s, fmt.Errorf("invalid bls signature length %d", len(b))
	}
	copy(s[:], b)
	return s, nil
}
