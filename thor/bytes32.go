// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Bytes32 is a storage slot position.
type Bytes32 [32]byte

func (b Bytes32) String() string {
	return hexutil.Encode(b[:])
}

func (b Bytes32) Bytes() []byte {
	return b[:]
}

// BytesToBytes32 right-aligns b into a Bytes32, keeping the last 32 bytes
// when b is longer.
func BytesToBytes32(b []byte) (out Bytes32) {
	if len(b) > len(out) {
		b = b[len(b)-len(out):]
	}
	copy(out[len(out)-len(b):], b)
	return
}
