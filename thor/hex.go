// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package thor

import (
	"encoding/hex"
	"errors"
	"strings"
)

// decodeFixedHex decodes an optionally 0x-prefixed hex string whose decoded
// length must equal len(dst).
func decodeFixedHex(s string, dst []byte) error {
	switch len(s) {
	case len(dst) * 2:
	case len(dst)*2 + 2:
		if strings.ToLower(s[:2]) != "0x" {
			return errors.New("invalid prefix")
		}
		s = s[2:]
	default:
		return errors.New("invalid length")
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}
