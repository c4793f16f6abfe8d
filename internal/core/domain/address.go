package domain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrMalformedAddress = errors.New("malformed account address")
	ErrBadChecksum      = errors.New("address checksum mismatch")
	ErrZeroAddress      = errors.New("zero address is not a valid recipient")
)

// ParseAddress validates a 0x-prefixed hex account identifier. All-lower and
// all-upper forms are accepted as-is; mixed case must carry a valid EIP-55
// checksum.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, ErrMalformedAddress
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, ErrMalformedAddress
	}

	addr := common.HexToAddress(s)
	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		if addr.Hex()[2:] != body {
			return common.Address{}, ErrBadChecksum
		}
	}
	return addr, nil
}

// ParseRecipient is ParseAddress that also refuses the zero address.
func ParseRecipient(s string) (common.Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, ErrZeroAddress
	}
	return addr, nil
}
