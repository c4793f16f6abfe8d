package domain

import (
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of wei decimals in one ether.
const EtherDecimals = 18

var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrAmountPrecision   = errors.New("amount has more than 18 decimal places")
)

// EtherToWei converts a positive ETH amount to wei. Amounts finer than one wei
// are rejected instead of being rounded.
func EtherToWei(eth decimal.Decimal) (*big.Int, error) {
	if !eth.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	wei := eth.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, ErrAmountPrecision
	}
	return wei.BigInt(), nil
}

// WeiToEther converts a wei amount to ETH without loss of precision.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}
