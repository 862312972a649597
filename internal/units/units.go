// Package units converts chain-native integer amounts into display strings.
//
// Amounts stay arbitrary precision until the final string: inputs are
// *big.Int wei values, conversions are exact decimal shifts, and nothing on
// the monetary path goes through float64.
package units

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
	"github.com/shopspring/decimal"
)

const (
	EtherDecimals = 18
	GweiDecimals  = 9
)

var (
	// Wei is the number of wei in one ether.
	Wei = decimal.NewFromInt(params.Ether)
	// WeiInGwei is the number of wei in one gwei.
	WeiInGwei = decimal.NewFromInt(params.GWei)
)

// CurrencyUnits are the labels appended to converted amounts.
type CurrencyUnits struct {
	Ether string `yaml:"ether"`
	Gwei  string `yaml:"gwei"`
}

func DefaultCurrencyUnits() CurrencyUnits {
	return CurrencyUnits{Ether: "ETH", Gwei: "Gwei"}
}

// ToEther returns v / Wei.
func ToEther(v *big.Int) decimal.Decimal {
	return shift(v, EtherDecimals)
}

// ToGwei returns v / WeiInGwei.
func ToGwei(v *big.Int) decimal.Decimal {
	return shift(v, GweiDecimals)
}

func shift(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// IsZero reports whether v is absent or zero, the two states a display treats as "no value".
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}

// Fixed renders d in plain notation with no exponent and no trailing zeros.
func Fixed(d decimal.Decimal) string {
	return d.String()
}

// Grouped renders d in plain notation with "," between every three integer digits.
func Grouped(d decimal.Decimal) string {
	s := d.String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	out := sign + groupDigits(intPart)
	if hasFrac {
		out += "." + fracPart
	}
	return out
}

// RoundedGrouped rounds d half up to places decimals and groups the result.
func RoundedGrouped(d decimal.Decimal, places int32) string {
	return Grouped(d.Round(places))
}

func groupDigits(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
