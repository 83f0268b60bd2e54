package decimalx

import (
	"strings"

	"github.com/shopspring/decimal"
)

func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// OrZero 解析失败或为空时返回 0
func OrZero(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	res, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return res
}

// Signed 带符号的定点字符串, 如 +26.0 / -3.5
func Signed(d decimal.Decimal, places int32) string {
	r := d.Round(places)
	if r.IsNegative() {
		return r.StringFixed(places)
	}
	return "+" + r.StringFixed(places)
}
