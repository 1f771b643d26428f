package service

import (
	"strings"

	"github.com/bluboy-rewards/internal/models"

	"github.com/shopspring/decimal"
)

const inrSymbol = "₹"

// FormatINR 按印度数字分组格式化金额，例如 ₹1,23,456.00
func FormatINR(amount models.Money) string {
	fixed := amount.Decimal.Round(2).StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart := fixed, "00"
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart, fracPart = fixed[:idx], fixed[idx+1:]
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(inrSymbol)
	b.WriteString(groupIndian(intPart))
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}

// groupIndian 末三位一组，其余每两位一组
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	groups := make([]string, 0, len(head)/2+2)
	if len(head)%2 == 1 {
		groups = append(groups, head[:1])
		head = head[1:]
	}
	for i := 0; i < len(head); i += 2 {
		groups = append(groups, head[i:i+2])
	}
	groups = append(groups, tail)
	return strings.Join(groups, ",")
}

// ClaimRate 核销率百分比，保留两位小数；总数为 0 时返回 "0.00"
func ClaimRate(claimed, total int64) string {
	if total <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(claimed).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(total), 2).
		StringFixed(2)
}
