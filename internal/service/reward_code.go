package service

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
)

// rejection 阈值：256 以下最大的 36 的倍数
const codeAlphabetRejectAbove = 256 - 256%len(constants.RewardCodeAlphabet)

// RewardCode 生成的奖励码三段
type RewardCode struct {
	CodePart1 string
	CodePart2 string
	FullCode  string
}

// RewardCodeGenerator 奖励码生成器
// 随机源可注入，默认 crypto/rand。
type RewardCodeGenerator struct {
	random io.Reader
}

// NewRewardCodeGenerator 创建奖励码生成器，random 为空时使用 crypto/rand
func NewRewardCodeGenerator(random io.Reader) *RewardCodeGenerator {
	if random == nil {
		random = rand.Reader
	}
	return &RewardCodeGenerator{random: random}
}

// Generate 为商户生成一组奖励码
func (g *RewardCodeGenerator) Generate(merchantCode string) (RewardCode, error) {
	prefix, err := NormalizeMerchantCode(merchantCode)
	if err != nil {
		return RewardCode{}, err
	}
	suffix, err := g.randomString(constants.RewardCodeSuffixLength)
	if err != nil {
		return RewardCode{}, err
	}
	part2, err := g.randomString(constants.RewardCodePart2Length)
	if err != nil {
		return RewardCode{}, err
	}
	part1 := prefix + suffix
	return RewardCode{
		CodePart1: part1,
		CodePart2: part2,
		FullCode:  part1 + constants.RewardCodeSeparator + part2,
	}, nil
}

// Value 在 [min, max] 闭区间内按分均匀抽取金额
func (g *RewardCodeGenerator) Value(min, max models.Money) (models.Money, error) {
	minCents := min.Cents()
	maxCents := max.Cents()
	if minCents < 0 || maxCents < minCents {
		return models.Money{}, fmt.Errorf("%w: value range %s-%s", ErrEventInvalid, min.String(), max.String())
	}
	span := uint64(maxCents - minCents + 1)
	offset, err := g.uniformUint64(span)
	if err != nil {
		return models.Money{}, err
	}
	return models.NewMoneyFromCents(minCents + int64(offset)), nil
}

func (g *RewardCodeGenerator) randomString(length int) (string, error) {
	alphabet := constants.RewardCodeAlphabet
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}
		for _, b := range buf {
			if int(b) >= codeAlphabetRejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// uniformUint64 返回 [0, n) 的无偏随机数
func (g *RewardCodeGenerator) uniformUint64(n uint64) (uint64, error) {
	if n <= 1 {
		return 0, nil
	}
	limit := ^uint64(0) - (^uint64(0) % n)
	var buf [8]byte
	for {
		if _, err := io.ReadFull(g.random, buf[:]); err != nil {
			return 0, fmt.Errorf("read random source: %w", err)
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return v % n, nil
		}
	}
}

// NormalizeMerchantCode 校验并大写商户编码（固定 3 位字母数字）
func NormalizeMerchantCode(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != constants.RewardMerchantCodeLength || !isCodeAlphanumeric(normalized) {
		return "", fmt.Errorf("%w: merchant code %q", ErrMerchantInvalid, code)
	}
	return normalized, nil
}

// NormalizeClaimCode 将核销码转为大写，不裁剪空白
func NormalizeClaimCode(code string) string {
	return strings.ToUpper(code)
}

// ValidateClaimCode 核销码必须恰为 8 位
func ValidateClaimCode(code string) bool {
	return len([]rune(code)) == constants.RewardClaimCodeLength
}

func isCodeAlphanumeric(value string) bool {
	for _, r := range value {
		if !strings.ContainsRune(constants.RewardCodeAlphabet, r) {
			return false
		}
	}
	return true
}
