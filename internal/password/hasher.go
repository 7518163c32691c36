// Package password はパスワードの一方向ハッシュ化と検証を提供する。
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost はbcryptのデフォルトのコストファクタ。
const DefaultCost = 10

// MaxLength はbcryptが受け付ける平文パスワードの最大バイト数。
const MaxLength = 72

// Hasher はbcryptによるソルト付きハッシュ化を行う。
// 生成後はイミュータブルで、複数goroutineから安全に使用できる。
type Hasher struct {
	cost int
}

// NewHasher はHasherを生成する。
// costがbcryptの許容範囲外の場合は範囲内に丸める。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost は設定されたコストファクタを返す。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash は平文パスワードからソルト付きダイジェストを生成する。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify は平文パスワードがダイジェストと一致するかを検証する。
// ダイジェストが不正な形式の場合もfalseを返す（fail closed）。
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
