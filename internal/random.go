package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// NewCode generates a numeric confirmation code with the given digit
// count, each digit drawn independently from crypto/rand.
func NewCode(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid code generation length")
	}
	return code, nil
}

// HashCode maps a plaintext code to the 32-byte digest stored in Redis.
func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// NewRestoreKey mints the opaque subject key handed to a user restoring a
// soft-deleted account.
func NewRestoreKey() string {
	return uuid.NewString()
}
