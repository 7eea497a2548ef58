package delivery

import (
	"crypto/rand"
	"errors"
	"math/big"
)

// codeAlphabet leaves out 0, O, 1, I and L so codes survive being read aloud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const DefaultCodeLength = 4

func NewCode(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be positive")
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
