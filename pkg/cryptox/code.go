package cryptox

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
)

// CodeLength is the number of digits in a one-time verification code.
const CodeLength = 6

// maxCodeRetries bounds the self-check loop. With a healthy RNG the first
// candidate always passes.
const maxCodeRetries = 5

var (
	codePattern = regexp.MustCompile(`^[0-9]{6}$`)
	ten         = big.NewInt(10)

	// ErrCodeGeneration is returned when every candidate fails the format check.
	ErrCodeGeneration = errors.New("cryptox: could not generate a well-formed code")
)

// GenerateCode returns a 6 digit numeric code. Each digit is drawn
// independently and uniformly from crypto/rand.
func GenerateCode() (string, error) {
	return generateCode(rand.Reader)
}

func generateCode(r io.Reader) (string, error) {
	for range maxCodeRetries {
		buf := make([]byte, CodeLength)
		for i := range buf {
			n, err := rand.Int(r, ten)
			if err != nil {
				return "", fmt.Errorf("failed to generate code digit: %w", err)
			}
			buf[i] = byte('0' + n.Int64())
		}

		code := string(buf)
		if IsWellFormedCode(code) {
			return code, nil
		}
	}

	return "", ErrCodeGeneration
}

// IsWellFormedCode reports whether s looks like a code produced by GenerateCode.
func IsWellFormedCode(s string) bool {
	return codePattern.MatchString(s)
}
