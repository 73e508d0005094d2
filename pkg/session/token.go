package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// RememberTokenLength is the length of a remember-me token.
const RememberTokenLength = 60

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateRememberToken returns n characters drawn uniformly from [A-Za-z0-9].
func generateRememberToken(n int) (string, error) {
	// 248 is the largest multiple of 62 that fits in a byte
	const limit = 256 - 256%len(alphanumeric)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Join(ErrTokenGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphanumeric[int(b)%len(alphanumeric)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
