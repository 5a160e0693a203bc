// Package random produces cryptographically random identifiers such as CSP nonces.
package random

import (
	"crypto/rand"

	"github.com/Manty2503/demo-final/internal/errors"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// acceptBelow is the largest multiple of len(alphabet) not exceeding 256. Bytes at or above it are rejected so that
// every letter is equally likely.
const acceptBelow = 256 - 256%len(alphabet)

// Letters returns n cryptographically random ASCII letters.
func Letters(n uint) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n/4+n+1) //nolint:mnd // about a fifth of the bytes are rejected
	for uint(len(out)) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", errors.Wrap(err, "read random bytes")
		}
		for _, b := range buf {
			if int(b) >= acceptBelow {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if uint(len(out)) == n {
				break
			}
		}
	}
	return string(out), nil
}
