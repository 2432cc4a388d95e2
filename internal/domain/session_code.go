package domain

import (
	"fmt"
	"strconv"

	"github.com/jaevor/go-nanoid"
)

const (
	sessionCodeAlphabet = "123456789"
	maxCodeAttempts     = 8
)

// SessionCodeGenerator yields a short positive code an operator can type in by hand.
type SessionCodeGenerator func() (int, error)

// NewSessionCodeGenerator returns a generator of length-digit codes without zeros,
// so every code is positive and has no leading zero.
func NewSessionCodeGenerator(length int) (SessionCodeGenerator, error) {
	if length <= 0 || length > 9 {
		return nil, fmt.Errorf("session code length must be in [1, 9], got %d", length)
	}
	gen, err := nanoid.CustomASCII(sessionCodeAlphabet, length)
	if err != nil {
		return nil, err
	}
	return func() (int, error) {
		return strconv.Atoi(gen())
	}, nil
}
