package shortener

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	MinCodeLength     = 7
	MaxCodeLength     = 14
	DefaultCodeLength = 9
)

// Alphabet is URL-safe and leaves out glyphs that are easy to misread (0 O 1 l I).
const Alphabet = "23456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ_-"

// CodeGenerator produces a new short identifier on every call.
type CodeGenerator func() string

// NewCodeGenerator returns a random identifier generator of the given length.
func NewCodeGenerator(length int) (CodeGenerator, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return nil, fmt.Errorf("code length must be between %d and %d, got %d", MinCodeLength, MaxCodeLength, length)
	}

	gen, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, err
	}

	return CodeGenerator(gen), nil
}
