// Package shortid generates the short opaque identifiers used in share URLs.
package shortid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultLength is the identifier length used for new greetings (~59.5 bits)
	DefaultLength = 10

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Largest multiple of len(alphabet) below 256; bytes at or above it are rejected
	// so every character is equally likely.
	maxByte = 256 - (256 % len(alphabet))
)

// ErrGeneration is returned when the random source fails
var ErrGeneration = errors.New("failed to generate identifier")

// Generator produces random identifiers of a fixed length
type Generator struct {
	length int
	source io.Reader
}

// New creates a generator backed by crypto/rand
func New(length int) *Generator {
	return NewWithSource(length, rand.Reader)
}

// NewWithSource creates a generator reading randomness from source
func NewWithSource(length int, source io.Reader) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length, source: source}
}

// Generate returns a new identifier drawn from [A-Za-z0-9]
func (g *Generator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length+g.length/2)

	for len(out) < g.length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}

	return string(out), nil
}

// Generate returns an identifier of DefaultLength using crypto/rand
func Generate() (string, error) {
	return New(DefaultLength).Generate()
}
