package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("act-123")

	assert.Equal(t, "act-123", gen.Generate())
	assert.Equal(t, "act-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, "test-activation", NewFixedIDGenerator("").Generate())
}

func TestSequenceIDGenerator(t *testing.T) {
	gen := NewSequenceIDGenerator("act")

	assert.Equal(t, "act-1", gen.Generate())
	assert.Equal(t, "act-2", gen.Generate())
	assert.Equal(t, "act-3", gen.Generate())
}
