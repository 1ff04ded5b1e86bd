package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256Hex_KnownDigest(t *testing.T) {
	// sha256("hello")
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		SHA256Hex([]byte("hello")),
	)
}

func TestSHA256Hex_Deterministic(t *testing.T) {
	content := []byte("the quick brown fox")
	assert.Equal(t, SHA256Hex(content), SHA256Hex(content))
}

func TestSHA256Hex_TrivialMutationChangesDigest(t *testing.T) {
	content := []byte("evidence payload")
	mutated := make([]byte, len(content))
	copy(mutated, content)
	mutated[0] ^= 0x01 // flip one bit

	assert.NotEqual(t, SHA256Hex(content), SHA256Hex(mutated))
}

func TestSHA256Hex_EmptyContent(t *testing.T) {
	digest := SHA256Hex(nil)
	assert.Len(t, digest, 64)
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		digest,
	)
}
