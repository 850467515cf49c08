package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	a := Key([]byte("json"), []byte("[]"))
	assert.True(t, strings.HasPrefix(a, "iaa:"))
	assert.Len(t, a, len("iaa:")+64)
	assert.Equal(t, a, Key([]byte("json"), []byte("[]")))
	assert.NotEqual(t, a, Key([]byte("text"), []byte("[]")))
	assert.NotEqual(t, Key([]byte("ab"), []byte("c")), Key([]byte("a"), []byte("bc")))
}
