package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Uniqueness(t *testing.T) {
	ids := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		id, err := Generate("test")
		require.NoError(t, err)
		assert.False(t, ids[id], "ID should be unique: %s", id)
		ids[id] = true
	}

	assert.Len(t, ids, count)
}

func TestGenerate_Format(t *testing.T) {
	for _, prefix := range []string{AttemptPrefix, SweepPrefix, "custom"} {
		t.Run(prefix, func(t *testing.T) {
			id, err := Generate(prefix)
			require.NoError(t, err)

			require.True(t, strings.HasPrefix(id, prefix+"-"))
			body := strings.TrimPrefix(id, prefix+"-")
			assert.Len(t, body, size)

			for _, char := range body {
				assert.True(t, strings.ContainsRune(alphabet, char),
					"character %c should come from the readable alphabet", char)
			}
		})
	}
}

func TestAttempt_Prefix(t *testing.T) {
	id := Attempt()
	assert.True(t, strings.HasPrefix(id, "mv-"))
	assert.Len(t, id, len("mv-")+size)
}

func BenchmarkAttempt(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Attempt()
	}
}
