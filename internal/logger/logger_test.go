package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"access_token", "eyJhbGciOi.abc.def",
		"email", "test@example.com",
		"auth_user_id", "foo",
		"path", "/api/tasks",
	})
	require.Len(t, out, 8)
	assert.Equal(t, "[REDACTED]", out[1])
	assert.Equal(t, "[REDACTED]", out[3])
	assert.Contains(t, out[5], "hash:")
	assert.NotEqual(t, "foo", out[5])
	assert.Equal(t, "/api/tasks", out[7])
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"status", 200, "dangling"})
	assert.Equal(t, []interface{}{"status", 200, "dangling"}, out)
}

func TestHashValueIsStable(t *testing.T) {
	assert.Equal(t, hashValue("foo"), hashValue("foo"))
	assert.NotEqual(t, hashValue("foo"), hashValue("bar"))
	assert.Equal(t, "", hashValue(""))
}
