package middleware

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer abc")
	h.Set("X-Api-Key", "k")
	h.Set("User-Agent", "bot\r\nInjected: yes")
	h.Set("X-Long", strings.Repeat("a", 500))

	out := SanitizeHeaders(h)
	assert.Equal(t, []string{"<redacted>"}, out["Authorization"])
	assert.Equal(t, []string{"<redacted>"}, out["X-Api-Key"])
	assert.NotContains(t, out["User-Agent"][0], "\n")
	assert.Len(t, out["X-Long"][0], 200)
	assert.Nil(t, SanitizeHeaders(nil))
}

func TestSanitizePath(t *testing.T) {
	assert.Equal(t, "/api/v1/warnings/u1", SanitizePath("/api/v1/warnings/u1?token=abc"))
	assert.Equal(t, "/a b", SanitizePath("/a\nb"))
}
