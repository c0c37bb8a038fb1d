package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****6789", MaskSecret("123456789"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j****@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "****", MaskEmail("bad"))
}

func TestRedactMasksSensitiveKeysOnly(t *testing.T) {
	out := Redact(map[string]any{
		"password":  "hunter22",
		"name":      "Jane",
		"amount":    100,
		"changes":   map[string]any{"password_hash": "$argon2id$v=19$abcd", "level": "L2"},
		"api_token": 42,
		"  ":        "dropped",
	})
	assert.Equal(t, "****er22", out["password"])
	assert.Equal(t, "Jane", out["name"])
	assert.Equal(t, 100, out["amount"])
	assert.Equal(t, "****", out["api_token"])
	changes := out["changes"].(map[string]any)
	assert.Equal(t, "****abcd", changes["password_hash"])
	assert.Equal(t, "L2", changes["level"])
	assert.Len(t, out, 5)
}
