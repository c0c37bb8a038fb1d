package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = []string{"password", "secret", "token", "hash"}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return MaskSecret(email)
	}
	return email[:1] + maskToken + email[at:]
}

// Redact returns a copy of input where values under sensitive keys are
// masked. Nested maps and slices are walked.
func Redact(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}

	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if isSensitive(trimmedKey) {
			out[trimmedKey] = maskValue(value)
			continue
		}
		out[trimmedKey] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch cast := value.(type) {
	case map[string]any:
		return Redact(cast)
	case []any:
		items := make([]any, 0, len(cast))
		for _, item := range cast {
			items = append(items, redactValue(item))
		}
		return items
	default:
		return value
	}
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case map[string]any:
		masked := make(map[string]any, len(cast))
		for k, v := range cast {
			masked[k] = maskValue(v)
		}
		return masked
	case []any:
		items := make([]any, 0, len(cast))
		for _, item := range cast {
			items = append(items, maskValue(item))
		}
		return items
	default:
		return maskToken
	}
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
