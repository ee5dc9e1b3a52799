package masking

import (
	"net/url"
	"strings"
)

const maskToken = "****"

// SensitiveKeys are metadata keys whose values never reach the audit trail in clear.
var SensitiveKeys = []string{"receipt_url", "renter_email", "renter_phone"}

// MaskSecret redacts a value while keeping the last four characters.
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

// MaskURL keeps scheme and host, drops query and fragment, and masks the path.
func MaskURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return MaskSecret(trimmed)
	}
	masked := parsed.Scheme + "://" + parsed.Host
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		masked += "/" + MaskSecret(path)
	}
	return masked
}

// MaskFields returns a copy of metadata with the named keys masked.
// Nested maps and slices are walked so a key is masked wherever it appears.
func MaskFields(metadata map[string]any, keys ...string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	if len(keys) == 0 {
		keys = SensitiveKeys
	}
	sensitive := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		sensitive[strings.ToLower(strings.TrimSpace(key))] = struct{}{}
	}
	return maskMap(metadata, sensitive)
}

func maskMap(input map[string]any, sensitive map[string]struct{}) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := sensitive[strings.ToLower(trimmedKey)]; ok {
			out[trimmedKey] = maskValue(value)
			continue
		}
		out[trimmedKey] = walk(value, sensitive)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func walk(value any, sensitive map[string]struct{}) any {
	switch cast := value.(type) {
	case map[string]any:
		return maskMap(cast, sensitive)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, walk(item, sensitive))
		}
		return out
	default:
		return value
	}
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		if strings.Contains(cast, "://") {
			return MaskURL(cast)
		}
		return MaskSecret(cast)
	case *string:
		if cast == nil {
			return nil
		}
		return maskValue(*cast)
	case nil:
		return nil
	default:
		return maskToken
	}
}
