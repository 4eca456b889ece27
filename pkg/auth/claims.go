package auth

import (
	"strings"
)

// claimString gets a string value at a dot-separated path.
func claimString(claims map[string]any, path string) string {
	if s, ok := claimValue(claims, path).(string); ok {
		return s
	}
	return ""
}

// claimStrings gets a string slice at a dot-separated path.
func claimStrings(claims map[string]any, path string) []string {
	switch arr := claimValue(claims, path).(type) {
	case []any:
		result := make([]string, 0, len(arr))
		for _, v := range arr {
			if s, ok := v.(string); ok {
				result = append(result, s)
			}
		}
		return result
	case []string:
		return arr
	}
	return nil
}

// claimValue gets a value at a dot-separated path.
func claimValue(claims map[string]any, path string) any {
	if path == "" {
		return nil
	}

	var current any = claims
	for part := range strings.SplitSeq(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}
