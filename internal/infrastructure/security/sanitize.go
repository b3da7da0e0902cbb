package security

import "strings"

// SanitizeKey strips '$' from a document field path so a user-derived key
// segment cannot smuggle an update operator. Dots are kept because they
// separate path segments, but a segment that is all dots collapses to
// nothing.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "$", "")
	if strings.Trim(key, ".") == "" {
		return ""
	}
	return key
}

// SanitizeKeys applies SanitizeKey to every key of a field map, dropping
// entries whose key sanitizes to empty.
func SanitizeKeys(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))
	for key, value := range fields {
		if clean := SanitizeKey(key); clean != "" {
			sanitized[clean] = value
		}
	}
	return sanitized
}
