package scanner

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

func redactValue(value, mode string) string {
	switch mode {
	case "hash":
		sum := sha256.Sum256([]byte(value))
		return fmt.Sprintf("%x", sum[:])
	case "mask":
		if len(value) <= 4 {
			return "****"
		}
		return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
	default:
		return value
	}
}

// redactPassword replaces the value after the first PASSWORD= in a
// normalized line, up to the next ';' or the end of the line.
func redactPassword(normalized, mode string) string {
	if mode == "" {
		return normalized
	}
	const key = "PASSWORD="
	idx := strings.Index(normalized, key)
	if idx < 0 {
		return normalized
	}
	start := idx + len(key)
	end := len(normalized)
	if semi := strings.IndexByte(normalized[start:], ';'); semi >= 0 {
		end = start + semi
	}
	if start == end {
		return normalized
	}
	return normalized[:start] + redactValue(normalized[start:end], mode) + normalized[end:]
}
