package store

import "strings"

const maxSlugLen = 50

// Slugify derives a URL-safe identifier from a human name: lowercase,
// runs of non-alphanumeric characters collapsed to a single hyphen,
// leading/trailing hyphens trimmed, truncated to 50 characters.
// Deterministic and idempotent; collisions are resolved by the caller
// appending a numeric suffix.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return slug
}
