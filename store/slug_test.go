package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "desk", "desk"},
		{"spaces and punctuation", "My Cool Job!!", "my-cool-job"},
		{"collapses runs", "a  --  b", "a-b"},
		{"trims edges", "  hello  ", "hello"},
		{"digits kept", "report 2024", "report-2024"},
		{"unicode dropped", "café search", "caf-search"},
		{"empty", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	once := Slugify("My Cool Job!!")
	assert.Equal(t, once, Slugify(once))
}

func TestSlugifyTruncates(t *testing.T) {
	long := strings.Repeat("abc ", 40)
	slug := Slugify(long)

	assert.LessOrEqual(t, len(slug), 50)
	assert.False(t, strings.HasSuffix(slug, "-"))
}
