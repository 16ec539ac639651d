package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsMatcher(t *testing.T) {
	matcher := ContainsMatcher{}

	cases := []struct {
		name       string
		technician []string
		required   []string
		want       bool
	}{
		{"no requirements matches anyone", nil, nil, true},
		{"no requirements matches skill-less", nil, []string{}, true},
		{"exact", []string{"electrical"}, []string{"electrical"}, true},
		{"technician skill contains requirement", []string{"compressor repair"}, []string{"compressor"}, true},
		{"requirement contains technician skill", []string{"compressor"}, []string{"compressor repair"}, true},
		{"unrelated", []string{"electrical"}, []string{"compressor"}, false},
		{"skill-less technician with requirements", nil, []string{"compressor"}, false},
		{"any requirement suffices", []string{"welding"}, []string{"compressor", "weld"}, true},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matcher.Matches(tt.technician, tt.required))
		})
	}
}

func TestExactMatcher(t *testing.T) {
	matcher := ExactMatcher{}

	assert.True(t, matcher.Matches([]string{"compressor"}, []string{"compressor"}))
	assert.False(t, matcher.Matches([]string{"compressor repair"}, []string{"compressor"}))
	assert.True(t, matcher.Matches([]string{"anything"}, nil))
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{" Compressor Repair ", "", "AC"})
	assert.Equal(t, []string{"compressor repair", "ac"}, got)
}
