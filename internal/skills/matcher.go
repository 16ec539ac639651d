// Package skills implements the technician skill matching policy used by
// auto-dispatch. The default policy is deliberately fuzzy: skill tags come
// from free-form data entry ("compressor" vs "compressor repair"), so a
// technician skill and a required skill match when either contains the other
// after normalization.
package skills

import "strings"

type Matcher interface {
	// Matches reports whether a technician with the given skills satisfies
	// at least one of the required skills. An empty requirement list matches
	// every technician. Both sides are expected normalized.
	Matches(technicianSkills, requiredSkills []string) bool
}

// Normalize lower-cases and trims a skill tag.
func Normalize(skill string) string {
	return strings.ToLower(strings.TrimSpace(skill))
}

// NormalizeAll normalizes every tag and drops empties.
func NormalizeAll(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if normalized := Normalize(tag); normalized != "" {
			out = append(out, normalized)
		}
	}
	return out
}

// ContainsMatcher matches on substring containment in either direction.
type ContainsMatcher struct{}

func (ContainsMatcher) Matches(technicianSkills, requiredSkills []string) bool {
	if len(requiredSkills) == 0 {
		return true
	}
	for _, required := range requiredSkills {
		for _, skill := range technicianSkills {
			if strings.Contains(skill, required) || strings.Contains(required, skill) {
				return true
			}
		}
	}
	return false
}

// ExactMatcher requires an exact tag match; drop-in replacement for
// deployments with a curated skill taxonomy.
type ExactMatcher struct{}

func (ExactMatcher) Matches(technicianSkills, requiredSkills []string) bool {
	if len(requiredSkills) == 0 {
		return true
	}
	for _, required := range requiredSkills {
		for _, skill := range technicianSkills {
			if skill == required {
				return true
			}
		}
	}
	return false
}
