// Package template renders notification text from {{placeholder}} templates
// used by the email and webhook channels.
package template

import (
	"fmt"
	"regexp"
)

var (
	// placeholderPattern matches {{placeholder_name}} with optional whitespace.
	placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	// validNamePattern validates placeholder names.
	validNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Render replaces {{name}} placeholders with the provided values. An
// undefined placeholder is an error so a misconfigured template fails loudly
// instead of leaking raw braces into user-visible text.
func Render(text string, vars map[string]string) (string, error) {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	for _, match := range matches {
		name := match[1]
		if _, ok := vars[name]; !ok {
			return "", fmt.Errorf("undefined placeholder: {{%s}}", name)
		}
	}

	result := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		submatches := placeholderPattern.FindStringSubmatch(match)
		if len(submatches) != 2 {
			return match
		}
		return vars[submatches[1]]
	})
	return result, nil
}

// Validate checks that every placeholder in text is among the allowed names.
// Used at configuration load time so template errors surface before the
// first send.
func Validate(text string, allowed []string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		if !validNamePattern.MatchString(name) {
			return fmt.Errorf("invalid placeholder name: %s", name)
		}
		allowedSet[name] = struct{}{}
	}

	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := allowedSet[match[1]]; !ok {
			return fmt.Errorf("unknown placeholder: {{%s}}", match[1])
		}
	}
	return nil
}

// ExtractPlaceholders returns all unique placeholder names in order of
// first appearance.
func ExtractPlaceholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool)
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		if len(m) == 2 && !seen[m[1]] {
			names = append(names, m[1])
			seen[m[1]] = true
		}
	}
	return names
}
