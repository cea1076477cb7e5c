// Package prompt provides ${var} expansion for the stage prompt templates.
package prompt

import (
	"fmt"
	"regexp"
)

// bracePattern matches ${varname} - varname can contain alphanumeric and
// underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Expand replaces ${var} placeholders in s with the corresponding values
// from vars. Unknown placeholders are kept as-is, so a typoed variable is
// visible in the rendered prompt instead of silently disappearing.
//
// Example:
//
//	prompt.Expand("Explain ${topic} in ${language}.", map[string]any{
//	    "topic":    "paracetamol",
//	    "language": "English",
//	})
func Expand(s string, vars map[string]any) string {
	if s == "" {
		return ""
	}
	return bracePattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		return match
	})
}
