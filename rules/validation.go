package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength       = 200
	maxExpressionLength = 4096
	maxIdentifierLength = 100
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateRule checks the fields of a rule before it is compiled.
func ValidateRule(r *Rule) error {
	if r == nil {
		return fmt.Errorf("rule is required")
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("rule name length %d exceeds maximum of %d characters", len(name), maxNameLength)
	}

	expr := strings.TrimSpace(r.Expression)
	if expr == "" {
		return fmt.Errorf("rule expression cannot be empty")
	}
	if len(expr) > maxExpressionLength {
		return fmt.Errorf("rule expression length %d exceeds maximum of %d characters", len(expr), maxExpressionLength)
	}

	return nil
}

// ValidateIdentifier checks that name is usable as a CEL map key selector
// (answers.<name>): 1-100 characters matching ^[a-zA-Z_][a-zA-Z0-9_]*$ and
// not a reserved word.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$ (start with letter or underscore, followed by letters, digits, or underscores)")
	}
	if isReservedKeyword(name) {
		return fmt.Errorf("cannot use reserved keyword %q as identifier", name)
	}
	return nil
}

// isReservedKeyword reports CEL reserved words.
func isReservedKeyword(name string) bool {
	switch name {
	case "true", "false", "null",
		"if", "else", "for", "while", "break", "continue", "return",
		"var", "let", "const", "function",
		"in", "as", "import", "package", "namespace", "loop", "void":
		return true
	}
	return false
}
