package usecase

import (
	"fmt"
	"strings"

	"github.com/avacare/server/domain/entities"
)

// expressionContext formats an expression label as an isolated annotation
// fragment, stripping the decorative suffix first. Empty labels produce no
// fragment.
func expressionContext(label string) string {
	token := entities.ExpressionToken(label)
	if token == "" {
		return ""
	}
	return fmt.Sprintf("\n[User Expression: %s]", token)
}

// BuildContext merges retrieved memory fragments and the expression label
// into a single prompt context: memory first, then expression, separated by a
// blank line. Both absent yields an empty context.
func BuildContext(fragments []string, expressionLabel string) string {
	var parts []string

	if len(fragments) > 0 {
		parts = append(parts, "Previous conversation context:\n"+strings.Join(fragments, "\n"))
	}
	if expr := expressionContext(expressionLabel); expr != "" {
		parts = append(parts, "Current expression: "+expr)
	}

	return strings.Join(parts, "\n\n")
}

// BuildPrompt prefixes the assembled context to the transcript. An empty
// context means the prompt is exactly the raw transcript.
func BuildPrompt(context, transcript string) string {
	if context == "" {
		return transcript
	}
	return fmt.Sprintf("%s\n\nUser: %s", context, transcript)
}
