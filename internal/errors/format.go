package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message, including the
// suggestion when present.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	re, ok := err.(*RagError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(re.Message)
	sb.WriteString("\n")

	if re.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(re.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", re.Category))
	return sb.String()
}

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	re, ok := err.(*RagError)
	if !ok {
		re = Wrap(CategorySearch, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", re.Message))
	if re.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", re.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Category: %s\n", re.Category))
	return sb.String()
}

// jsonError is the JSON representation of an error, also the shape of the
// tool surface's error half of the {ok, data|error_code, message,
// suggestion} envelope.
type jsonError struct {
	Category   string            `json:"error_code"`
	Message    string            `json:"message"`
	Severity   string            `json:"severity,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns the JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	re, ok := err.(*RagError)
	if !ok {
		re = Wrap(CategorySearch, err)
	}

	je := jsonError{
		Category:   string(re.Category),
		Message:    re.Message,
		Severity:   string(re.Severity),
		Details:    re.Details,
		Suggestion: re.Suggestion,
		Retryable:  re.Retryable,
	}
	if re.Integrity != "" {
		je.Category = string(re.Category) + ":" + string(re.Integrity)
	}
	if re.Cause != nil {
		je.Cause = re.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog formats an error as slog-friendly key-value attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	re, ok := err.(*RagError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_category": string(re.Category),
		"message":        re.Message,
		"severity":       string(re.Severity),
		"retryable":      re.Retryable,
	}
	if re.Integrity != "" {
		result["integrity_kind"] = string(re.Integrity)
	}
	if re.Cause != nil {
		result["cause"] = re.Cause.Error()
	}
	if re.Suggestion != "" {
		result["suggestion"] = re.Suggestion
	}
	for k, v := range re.Details {
		result["detail_"+k] = v
	}
	return result
}
