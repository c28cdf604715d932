// Package mcp implements the tool surface (C10): stateless MCP tools that
// each map to one core operation, returning the uniform envelope
// {ok, data?, error_code?, message?, suggestion?}.
package mcp

import (
	"context"
	"errors"

	ragerrors "github.com/localrag/ragengine/internal/errors"
)

// Envelope is the uniform response shape every tool returns.
type Envelope struct {
	OK         bool   `json:"ok"`
	Data       any    `json:"data,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Ok wraps a successful result.
func Ok(data any) Envelope {
	return Envelope{OK: true, Data: data}
}

// Fail converts any error into a failed envelope. A *ragerrors.RagError
// contributes its category as error_code (an IntegrityError its drift kind
// instead) and its suggestion verbatim; a context deadline or cancellation
// is reported as a TimeoutError; anything else is an internal error.
func Fail(err error) Envelope {
	if err == nil {
		return Envelope{OK: true}
	}

	var ragErr *ragerrors.RagError
	if errors.As(err, &ragErr) {
		code := string(ragErr.Category)
		if ragErr.Integrity != "" {
			code = string(ragErr.Integrity)
		}
		return Envelope{
			OK:         false,
			ErrorCode:  code,
			Message:    ragErr.Message,
			Suggestion: ragErr.Suggestion,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Envelope{OK: false, ErrorCode: string(ragerrors.CategoryTimeout), Message: err.Error()}
	}

	return Envelope{OK: false, ErrorCode: "InternalError", Message: err.Error()}
}

// FailWith builds a failed envelope directly, for validation errors raised
// at the tool boundary before a core operation runs.
func FailWith(code, message, suggestion string) Envelope {
	return Envelope{OK: false, ErrorCode: code, Message: message, Suggestion: suggestion}
}
