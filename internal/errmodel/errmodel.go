// Package errmodel defines the compact, categorized errors shared by the agent
// loop, the gateways and the HTTP boundary.
package errmodel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Category values for compact errors.
const (
	CategoryConfig     = "config"
	CategoryValidation = "validation"
	CategoryTool       = "tool"
	CategoryModel      = "model"
	CategorySystem     = "system"
)

// Error is the compact error payload used across package boundaries.
type Error struct {
	Category string         `json:"category"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Context  map[string]any `json:"context,omitempty"`
	cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// New constructs a new compact error.
func New(category, code, message string, ctx map[string]any, cause error) *Error {
	ce := &Error{Category: category, Code: code, Message: truncate(message, 512), cause: cause}
	if len(ctx) > 0 {
		ce.Context = truncateContext(ctx)
	}
	return ce
}

// From converts any error into a compact Error. A wrapped *Error is returned as-is.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Category: CategorySystem, Code: "internal", Message: truncate(err.Error(), 512), cause: err}
}

func Config(code, message string) *Error {
	return New(CategoryConfig, code, message, nil, nil)
}

func Validation(code, message string, ctx map[string]any) *Error {
	return New(CategoryValidation, code, message, ctx, nil)
}

func Model(code, message string, cause error) *Error {
	return New(CategoryModel, code, message, nil, cause)
}

func Tool(code, message string, ctx map[string]any, cause error) *Error {
	return New(CategoryTool, code, message, ctx, cause)
}

func System(code, message string, cause error) *Error {
	return New(CategorySystem, code, message, nil, cause)
}

// HTTPStatus maps category/code to HTTP status.
func HTTPStatus(e *Error) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	switch e.Category {
	case CategoryValidation:
		if e.Code == "bad_request" {
			return http.StatusBadRequest
		}
		// The model asked for something the registry rejects: an upstream fault.
		return http.StatusBadGateway
	case CategoryTool, CategoryModel:
		return http.StatusBadGateway
	case CategoryConfig, CategorySystem:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// IsCategory checks if err belongs to a specific category.
func IsCategory(err error, category string) bool {
	ce := From(err)
	return ce != nil && strings.EqualFold(ce.Category, category)
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// truncateContext trims long values so errors stay loggable.
func truncateContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch t := v.(type) {
		case string:
			out[k] = truncate(t, 256)
		default:
			b, err := json.Marshal(t)
			if err == nil && len(b) > 0 {
				out[k] = truncate(string(b), 256)
			} else {
				out[k] = t
			}
		}
	}
	return out
}
