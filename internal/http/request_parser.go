// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"expensetracker/internal/core"
)

// maxBodyBytes caps create payloads.
const maxBodyBytes = 1 << 20

// ErrMalformedBody is returned when the request body is not a JSON object.
var ErrMalformedBody = errors.New("request body must be a JSON object")

// ParseExpenseInput decodes a create payload. A ValidationError raised while
// decoding (non-string date) is passed through unchanged so the handler can
// name the field.
func ParseExpenseInput(r *http.Request) (core.ExpenseInput, error) {
	var in core.ExpenseInput

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return in, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return in, fmt.Errorf("%w: body too large", ErrMalformedBody)
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed[0] != '{' {
		return in, ErrMalformedBody
	}

	if err := json.Unmarshal([]byte(trimmed), &in); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return in, verr
		}
		return in, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return in, nil
}
