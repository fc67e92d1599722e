package core

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for Expense.Date.
const DateLayout = "2006-01-02"

type (
	// Expense is a single recorded monetary outlay. ID is generated at
	// creation and is the only stable key; Description is free text and may
	// repeat.
	Expense struct {
		ID          string  `json:"id" bson:"id"`
		Description string  `json:"description" bson:"description"`
		Amount      float64 `json:"amount" bson:"amount"`
		Category    string  `json:"category" bson:"category"`
		Date        string  `json:"date" bson:"date"`
	}

	// ExpenseInput is the create payload as received from clients. Amount
	// is kept raw so both JSON numbers and numeric strings are accepted.
	ExpenseInput struct {
		Description *string         `json:"description"`
		Amount      json.RawMessage `json:"amount"`
		Category    *string         `json:"category"`
		Date        *string         `json:"date,omitempty"`
	}
)

var (
	ErrEmptyDescription = errors.New("description is required")
	ErrMissingAmount    = errors.New("amount is required")
	ErrInvalidAmount    = errors.New("amount must be a number")
	ErrEmptyCategory    = errors.New("category is required")
	ErrInvalidDate      = errors.New("date must be a string")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// Today formats t as an ISO date in t's location.
func Today(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseAmount coerces a raw JSON value to a float. Numbers and strings
// holding a number are accepted; NaN and infinities are not, since they
// cannot be written back as JSON.
func ParseAmount(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, ErrMissingAmount
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal([]byte(s), &str); err != nil {
			return 0, ErrInvalidAmount
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// Expense validates the input and builds the entity. An absent or blank
// date becomes today; any other date is kept as sent. The returned expense
// has no ID yet.
func (in ExpenseInput) Expense(today string) (Expense, error) {
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		return Expense{}, invalid("description", ErrEmptyDescription)
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expense{}, invalid("amount", err)
	}
	if in.Category == nil || strings.TrimSpace(*in.Category) == "" {
		return Expense{}, invalid("category", ErrEmptyCategory)
	}

	date := today
	if in.Date != nil && strings.TrimSpace(*in.Date) != "" {
		date = *in.Date
	}

	return Expense{
		Description: *in.Description,
		Amount:      amount,
		Category:    *in.Category,
		Date:        date,
	}, nil
}

// UnmarshalJSON rejects a non-string date with a ValidationError instead of
// a generic decode error.
func (in *ExpenseInput) UnmarshalJSON(data []byte) error {
	type plain struct {
		Description *string         `json:"description"`
		Amount      json.RawMessage `json:"amount"`
		Category    *string         `json:"category"`
		Date        json.RawMessage `json:"date,omitempty"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	in.Description = p.Description
	in.Amount = p.Amount
	in.Category = p.Category
	in.Date = nil

	if d := strings.TrimSpace(string(p.Date)); d != "" && d != "null" {
		var s string
		if err := json.Unmarshal(p.Date, &s); err != nil {
			return invalid("date", ErrInvalidDate)
		}
		in.Date = &s
	}
	return nil
}
