package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func TestParseExpenseInput(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantField string
	}{
		{name: "valid", body: `{"description":"Coffee","amount":2.5,"category":"Food"}`},
		{name: "leading whitespace", body: "  \n{\"description\":\"Coffee\",\"amount\":\"2.5\",\"category\":\"Food\"}"},
		{name: "empty body", body: "", wantErr: ErrMalformedBody},
		{name: "array", body: `[{"description":"x"}]`, wantErr: ErrMalformedBody},
		{name: "truncated", body: `{"description":"x"`, wantErr: ErrMalformedBody},
		{name: "wrong description type", body: `{"description":5}`, wantErr: ErrMalformedBody},
		{name: "numeric date", body: `{"description":"x","amount":1,"category":"c","date":5}`, wantField: "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			in, err := ParseExpenseInput(r)

			switch {
			case tt.wantField != "":
				var verr *core.ValidationError
				if !errors.As(err, &verr) || verr.Field != tt.wantField {
					t.Fatalf("error = %v, want ValidationError on %s", err, tt.wantField)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if in.Description == nil || *in.Description != "Coffee" {
					t.Errorf("description not decoded: %+v", in)
				}
			}
		})
	}
}

func TestParseExpenseInput_TooLarge(t *testing.T) {
	body := `{"description":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(body))

	if _, err := ParseExpenseInput(r); !errors.Is(err, ErrMalformedBody) {
		t.Fatalf("error = %v, want ErrMalformedBody", err)
	}
}
