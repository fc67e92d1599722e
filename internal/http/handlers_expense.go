package http

import (
	"errors"
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	list, err := s.expenses.List(r.Context())
	if err != nil {
		s.logFailure(r, "List expenses failed", err, applog.OpList)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Payload(list).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	in, err := ParseExpenseInput(r)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			ValidationErrorResponse(verr).Write(w)
			return
		}
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Malformed create payload",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpValidate)
		BadRequestError(ErrMalformedBody.Error()).Write(w)
		return
	}

	e, err := s.expenses.Create(r.Context(), in)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense rejected",
				applog.FieldError, err,
				applog.FieldOperation, applog.OpValidate)
		} else {
			s.logFailure(r, "Create expense failed", err, applog.OpCreate)
		}
		ErrorFor(err).Write(w)
		return
	}

	s.metrics.expensesCreated.Inc()
	SuccessResponse(map[string]any{"id": e.ID}).Write(w)
}

// handleDeleteExpense removes at most one expense with the exact
// description in the path. A miss is still a success.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	desc := r.PathValue("description")

	deleted, err := s.expenses.DeleteByDescription(r.Context(), desc)
	if err != nil {
		s.logFailure(r, "Delete expense failed", err, applog.OpDelete)
		ErrorFor(err).Write(w)
		return
	}

	if deleted {
		s.metrics.expensesDeleted.Inc()
	}
	SuccessResponse(map[string]any{"deleted": deleted}).Write(w)
}

func (s *Server) handleDeleteExpenseByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deleted, err := s.expenses.DeleteByID(r.Context(), id)
	if err != nil {
		s.logFailure(r, "Delete expense by id failed", err, applog.OpDelete)
		ErrorFor(err).Write(w)
		return
	}
	if !deleted {
		NotFoundError("expense not found").Write(w)
		return
	}

	s.metrics.expensesDeleted.Inc()
	SuccessResponse(map[string]any{"deleted": true}).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.expenses.Stats(r.Context())
	if err != nil {
		s.logFailure(r, "Category stats failed", err, applog.OpStats)
		ErrorFor(err).Write(w)
		return
	}
	NewJSONResponse().Payload(totals).Write(w)
}

func (s *Server) logFailure(r *http.Request, msg string, err error, op string) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogError(r.Context(), msg, err, applog.ComponentStorage, op, nil)
}
