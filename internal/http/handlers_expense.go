package http

import (
	"bytes"
	"errors"
	"net/http"

	"spendchart/internal/chart"
	"spendchart/internal/core"
	"spendchart/internal/log"
	"spendchart/internal/services"
)

const (
	msgBadRequest      = "Invalid request format."
	msgUnknownCategory = "Please select a category from the list."
	msgNotFound        = "Expense not found."
	msgInternal        = "Something went wrong. Please try again."
	msgAdded           = "Expense added."
	msgRemoved         = "Expense removed."
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)

	if s.templates == nil {
		InternalServerError(msgInternal).Write(w)
		return
	}

	in, err := ParseNewExpense(r)
	if err != nil {
		logger.WarnContext(ctx, "Failed to parse expense form",
			log.FieldError, err,
			log.FieldOperation, log.OpParse)
		BadRequestError(msgBadRequest).Write(w)
		return
	}

	rec, err := s.service.AddExpense(ctx, in)
	if err != nil {
		status, msg, _ := s.classifyAddError(r, err)
		rejectResponse(status, msg).
			TriggerErrorNotification(msg).
			Write(w)
		return
	}

	e := rec.Expense
	row, err := s.renderString("expense_row", e)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to render expense row",
			log.FieldError, err,
			log.FieldExpenseID, e.ID,
			log.FieldOperation, log.OpRender)
		InternalServerError(msgInternal).Write(w)
		return
	}

	NewHTMXResponse().
		TriggerExpenseCreated(e).
		TriggerLedgerChanged(rec.Total, rec.Count).
		TriggerFormReset().
		TriggerSuccessNotification(msgAdded).
		BodyHTML(row).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := s.service.RemoveExpense(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrExpenseNotFound) {
			NotFoundError(msgNotFound).
				TriggerErrorNotification(msgNotFound).
				Write(w)
			return
		}
		s.logInternal(r, "Failed to remove expense", err)
		InternalServerError(msgInternal).Write(w)
		return
	}

	// Empty 200 so htmx swaps the row out.
	NewHTMXResponse().
		TriggerExpenseRemoved(id).
		TriggerLedgerChanged(rec.Total, rec.Count).
		TriggerNotification(NotificationInfo, msgRemoved, 3000).
		Write(w)
}

// rejectResponse renders a refused mutation as the error fragment shown
// next to the form.
func rejectResponse(status int, msg string) *HTMXResponseBuilder {
	switch status {
	case http.StatusUnprocessableEntity:
		return UnprocessableEntityError(msg)
	case http.StatusBadRequest:
		return BadRequestError(msg)
	default:
		return InternalServerError(msg)
	}
}

func (s *Server) handleTotalPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "total", s.service.Total())
}

func (s *Server) handleExpensesPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "expense_rows", s.service.Expenses())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	cfg := chart.NewLineConfig(s.service.Project(r.Context()))
	body, err := cfg.JSON()
	if err != nil {
		s.logInternal(r, "Failed to encode chart configuration", err)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

type expenseJSON struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	AmountCents int64   `json:"amount_cents"`
	Date        string  `json:"date"`
	ISODate     string  `json:"iso_date"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:          e.ID,
		Category:    e.Category,
		Amount:      e.Amount.Float64(),
		AmountCents: e.Amount.Cents,
		Date:        e.Date.Display(),
		ISODate:     e.Date.Sortable(),
	}
}

type expenseListJSON struct {
	Expenses   []expenseJSON `json:"expenses"`
	Total      string        `json:"total"`
	TotalCents int64         `json:"total_cents"`
	Count      int           `json:"count"`
	Version    uint64        `json:"version"`
}

func (s *Server) handleListExpensesAPI(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot(r.Context())
	out := expenseListJSON{
		Expenses:   make([]expenseJSON, 0, len(snap.Expenses)),
		Total:      snap.Summary.Total.String(),
		TotalCents: snap.Summary.Total.Cents,
		Count:      snap.Summary.Count,
		Version:    snap.Version,
	}
	for _, e := range snap.Expenses {
		out.Expenses = append(out.Expenses, toExpenseJSON(e))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateExpenseAPI(w http.ResponseWriter, r *http.Request) {
	in, err := ParseNewExpense(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, apiError{Error: "bad_request", Message: err.Error()})
		return
	}

	rec, err := s.service.AddExpense(r.Context(), in)
	if err != nil {
		status, msg, field := s.classifyAddError(r, err)
		writeJSON(w, r, status, apiError{Error: errorCode(status), Field: field, Message: msg})
		return
	}
	e := rec.Expense

	w.Header().Set("Location", "/api/expenses/"+e.ID)
	writeJSON(w, r, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleDeleteExpenseAPI(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.service.RemoveExpense(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrExpenseNotFound) {
			writeJSON(w, r, http.StatusNotFound, apiError{Error: "not_found", Message: msgNotFound})
			return
		}
		s.logInternal(r, "Failed to remove expense", err)
		writeJSON(w, r, http.StatusInternalServerError, apiError{Error: "internal", Message: msgInternal})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// classifyAddError maps an AddExpense failure to a status, the message shown
// to the user and the offending field.
func (s *Server) classifyAddError(r *http.Request, err error) (int, string, string) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)

	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		logger.InfoContext(ctx, "Expense rejected",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation,
			"field", ve.Field)
		return http.StatusUnprocessableEntity, ve.UserMessage(), ve.Field
	case errors.Is(err, services.ErrUnknownCategory):
		logger.InfoContext(ctx, "Expense rejected",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeValidation,
			"field", "category")
		return http.StatusBadRequest, msgUnknownCategory, "category"
	default:
		s.logInternal(r, "Failed to add expense", err)
		return http.StatusInternalServerError, msgInternal, ""
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusBadRequest:
		return "unknown_category"
	default:
		return "internal"
	}
}

func (s *Server) logInternal(r *http.Request, msg string, err error) {
	log.FromContext(r.Context()).WithComponent(log.ComponentExpense).ErrorContext(r.Context(), msg,
		log.FieldError, err,
		log.FieldErrorType, log.ErrorTypeInternal,
		log.FieldPath, r.URL.Path)
}

// render executes a named template into w, buffering so a failure can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed",
			log.FieldError, err,
			"template", name,
			log.FieldOperation, log.OpRender)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
