package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gladysonss/opensheets-app-sub000/internal/core"
	"github.com/gladysonss/opensheets-app-sub000/internal/ledger"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body createTransactionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := s.createRequest(r.Context(), user, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.ledger.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) createRequest(ctx context.Context, user string, body createTransactionRequest) (ledger.CreateRequest, error) {
	req := ledger.CreateRequest{
		UserID:           user,
		Name:             sanitizeInput(body.Name),
		InstallmentCount: body.InstallmentCount,
		RecurrenceCount:  body.RecurrenceCount,
		CategoryID:       sanitizeInput(body.CategoryID),
		PayerID:          sanitizeInput(body.PayerID),
		AccountID:        sanitizeInput(body.AccountID),
		CardID:           sanitizeInput(body.CardID),
		Note:             sanitizeInput(body.Note),
	}

	var err error
	if req.AmountCents, err = parseAmount("amount", body.Amount); err != nil {
		return req, err
	}
	if req.Type, err = core.ParseTransactionType(body.Type); err != nil {
		return req, err
	}
	if req.Condition, err = core.ParseCondition(body.Condition); err != nil {
		return req, err
	}
	if req.PaymentMethod, err = core.ParsePaymentMethod(body.PaymentMethod); err != nil {
		return req, err
	}
	if req.PurchaseDate, err = parseDate("purchase date", body.PurchaseDate); err != nil {
		return req, err
	}
	if req.DueDate, err = parseDate("due date", body.DueDate); err != nil {
		return req, err
	}
	if sanitizeInput(body.Period) != "" {
		if req.Period, err = parsePeriod(body.Period); err != nil {
			return req, err
		}
	}

	if req.CategoryID == "" && sanitizeInput(body.Category) != "" {
		ref, err := s.ledger.ResolveReference(ctx, user, core.RefCategory, sanitizeInput(body.Category))
		if errors.Is(err, core.ErrNotFound) {
			return req, core.Validationf("unknown category %q", body.Category)
		}
		if err != nil {
			return req, err
		}
		req.CategoryID = ref.ID
	}
	return req, nil
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body transferRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req := ledger.TransferRequest{
		UserID:        user,
		Name:          sanitizeInput(body.Name),
		FromAccountID: sanitizeInput(body.FromAccountID),
		ToAccountID:   sanitizeInput(body.ToAccountID),
		Note:          sanitizeInput(body.Note),
	}
	if req.AmountCents, err = parseAmount("amount", body.Amount); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Date, err = parseDate("date", body.Date); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.ledger.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	inst, err := s.ledger.Instance(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toInstanceJSON(inst)).Write(w)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body editRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	changes := ledger.FieldChanges{
		Name:       optionalString(body.Name),
		CategoryID: optionalString(body.CategoryID),
		PayerID:    optionalString(body.PayerID),
		AccountID:  optionalString(body.AccountID),
		CardID:     optionalString(body.CardID),
		Note:       optionalString(body.Note),
	}
	if body.Amount != nil {
		cents, err := parseAmount("amount", *body.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		changes.AmountCents = &cents
	}
	if body.DueDate != nil {
		due, err := parseDate("due date", *body.DueDate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if due.IsEmpty() {
			writeError(w, r, core.Validation("due date cannot be cleared"))
			return
		}
		changes.DueDate = &due
	}

	out, err := s.ledger.Edit(r.Context(), user, r.PathValue("id"), scope, changes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.ledger.Delete(r.Context(), user, r.PathValue("id"), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) handleAffected(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	scope, err := parseScope(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := s.ledger.Affected(r.Context(), user, r.PathValue("id"), scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body settlementRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, r, err)
			return
		}
	}
	out, err := s.ledger.SetSettled(r.Context(), user, r.PathValue("id"), body.Settled)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toOutcomeJSON(out)).Write(w)
}

func (s *Server) handleGetSeries(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.ledger.Series(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toInstancesJSON(items)).Write(w)
}

func (s *Server) handleEligible(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.ledger.Eligible(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toInstancesJSON(items)).Write(w)
}

func (s *Server) handleAnticipate(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body anticipationRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	req := ledger.AnticipationRequest{
		UserID:      user,
		SeriesID:    r.PathValue("id"),
		SelectedIDs: body.InstallmentIDs,
		Name:        sanitizeInput(body.Name),
		CategoryID:  sanitizeInput(body.CategoryID),
		PayerID:     sanitizeInput(body.PayerID),
		Note:        sanitizeInput(body.Note),
	}
	if req.TargetPeriod, err = parsePeriod(body.TargetPeriod); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DiscountCents, err = parseDiscount(body.Discount); err != nil {
		writeError(w, r, err)
		return
	}
	if req.PurchaseDate, err = parseDate("purchase date", body.PurchaseDate); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.ledger.Anticipate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(anticipationOutcomeJSON{
		outcomeJSON: toOutcomeJSON(out.Outcome),
		Record:      toAnticipationJSON(out.Record),
	}).Write(w)
}

func (s *Server) handleAnticipationHistory(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.ledger.History(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]anticipationJSON, len(records))
	for i, rec := range records {
		out[i] = toAnticipationJSON(rec)
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := parsePeriod(r.PathValue("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.ledger.Summary(r.Context(), user, period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(toSummaryJSON(sum)).Write(w)
}

// handleEnsureReference returns the named reference, creating it when the
// user has none with that name.
func (s *Server) handleEnsureReference(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body referenceRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	kind, err := core.ParseReferenceKind(body.Kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.ledger.EnsureReference(r.Context(), user, kind, sanitizeInput(body.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(referenceJSON{ID: ref.ID, Kind: string(ref.Kind), Name: ref.Name}).Write(w)
}

// handleResolveReference looks a reference up by kind and name.
func (s *Server) handleResolveReference(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	kind, err := core.ParseReferenceKind(q.Get("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.ledger.ResolveReference(r.Context(), user, kind, sanitizeInput(q.Get("name")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(referenceJSON{ID: ref.ID, Kind: string(ref.Kind), Name: ref.Name}).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(map[string]string{"status": "unavailable"}).Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
