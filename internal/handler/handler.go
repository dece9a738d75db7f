package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/cardcore/billing-service/internal/engine"
	"github.com/cardcore/billing-service/internal/models"
	"github.com/cardcore/billing-service/internal/repository"
	"github.com/cardcore/billing-service/internal/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes attaches the billing endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	r.HandleFunc("/accounts/{accountID}/entries", h.RecordEntry).Methods("POST")
	r.HandleFunc("/accounts/{accountID}/cycles", h.GenerateCycle).Methods("POST")
	r.HandleFunc("/accounts/{accountID}/cycles", h.ListCycles).Methods("GET")
	r.HandleFunc("/accounts/{accountID}/cycles/close", h.CloseOpenCycle).Methods("POST")
	r.HandleFunc("/accounts/{accountID}/cycles/{cycleID}/interest", h.InterestBreakdown).Methods("GET")
	r.HandleFunc("/accounts/{accountID}/cycles/{cycleID}/payments", h.ApplyPayment).Methods("POST")
	r.HandleFunc("/accounts/{accountID}/payoff", h.ProjectPayoff).Methods("POST")
}

type createAccountRequest struct {
	UserID         uuid.UUID          `json:"user_id"`
	CreditLimit    decimal.Decimal    `json:"credit_limit"`
	APR            decimal.Decimal    `json:"apr"`
	CycleAnchorDay int                `json:"cycle_anchor_day"`
	Fees           models.FeeSchedule `json:"fees"`
	StatementEmail string             `json:"statement_email"`
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.svc.CreateAccount(r.Context(), service.CreateAccountInput{
		UserID:         req.UserID,
		CreditLimit:    req.CreditLimit,
		APR:            req.APR,
		CycleAnchorDay: req.CycleAnchorDay,
		Fees:           req.Fees,
		StatementEmail: req.StatementEmail,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

type recordEntryRequest struct {
	Kind        models.EntryKind `json:"kind"`
	Amount      decimal.Decimal  `json:"amount"`
	Description string           `json:"description"`
	Foreign     bool             `json:"foreign"`
	PostedAt    string           `json:"posted_at"`
}

// RecordEntry posts a ledger entry against an account.
func (h *Handler) RecordEntry(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	var req recordEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	postedAt, err := parseDate(req.PostedAt, time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid posted_at date", http.StatusBadRequest)
		return
	}

	entry, err := h.svc.RecordEntry(r.Context(), accountID, req.Kind, req.Amount, req.Description, req.Foreign, postedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type generateCycleRequest struct {
	ReferenceDate string `json:"reference_date"`
}

// GenerateCycle creates the account's next billing cycle.
func (h *Handler) GenerateCycle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	// Body is optional; an empty body means "now".
	var req generateCycleRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	reference, err := parseDate(req.ReferenceDate, time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid reference_date", http.StatusBadRequest)
		return
	}

	cycle, err := h.svc.GenerateCycle(r.Context(), accountID, reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

// CloseOpenCycle closes the account's open cycle once matured.
func (h *Handler) CloseOpenCycle(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	cycle, err := h.svc.CloseOpenCycle(r.Context(), accountID, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// ListCycles returns the account's cycle history.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	cycles, err := h.svc.GetCycles(r.Context(), accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycles)
}

// InterestBreakdown returns the interest math for a closed cycle.
func (h *Handler) InterestBreakdown(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	cycleID, ok := pathID(w, r, "cycleID")
	if !ok {
		return
	}
	result, err := h.svc.GetInterestBreakdown(r.Context(), accountID, cycleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type applyPaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	PostedAt string          `json:"posted_at"`
}

// ApplyPayment applies a payment against a statement.
func (h *Handler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	cycleID, ok := pathID(w, r, "cycleID")
	if !ok {
		return
	}
	var req applyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	postedAt, err := parseDate(req.PostedAt, time.Now().UTC())
	if err != nil {
		http.Error(w, "invalid posted_at date", http.StatusBadRequest)
		return
	}

	cycle, err := h.svc.ApplyPayment(r.Context(), accountID, cycleID, req.Amount, postedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// ProjectPayoff runs a payoff projection for the account's current balance.
func (h *Handler) ProjectPayoff(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	var strategy models.PaymentStrategy
	if err := json.NewDecoder(r.Body).Decode(&strategy); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	analysis, err := h.svc.ProjectPayoff(r.Context(), accountID, strategy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts RFC 3339 timestamps or plain dates; empty input falls
// back to the given default.
func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP statuses: validation problems are
// 400, missing rows 404, lifecycle conflicts 409.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var invalidTransition *engine.InvalidCycleTransitionError
	var concurrent *engine.ConcurrentCycleMutationError
	switch {
	case engine.IsConfiguration(err), engine.IsMalformedLedger(err):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrCycleAlreadyOpen),
		errors.As(err, &invalidTransition),
		errors.As(err, &concurrent):
		status = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
