package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"ledger.com/internal/application/usecase"
	"ledger.com/internal/domain/entity"
	"ledger.com/internal/infrastructure/logger"
	"ledger.com/internal/infrastructure/payload"
)

const maxBodyBytes = 1 << 20

// Handler holds HTTP handlers and their dependencies
type Handler struct {
	addAccountUseCase      *usecase.AddAccountUseCase
	listAccountsUseCase    *usecase.ListAccountsUseCase
	addJournalUseCase      *usecase.AddJournalUseCase
	getJournalUseCase      *usecase.GetJournalUseCase
	getTrialBalanceUseCase *usecase.GetTrialBalanceUseCase
	logger                 logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	addAccountUseCase *usecase.AddAccountUseCase,
	listAccountsUseCase *usecase.ListAccountsUseCase,
	addJournalUseCase *usecase.AddJournalUseCase,
	getJournalUseCase *usecase.GetJournalUseCase,
	getTrialBalanceUseCase *usecase.GetTrialBalanceUseCase,
	logger logger.Logger,
) *Handler {
	return &Handler{
		addAccountUseCase:      addAccountUseCase,
		listAccountsUseCase:    listAccountsUseCase,
		addJournalUseCase:      addJournalUseCase,
		getJournalUseCase:      getJournalUseCase,
		getTrialBalanceUseCase: getTrialBalanceUseCase,
		logger:                 logger,
	}
}

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Line    *int   `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Attempt string `json:"attempt,omitempty"`
	Debit   string `json:"debit,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

type createdResponse struct {
	ID uuid.UUID `json:"id"`
}

// HandleAddAccount handles POST /accounts
func (h *Handler) HandleAddAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestLogger := loggerFrom(ctx, h.logger)

	input, err := payload.DecodeAccount(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		requestLogger.LogWarning(ctx, "Invalid account payload", "error", err.Error())
		h.writeError(w, r, err)
		return
	}

	id, err := h.addAccountUseCase.Execute(ctx, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, createdResponse{ID: id})
}

// HandleListAccounts handles GET /accounts
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.listAccountsUseCase.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, accounts)
}

// HandleAddJournal handles POST /journals
func (h *Handler) HandleAddJournal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestLogger := loggerFrom(ctx, h.logger)

	input, err := payload.DecodeJournal(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		requestLogger.LogWarning(ctx, "Invalid journal payload", "error", err.Error())
		h.writeError(w, r, err)
		return
	}

	id, err := h.addJournalUseCase.Execute(ctx, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, createdResponse{ID: id})
}

// HandleListJournals handles GET /journals
func (h *Handler) HandleListJournals(w http.ResponseWriter, r *http.Request) {
	journals, err := h.getJournalUseCase.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, journals)
}

// HandleGetJournal handles GET /journals/{id}
func (h *Handler) HandleGetJournal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "journal id must be a UUID", Code: "invalid_journal"})
		return
	}

	journal, err := h.getJournalUseCase.Execute(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, journal)
}

// HandleTrialBalance handles GET /trial-balance
func (h *Handler) HandleTrialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.getTrialBalanceUseCase.Execute(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, tb)
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// SetupRoutes sets up all HTTP routes
func (h *Handler) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.HandleAddAccount)
		r.Get("/", h.HandleListAccounts)
	})
	r.Route("/journals", func(r chi.Router) {
		r.Post("/", h.HandleAddJournal)
		r.Get("/", h.HandleListJournals)
		r.Get("/{id}", h.HandleGetJournal)
	})
	r.Get("/trial-balance", h.HandleTrialBalance)

	return r
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		loggerFrom(r.Context(), h.logger).LogError(r.Context(), "Failed to encode response", err)
	}
}

// writeError maps a domain error onto its status code and body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorToResponse(err)
	if status >= http.StatusInternalServerError {
		loggerFrom(r.Context(), h.logger).LogError(r.Context(), "Request failed", err)
	}
	h.writeJSON(w, r, status, resp)
}

func errorToResponse(err error) (int, errorResponse) {
	resp := errorResponse{Error: err.Error()}

	var lineErr *entity.LineError
	var unbalanced *entity.UnbalancedJournalError
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &lineErr):
		resp.Code = "invalid_line"
		resp.Line = &lineErr.Index
		resp.Field = lineErr.Field
		return http.StatusBadRequest, resp
	case errors.As(err, &maxBytes):
		resp.Code = "payload_too_large"
		return http.StatusRequestEntityTooLarge, resp
	case errors.Is(err, entity.ErrInvalidLine):
		resp.Code = "invalid_line"
		return http.StatusBadRequest, resp
	case errors.Is(err, entity.ErrInvalidAccount):
		resp.Code = "invalid_account"
		return http.StatusBadRequest, resp
	case errors.Is(err, entity.ErrInvalidJournal):
		resp.Code = "invalid_journal"
		return http.StatusBadRequest, resp
	case errors.Is(err, entity.ErrDuplicateAccountNumber):
		resp.Code = "duplicate_account_number"
		return http.StatusConflict, resp
	case errors.Is(err, entity.ErrUnknownAccount):
		resp.Code = "unknown_account"
		return http.StatusUnprocessableEntity, resp
	case errors.As(err, &unbalanced):
		resp.Code = "unbalanced_journal"
		resp.Attempt = unbalanced.Attempt.String()
		resp.Debit = unbalanced.Debit.String()
		resp.Credit = unbalanced.Credit.String()
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, entity.ErrUnbalancedJournal):
		resp.Code = "unbalanced_journal"
		return http.StatusUnprocessableEntity, resp
	case errors.Is(err, entity.ErrJournalNotFound):
		resp.Code = "journal_not_found"
		return http.StatusNotFound, resp
	case errors.Is(err, entity.ErrStorageUnavailable):
		resp.Error = "ledger store unavailable"
		resp.Code = "storage_unavailable"
		return http.StatusServiceUnavailable, resp
	}

	resp.Error = "internal error"
	resp.Code = "internal"
	return http.StatusInternalServerError, resp
}
