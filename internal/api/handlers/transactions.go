package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/reckless-spender/internal/api/middleware"
	"github.com/dvloznov/reckless-spender/internal/domain"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo store.TransactionRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo store.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
	}
}

// ListTransactions handles GET /transactions/
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	transactions, err := h.repo.ListTransactions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "An error occurred while fetching transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// UpdateTransaction handles PUT /transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var upd domain.TransactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := upd.Validate(); err != nil {
		if errors.Is(err, domain.ErrEmptyUpdate) {
			middleware.WriteError(w, http.StatusBadRequest, "No update data provided.")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.repo.UpdateTransaction(r.Context(), id, &upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, fmt.Sprintf("Transaction with id %s not found.", id))
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "An error occurred while updating the transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// ParseTransactionFilter reads the listing query parameters. Unset
// parameters are not filtered on.
func ParseTransactionFilter(q url.Values) (domain.TransactionFilter, error) {
	filter := domain.NewTransactionFilter()

	if v := q.Get("start_date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return filter, fmt.Errorf("Invalid start_date format, expected YYYY-MM-DD")
		}
		filter.StartDate = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return filter, fmt.Errorf("Invalid end_date format, expected YYYY-MM-DD")
		}
		filter.EndDate = &d
	}
	if v := q.Get("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := q.Get("reconciled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, fmt.Errorf("Invalid reconciled value, expected true or false")
		}
		filter.Reconciled = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("Invalid limit")
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, fmt.Errorf("Invalid offset")
		}
		filter.Offset = n
	}

	if err := filter.Validate(); err != nil {
		return filter, err
	}
	return filter, nil
}
