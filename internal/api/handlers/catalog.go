package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/reckless-spender/internal/api/middleware"
	"github.com/dvloznov/reckless-spender/internal/store"
)

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	repo store.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo store.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		repo: repo,
		log:  log,
	}
}

// ListCategories handles GET /categories/
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "An error occurred while fetching categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, categories)
}

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	repo store.AccountRepository
	log  zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(repo store.AccountRepository, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		repo: repo,
		log:  log,
	}
}

// ListAccounts handles GET /accounts/
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.repo.ListAccounts(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "An error occurred while fetching accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, accounts)
}
