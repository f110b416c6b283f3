package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/reckless-spender/internal/api/middleware"
	"github.com/dvloznov/reckless-spender/internal/archive"
	"github.com/dvloznov/reckless-spender/internal/jobs"
	"github.com/dvloznov/reckless-spender/internal/store"
)

const welcomeMessage = "Welcome to Reckless Spender API"

// Deps are the collaborators of the HTTP API. Archive, Publisher and
// JobStore are optional.
type Deps struct {
	Store     store.Store
	Importer  jobs.Importer
	Archive   archive.Archive
	Publisher jobs.Publisher
	JobStore  jobs.JobStore
	Log       zerolog.Logger
}

// NewRouter registers every endpoint on a new ServeMux.
func NewRouter(d Deps) *http.ServeMux {
	upload := NewUploadHandler(d.Importer, d.Archive, d.Publisher, d.Log)
	transactions := NewTransactionsHandler(d.Store, d.Log)
	categories := NewCategoriesHandler(d.Store, d.Log)
	accounts := NewAccountsHandler(d.Store, d.Log)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /upload/ofx", upload.UploadOFX)

	mux.HandleFunc("GET /transactions", transactions.ListTransactions)
	mux.HandleFunc("GET /transactions/{$}", transactions.ListTransactions)
	mux.HandleFunc("PUT /transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		transactions.UpdateTransaction(w, r, r.PathValue("id"))
	})

	mux.HandleFunc("GET /categories", categories.ListCategories)
	mux.HandleFunc("GET /categories/{$}", categories.ListCategories)

	mux.HandleFunc("GET /accounts", accounts.ListAccounts)
	mux.HandleFunc("GET /accounts/{$}", accounts.ListAccounts)

	if d.JobStore != nil {
		jobsHandler := NewJobsHandler(d.JobStore, d.Log)
		mux.HandleFunc("GET /jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			jobsHandler.GetJob(w, r, r.PathValue("id"))
		})
	}

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
	})

	return mux
}

// Wrap applies the standard middleware chain around h.
func Wrap(h http.Handler, log zerolog.Logger, allowedOrigins []string) http.Handler {
	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(allowedOrigins)(h),
			),
		),
	)
}
