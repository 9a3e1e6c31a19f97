package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"smeaudit/internal/app"
	"smeaudit/internal/events"
)

// Options carries the server settings the handlers need.
type Options struct {
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins string
	MaxBodyBytes   int64

	UploadDir       string
	MaxFileBytes    int64
	MaxFiles        int
	UploadRetention time.Duration

	// Metrics records per-route request counts and latency. Nil disables it.
	Metrics *HTTPMetrics
	// MetricsHandler serves /metrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler
	// KafkaMetricsHandler serves /metrics/kafka when the event clients are enabled.
	KafkaMetricsHandler http.Handler
}

// Handler holds the domain services, the chat service and the chi router.
type Handler struct {
	svc       *app.Services
	chat      *app.ChatService
	publisher events.Publisher
	logger    *zap.Logger
	router    chi.Router

	jwtSecret    string
	tokenTTL     time.Duration
	uploadDir    string
	maxFileBytes int64
	maxFiles     int
	retention    time.Duration
	now          func() time.Time
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc *app.Services, chatSvc *app.ChatService, publisher events.Publisher, opts Options, logger *zap.Logger) *Handler {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{
		svc:          svc,
		chat:         chatSvc,
		publisher:    publisher,
		logger:       logger,
		jwtSecret:    opts.JWTSecret,
		tokenTTL:     opts.TokenTTL,
		uploadDir:    opts.UploadDir,
		maxFileBytes: opts.MaxFileBytes,
		maxFiles:     opts.MaxFiles,
		retention:    opts.UploadRetention,
		now:          time.Now,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(logger))
	r.Use(Recoverer(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(CORS(opts.AllowedOrigins))

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}
	if opts.KafkaMetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics/kafka", opts.KafkaMetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(RequestBodyLimit(opts.MaxBodyBytes))
			r.Post("/auth/login", h.login)
			r.Post("/auth/logout", h.logout)
		})

		// The stream carries its token in the query string.
		r.With(h.RequireStreamAuth).Get("/chat/stream", h.chatStream)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			// Multipart bodies are limited inside the handlers.
			r.Post("/documents", h.uploadDocuments)
			r.Post("/bank-transactions/import", h.importBankStatement)

			r.Group(func(r chi.Router) {
				r.Use(RequestBodyLimit(opts.MaxBodyBytes))

				r.Get("/auth/me", h.me)
				r.Get("/dashboard/stats", h.dashboardStats)

				h.partyRoutes(r, "/vendors", svc.Vendors)
				h.partyRoutes(r, "/customers", svc.Customers)
				r.Get("/skus", h.listSKUs)
				r.Post("/skus", h.createSKU)
				r.Get("/skus/{code}", h.getSKU)

				r.Get("/bank-transactions", h.listBankTransactions)
				r.Post("/bank-transactions/{id}/status", h.setBankTransactionStatus)
				r.Get("/payment-matches", h.listPaymentMatches)
				r.Post("/payment-matches", h.recordPaymentMatch)
				r.Post("/payment-matches/{id}/review", h.reviewPaymentMatch)

				r.Get("/gst-matches", h.listGSTMatches)
				r.Post("/gst-matches", h.recordGSTMatch)
				r.Get("/gst-matches/summary", h.gstSummary)
				r.Post("/gst-matches/{id}/review", h.reviewGSTMatch)

				r.Get("/po-invoice-matches", h.listPOMatches)
				r.Post("/po-invoice-matches", h.recordPOMatch)
				r.Get("/po-invoice-matches/{id}", h.getPOMatch)
				r.Post("/po-invoice-matches/{id}/review", h.reviewPOMatch)

				r.Get("/discount-terms", h.listDiscountTerms)
				r.Post("/discount-terms", h.createDiscountTerm)
				r.Get("/discount-audits", h.listDiscountAudits)
				r.Post("/discount-audits", h.recordDiscountAudit)

				r.Get("/inventory/snapshots", h.listSnapshots)
				r.Post("/inventory/snapshots", h.recordSnapshot)

				r.Get("/payment-reminders", h.listReminders)
				r.Post("/payment-reminders", h.createReminder)
				r.Post("/payment-reminders/{id}/sent", h.markReminderSent)
				r.Post("/payment-reminders/{id}/status", h.setReminderStatus)

				r.Get("/vendor-ledger/confirmations", h.listConfirmations)
				r.Post("/vendor-ledger/confirmations", h.createConfirmation)
				r.Post("/vendor-ledger/confirmations/{id}/sent", h.markConfirmationSent)
				r.Post("/vendor-ledger/confirmations/{id}/respond", h.respondConfirmation)

				r.Get("/credit-debit-notes", h.listNotes)
				r.Post("/credit-debit-notes", h.createNote)

				r.Get("/documents", h.listDocuments)
				r.Get("/documents/{id}", h.getDocument)

				r.Get("/chat/conversations", h.listConversations)
				r.Post("/chat/conversations", h.createConversation)
				r.Get("/chat/conversations/{id}", h.getConversation)
				r.Put("/chat/conversations/{id}", h.renameConversation)
				r.Delete("/chat/conversations/{id}", h.deleteConversation)
				r.Post("/chat/confirm", h.chatConfirm)

				r.Get("/tools/gstin/{gstin}", h.describeGSTIN)
				r.Post("/tools/gst", h.calculateGST)
				r.Get("/tools/financial-year", h.financialYear)
			})
		})
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health reports liveness and whether the database answers.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
	if err := h.svc.Ping(r.Context()); err != nil {
		h.logger.Warn("health check: database unreachable", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(envelope{
			Success: false,
			Data:    response{Status: "degraded", Database: "unreachable"},
			Error:   "database unreachable",
			Code:    "UNAVAILABLE",
		})
		return
	}
	writeJSON(w, http.StatusOK, response{Status: "ok", Database: "ok"})
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DashboardStats(r.Context(), authFromContext(r.Context()).CompanyID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter, writing 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		writeError(w, r, name+" must be a YYYY-MM-DD date", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &t, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeError(w, r, name+" must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

func companyID(r *http.Request) int {
	return authFromContext(r.Context()).CompanyID
}
