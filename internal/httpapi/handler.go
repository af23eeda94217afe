package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dipesh-m12/QVuew-Backend/internal/engine"
	"github.com/dipesh-m12/QVuew-Backend/internal/identity"
	"github.com/dipesh-m12/QVuew-Backend/internal/metrics"
	"github.com/dipesh-m12/QVuew-Backend/internal/model"
)

// Handler is the HTTP surface over an engine.Interface, one method per
// spec §6 endpoint.
type Handler struct {
	engine   engine.Interface
	resolver identity.Resolver
	logger   *slog.Logger
	metrics  *metrics.HTTPMetrics
}

func NewHandler(e engine.Interface, resolver identity.Resolver, logger *slog.Logger, m *metrics.HTTPMetrics) *Handler {
	return &Handler{engine: e, resolver: resolver, logger: logger, metrics: m}
}

// RegisterRoutes wires every endpoint onto mux, each wrapped with
// authentication and observability middleware, grounded on
// gateway/http_handler.go's registerRoute.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, withObservability(h.logger, h.metrics, withAuth(h.resolver, fn)))
	}

	route("POST /api/queue/enqueue", h.handleEnqueue)
	route("POST /api/queue/action", h.handleAction)
	route("POST /api/queue/restructure", h.handleRestructure)
	route("POST /api/queue/break", h.handleSetBreak)
	route("POST /api/queue/resume", h.handleResumeBreak)
	route("POST /api/queue/rating", h.handleUpdateRating)

	route("GET /api/helpers/{helperID}/queue", h.handleHelperQueue)
	route("GET /api/helpers/{helperID}/recent-actions", h.handleRecentHelperActions)
	route("GET /api/businesses/{businessID}/wait-times", h.handleHelperWaitTimes)

	route("GET /api/users/{userID}/history", h.handleUserQueueHistory)
	route("GET /api/businesses/{businessID}/history", h.handleBusinessQueueHistory)

	route("POST /api/businesses/{businessID}/manual-customers", h.handleAddManualCustomer)
	route("GET /api/businesses/{businessID}/manual-customers", h.handleSearchManualCustomers)
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var dto enqueueRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	entries, err := h.engine.Enqueue(r.Context(), dto.toEngine(principal))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "enqueued", entries)
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var dto actionRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	entry, err := h.engine.ApplyAction(r.Context(), dto.toEngine(principal))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "action applied", entry)
}

func (h *Handler) handleRestructure(w http.ResponseWriter, r *http.Request) {
	var dto restructureRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	result, err := h.engine.Restructure(r.Context(), dto.BusinessID, dto.From, dto.To)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "restructured", result)
}

func (h *Handler) handleSetBreak(w http.ResponseWriter, r *http.Request) {
	var dto breakRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if err := h.engine.SetBreak(r.Context(), dto.BusinessID, dto.HelperID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "break set", nil)
}

func (h *Handler) handleResumeBreak(w http.ResponseWriter, r *http.Request) {
	var dto breakRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	if err := h.engine.ResumeBreak(r.Context(), dto.BusinessID, dto.HelperID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "break resumed", nil)
}

func (h *Handler) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r.Context())
	var dto updateRatingRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	entry, err := h.engine.UpdateRating(r.Context(), dto.EntryID, dto.Rating, dto.Notes, principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "rating recorded", entry)
}

func (h *Handler) handleHelperQueue(w http.ResponseWriter, r *http.Request) {
	helperID := r.PathValue("helperID")
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	view, err := h.engine.HelperQueue(r.Context(), helperID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "helper queue", view)
}

func (h *Handler) handleRecentHelperActions(w http.ResponseWriter, r *http.Request) {
	helperID := r.PathValue("helperID")
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, model.InvalidArgument(err, "limit must be an integer"))
			return
		}
		limit = n
	}
	actions, err := h.engine.RecentHelperActions(r.Context(), helperID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "recent actions", actions)
}

func (h *Handler) handleHelperWaitTimes(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessID")
	view, err := h.engine.HelperWaitTimes(r.Context(), businessID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "wait times", view)
}

func (h *Handler) handleUserQueueHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	entries, err := h.engine.UserQueueHistory(r.Context(), userID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "user history", entries)
}

func (h *Handler) handleBusinessQueueHistory(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessID")
	helperID := r.URL.Query().Get("helperId")
	from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}
	entries, err := h.engine.BusinessQueueHistory(r.Context(), businessID, helperID, from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "business history", entries)
}

func (h *Handler) handleAddManualCustomer(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessID")
	var dto addManualCustomerRequestDTO
	if !decodeJSON(w, r, &dto) {
		return
	}
	customer, err := h.engine.AddManualCustomer(r.Context(), businessID, dto.Name, dto.Phone, model.Gender(dto.Gender))
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "manual customer added", customer)
}

func (h *Handler) handleSearchManualCustomers(w http.ResponseWriter, r *http.Request) {
	businessID := r.PathValue("businessID")
	name := r.URL.Query().Get("name")
	phone := r.URL.Query().Get("phone")
	customers, err := h.engine.SearchManualCustomers(r.Context(), businessID, name, phone)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "manual customers", customers)
}

// parseWindow reads the from/to RFC3339 query parameters every windowed
// projection endpoint takes.
func parseWindow(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	var err error
	if fromStr != "" {
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			writeError(w, model.InvalidArgument(err, "from must be an RFC3339 timestamp"))
			return
		}
	}
	if toStr != "" {
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			writeError(w, model.InvalidArgument(err, "to must be an RFC3339 timestamp"))
			return
		}
	} else {
		to = time.Now().Add(24 * time.Hour)
	}
	return from, to, true
}
