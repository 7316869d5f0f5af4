// Package httpapi exposes the ledger service as a small JSON API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alejandrodnm/polyledger/internal/adapters/metrics"
	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Service is what the API needs from the application layer.
type Service interface {
	Venue() string
	Snapshot(ctx context.Context) (domain.PortfolioSnapshot, error)
	MarketDetails(ctx context.Context, id string) (domain.CanonicalMarket, error)
	ListMarkets(ctx context.Context, limit, offset int) ([]domain.CanonicalMarket, error)
	CheckOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderDecision, error)
	PlaceOrder(ctx context.Context, intent domain.OrderIntent) (domain.OrderDecision, domain.OrderReceipt, error)
	RecentDecisions(ctx context.Context, limit int) ([]domain.OrderDecision, error)
}

// OrderBody is the JSON body of the order endpoints. Shares and stake are
// optional; null and absent mean "not given".
type OrderBody struct {
	MarketID string               `json:"market_id"`
	Outcome  string               `json:"outcome"`
	AnswerID string               `json:"answer_id"`
	Side     string               `json:"side"`
	Price    float64              `json:"price"`
	Shares   domain.OptionalFloat `json:"shares"`
	Stake    domain.OptionalFloat `json:"stake"`
}

// Intent converts the body into a domain intent.
func (b OrderBody) Intent() (domain.OrderIntent, error) {
	side, err := domain.ParseSide(b.Side)
	if err != nil {
		return domain.OrderIntent{}, err
	}
	return domain.OrderIntent{
		MarketID:     b.MarketID,
		OutcomeLabel: b.Outcome,
		AnswerID:     b.AnswerID,
		Side:         side,
		Price:        b.Price,
		Shares:       b.Shares,
		Stake:        b.Stake,
	}, nil
}

type placeResponse struct {
	Decision domain.OrderDecision `json:"decision"`
	Receipt  domain.OrderReceipt  `json:"receipt"`
}

// NewRouter builds the chi router. m may be nil.
func NewRouter(svc Service, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if m != nil {
		r.Use(m.Middleware)
		r.Handle("/metrics", m.Handler())
	}

	h := &handler{svc: svc}
	r.Get("/healthz", h.health)
	r.Get("/portfolio", h.portfolio)
	r.Get("/markets", h.markets)
	r.Get("/markets/{id}", h.market)
	r.Post("/orders/check", h.check)
	r.Post("/orders", h.place)
	r.Get("/decisions", h.decisions)
	return r
}

type handler struct {
	svc Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "venue": h.svc.Venue()})
}

func (h *handler) portfolio(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handler) markets(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	ms, err := h.svc.ListMarkets(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if ms == nil {
		ms = []domain.CanonicalMarket{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *handler) market(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.MarketDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) check(w http.ResponseWriter, r *http.Request) {
	intent, ok := decodeIntent(w, r)
	if !ok {
		return
	}
	d, err := h.svc.CheckOrder(r.Context(), intent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *handler) place(w http.ResponseWriter, r *http.Request) {
	intent, ok := decodeIntent(w, r)
	if !ok {
		return
	}
	d, receipt, err := h.svc.PlaceOrder(r.Context(), intent)
	if err != nil {
		// rechazo del guard: 422 con la decisión completa
		if d.ID != "" && !d.Approved {
			writeJSON(w, http.StatusUnprocessableEntity, placeResponse{Decision: d})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placeResponse{Decision: d, Receipt: receipt})
}

func (h *handler) decisions(w http.ResponseWriter, r *http.Request) {
	ds, err := h.svc.RecentDecisions(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	if ds == nil {
		ds = []domain.OrderDecision{}
	}
	writeJSON(w, http.StatusOK, ds)
}

func decodeIntent(w http.ResponseWriter, r *http.Request) (domain.OrderIntent, bool) {
	var body OrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return domain.OrderIntent{}, false
	}
	intent, err := body.Intent()
	if err != nil {
		writeError(w, err)
		return domain.OrderIntent{}, false
	}
	return intent, true
}

// StatusFor maps error kinds to HTTP status codes.
func StatusFor(err error) int {
	var (
		validation *domain.ValidationError
		config     *domain.ConfigurationError
		exhausted  *domain.EndpointExhaustedError
		shape      *domain.PayloadShapeError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &config):
		return http.StatusUnprocessableEntity
	case errors.As(err, &exhausted), errors.As(err, &shape):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Warn("request failed", "status", status, "err", err)
	}
	writeMessage(w, status, err.Error())
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "err", err)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
