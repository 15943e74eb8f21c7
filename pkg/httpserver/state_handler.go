package httpserver

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/crossvenue/opinion-arb/internal/circuitbreaker"
	"github.com/crossvenue/opinion-arb/internal/liquidity"
)

// stateHandler serves read-only JSON views of the maker order table,
// the session stats and the balance breaker.
type stateHandler struct {
	table   *liquidity.Table
	stats   *liquidity.Stats
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
}

// OrderView is one tracked maker order in the /api/orders response.
type OrderView struct {
	Key           string    `json:"key"`
	OrderID       string    `json:"order_id"`
	Question      string    `json:"question,omitempty"`
	Token         string    `json:"token"`
	Price         float64   `json:"price"`
	OrderSize     float64   `json:"order_size"`
	EffectiveSize float64   `json:"effective_size"`
	HedgeToken    string    `json:"hedge_token"`
	HedgePrice    float64   `json:"hedge_price"`
	Status        string    `json:"status"`
	Filled        float64   `json:"filled"`
	Hedged        float64   `json:"hedged"`
	ProfitRate    float64   `json:"profit_rate_pct"`
	Annualized    float64   `json:"annualized_pct"`
	Marked        bool      `json:"marked_for_removal"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OrdersResponse is the /api/orders payload.
type OrdersResponse struct {
	Active  int         `json:"active"`
	Tracked int         `json:"tracked"`
	Orders  []OrderView `json:"orders"`
}

// ErrorResponse is a JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newStateHandler(table *liquidity.Table, stats *liquidity.Stats, breaker *circuitbreaker.Breaker, logger *zap.Logger) *stateHandler {
	return &stateHandler{table: table, stats: stats, breaker: breaker, logger: logger}
}

// HandleOrders returns every tracked maker order, soft-removed ones
// included.
func (h *stateHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	states := h.table.Tracked()

	views := make([]OrderView, 0, len(states))
	for _, s := range states {
		view := OrderView{
			Key:           s.Key,
			OrderID:       s.OrderID,
			Token:         s.OpinionToken,
			Price:         s.OpinionPrice,
			OrderSize:     s.OrderSize,
			EffectiveSize: s.EffectiveSize,
			HedgeToken:    s.HedgeToken,
			HedgePrice:    s.HedgePrice,
			Status:        string(s.Status),
			Filled:        s.Filled,
			Hedged:        s.Hedged,
			ProfitRate:    s.LastProfitRate,
			Annualized:    s.LastAnnualized,
			Marked:        s.MarkedForRemoval,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		}
		if s.Match != nil {
			view.Question = s.Match.Question
		}
		views = append(views, view)
	}

	h.writeJSON(w, http.StatusOK, OrdersResponse{
		Active:  h.table.ActiveCount(),
		Tracked: len(states),
		Orders:  views,
	})
}

// HandleStats returns the session fill and hedge counters.
func (h *stateHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.stats.Snapshot())
}

// HandleBreaker returns the balance breaker status.
func (h *stateHandler) HandleBreaker(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.breaker.GetStatus())
}

func (h *stateHandler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encode-response-failed", zap.Error(err))
	}
}
