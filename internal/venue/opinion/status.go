package opinion

import (
	"strings"

	"github.com/crossvenue/opinion-arb/pkg/types"
)

// Opinion reports order status either as a small integer or as one of two
// parallel string vocabularies (status and status_enum). Everything is
// normalized here so the core only ever sees the closed set.

// numericStatuses is the integer vocabulary used by older API responses.
var numericStatuses = map[int]types.OrderStatus{
	0: types.StatusUnknown,
	1: types.StatusPending,
	2: types.StatusFilled,
	3: types.StatusCancelled,
	4: types.StatusPartial,
}

// NormalizeStatusInt maps the integer vocabulary.
func NormalizeStatusInt(code int) types.OrderStatus {
	if s, ok := numericStatuses[code]; ok {
		return s
	}
	return types.StatusUnknown
}

// NormalizeStatusString maps both string vocabularies.
func NormalizeStatusString(raw string) types.OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "open", "new", "live":
		return types.StatusPending
	case "partial", "partially_filled":
		return types.StatusPartial
	case "filled", "finished", "completed", "done", "success", "closed", "executed", "matched":
		return types.StatusFilled
	case "cancelled", "canceled", "rejected", "expired", "failed", "cancel":
		return types.StatusCancelled
	case "cancelinprogress", "cancel_in_progress", "cancelling", "canceling":
		return types.StatusCancelInProgress
	default:
		return types.StatusUnknown
	}
}

// orderStatusFields is the wire shape carrying a status in any of the
// observed encodings. StatusEnum wins over the raw field when present.
type orderStatusFields struct {
	Status     any    `json:"status"`
	StatusEnum string `json:"status_enum"`
	StatusText string `json:"status_text"`
}

// normalize resolves the status fields into the closed set.
func (f *orderStatusFields) normalize() types.OrderStatus {
	if f.StatusEnum != "" {
		return NormalizeStatusString(f.StatusEnum)
	}
	if f.StatusText != "" {
		return NormalizeStatusString(f.StatusText)
	}

	switch v := f.Status.(type) {
	case string:
		return NormalizeStatusString(v)
	case float64:
		// JSON numbers decode as float64
		return NormalizeStatusInt(int(v))
	default:
		return types.StatusUnknown
	}
}
