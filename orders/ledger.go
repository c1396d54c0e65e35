package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alexms1504/trade-assistant/broker"
	"github.com/alexms1504/trade-assistant/market"
)

var ErrOrderNotFound = errors.New("order not found")

// TrackedOrder is the ledger's view of one submitted leg.
type TrackedOrder struct {
	ID       int64
	Symbol   string
	Role     broker.Role
	Action   market.Direction
	Quantity int
	OCAGroup string
	Status   broker.Status
}

// Ledger tracks active legs and keeps the append-only submission history.
//
// The active map is written by the submission and cancellation paths and
// read by status/listing paths; a single mutex covers both. The reference
// behavior assumes at most one submission in flight per ledger, but the
// lock makes concurrent callers safe anyway.
type Ledger struct {
	mu      sync.Mutex
	gw      broker.Gateway
	active  map[int64]*TrackedOrder
	history []OrderRecord
	log     zerolog.Logger
}

func NewLedger(gw broker.Gateway, log zerolog.Logger) *Ledger {
	return &Ledger{
		gw:     gw,
		active: make(map[int64]*TrackedOrder),
		log:    log,
	}
}

// Track registers a submitted leg in the active map.
func (l *Ledger) Track(o TrackedOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := o
	l.active[o.ID] = &rec
}

// UpdateStatus records the last known gateway status for a leg.
func (l *Ledger) UpdateStatus(orderID int64, status broker.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.active[orderID]; ok {
		o.Status = status
	}
}

// Status returns the last known status of a tracked leg.
func (l *Ledger) Status(orderID int64) (broker.Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.active[orderID]
	if !ok {
		return broker.StatusUnknown, fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}
	return o.Status, nil
}

// Cancel forwards a cancel request to the gateway. Cancellation is a
// request, not a guarantee: the gateway confirms asynchronously, so the
// caller must re-poll Status afterwards.
func (l *Ledger) Cancel(ctx context.Context, orderID int64) error {
	l.mu.Lock()
	_, ok := l.active[orderID]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrOrderNotFound, orderID)
	}

	if !l.gw.Connected() {
		return broker.ErrNotConnected
	}
	if err := l.gw.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}

	l.log.Info().Int64("order_id", orderID).Msg("cancel request sent")
	return nil
}

// Refresh re-polls the gateway for every active leg's status.
func (l *Ledger) Refresh(ctx context.Context) error {
	if !l.gw.Connected() {
		return broker.ErrNotConnected
	}

	l.mu.Lock()
	ids := make([]int64, 0, len(l.active))
	for id := range l.active {
		ids = append(ids, id)
	}
	l.mu.Unlock()

	for _, id := range ids {
		st, err := l.gw.OrderStatus(ctx, id)
		if err != nil {
			l.log.Warn().Int64("order_id", id).Err(err).Msg("status poll failed")
			continue
		}
		l.UpdateStatus(id, st)
	}
	return nil
}

// Active returns the tracked legs that are still working: anything not yet
// Filled, Cancelled or Inactive.
func (l *Ledger) Active() []TrackedOrder {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]TrackedOrder, 0, len(l.active))
	for _, o := range l.active {
		if o.Status.Terminal() {
			continue
		}
		out = append(out, *o)
	}
	return out
}

// PurgeCompleted drops terminal legs from the active map. History is
// untouched. Returns the number of legs removed.
func (l *Ledger) PurgeCompleted() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for id, o := range l.active {
		if o.Status.Terminal() {
			delete(l.active, id)
			removed++
		}
	}
	if removed > 0 {
		l.log.Info().Int("removed", removed).Msg("purged completed orders")
	}
	return removed
}

// Append adds one record to the submission history.
func (l *Ledger) Append(rec OrderRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, rec)
}

// History returns a copy of the append-only submission history.
func (l *Ledger) History() []OrderRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]OrderRecord(nil), l.history...)
}
