package orders

import (
	"time"

	"github.com/alexms1504/trade-assistant/market"
)

// Record statuses. A record is written once per submission attempt and
// never mutated; later fills and cancels live in the active map, not here.
const (
	RecordSubmitted = "SUBMITTED"
	RecordRejected  = "REJECTED"
	RecordFailed    = "FAILED"
)

// OrderRecord is one append-only history entry: what was asked for, what
// legs came back, and how the attempt ended.
type OrderRecord struct {
	ID        string
	Timestamp time.Time
	Symbol    string
	Direction market.Direction
	OrderType market.OrderType
	Quantity  int

	Entry       float64
	Stop        float64
	TakeProfits []float64

	LegIDs []int64
	Status string
	Detail string
}
