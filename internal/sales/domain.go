package sales

import (
	"errors"
	"time"
)

// Transaction is a committed point-of-sale order. OrderNumber is unique and
// follows CODE-YYYYMMDD-NNNN where CODE is the outlet code and NNNN restarts
// at 0001 each day per outlet. ExternalRef is a UUID derived from the order
// number for receipt lookups and downstream integrations.
type Transaction struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	ExternalRef   string            `json:"external_ref"`
	OutletID      int64             `json:"outlet_id"`
	EmployeeID    int64             `json:"employee_id"`
	CustomerID    *int64            `json:"customer_id,omitempty"`
	LevelID       *int64            `json:"level_id,omitempty"`
	ShiftID       *int64            `json:"shift_id,omitempty"`
	PaymentMethod string            `json:"payment_method"`
	Subtotal      float64           `json:"subtotal"`
	Tax           float64           `json:"tax"`
	Discount      float64           `json:"discount"`
	Total         float64           `json:"total"`
	CashReceived  float64           `json:"cash_received,omitempty"`
	Change        float64           `json:"change,omitempty"`
	PointsEarned  int64             `json:"points_earned"`
	Note          string            `json:"note,omitempty"`
	Items         []TransactionItem `json:"items,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// TransactionItem is one captured order line. Name, UnitPrice and UnitCost
// are snapshots taken at commit time so later catalog edits never rewrite
// history.
type TransactionItem struct {
	ID            int64   `json:"id"`
	TransactionID int64   `json:"transaction_id"`
	Kind          string  `json:"kind"`
	RefID         int64   `json:"ref_id"`
	Name          string  `json:"name"`
	Qty           float64 `json:"qty"`
	UnitPrice     float64 `json:"unit_price"`
	UnitCost      float64 `json:"unit_cost"`
	LineTotal     float64 `json:"line_total"`
}

// Item kinds.
const (
	KindProduct = "product"
	KindBundle  = "bundle"
)

// Payment methods accepted at the register.
const (
	PayCash     = "cash"
	PayQRIS     = "qris"
	PayTransfer = "transfer"
	PayCard     = "card"
)

var (
	// ErrInsufficientStock indicates a sale would drive a tracked stock
	// quantity below zero while negative stock is disallowed.
	ErrInsufficientStock = errors.New("sales: insufficient stock")
	// ErrOrderNumberExhausted indicates every bounded retry to claim a unique
	// order number collided. Practically unreachable with the counter scheme,
	// kept as a hard stop against livelock.
	ErrOrderNumberExhausted = errors.New("sales: could not assign a unique order number")
)
