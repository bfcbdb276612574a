package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a sale was settled.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCard        PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMobileMoney, PaymentCard:
		return true
	}
	return false
}

// SaleItem is one line of a sale. Name and unit price are snapshots taken at
// checkout time so the sale stays accurate if the product changes later.
type SaleItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Sale is an immutable, completed transaction. TotalAmount always equals the
// sum of its line totals.
type Sale struct {
	ID            string          `json:"id"`
	Items         []SaleItem      `json:"items"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CashierID     string          `json:"cashierId"`
	CashierName   string          `json:"cashierName"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	PaymentRef    string          `json:"paymentRef,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// ItemTotal returns the sum of the sale's line totals.
func (s *Sale) ItemTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// BestSeller is one row of the best-sellers report: per-product quantity and
// revenue aggregated across all sales.
type BestSeller struct {
	ProductName  string          `json:"productName"`
	QuantitySold int             `json:"quantitySold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// SaleRepository defines data access for the append-only sales ledger.
// There is deliberately no update or delete.
type SaleRepository interface {
	Record(sale *Sale) error
	GetByID(id string) (*Sale, error)
	List() ([]*Sale, error)
}
