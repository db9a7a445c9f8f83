package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string
	UserID      string
	Reference   string
	Status      OrderStatus
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Lines       []OrderLine
}

// OrderLine is one product/quantity/price snapshot inside an order.
// PriceAtTime is fixed when the line is created; only Quantity may change.
type OrderLine struct {
	ID          string
	OrderID     string
	ProductID   string
	Quantity    int
	PriceAtTime decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewLine snapshots the product's current price.
func NewLine(id, orderID string, product Product, quantity int) (OrderLine, error) {
	if err := ValidateQuantity(quantity); err != nil {
		return OrderLine{}, err
	}
	return OrderLine{
		ID:          id,
		OrderID:     orderID,
		ProductID:   product.ID,
		Quantity:    quantity,
		PriceAtTime: product.Price,
	}, nil
}

// MaxQuantity caps the quantity of a single line.
const MaxQuantity = 1_000_000

func ValidateQuantity(quantity int) error {
	if quantity < 1 {
		return invalid("quantity", "must be at least 1")
	}
	if quantity > MaxQuantity {
		return invalid("quantity", "must be at most "+strconv.Itoa(MaxQuantity))
	}
	return nil
}

// LineFor returns the line holding productID, if any.
func (o *Order) LineFor(productID string) (OrderLine, bool) {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return OrderLine{}, false
}

// CalculateTotal sums the stored line subtotals. It never looks at live
// product prices.
func CalculateTotal(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return RoundMoney(total)
}

// RecalculateTotal refreshes the cached TotalAmount from the current lines.
func (o *Order) RecalculateTotal() decimal.Decimal {
	o.TotalAmount = CalculateTotal(o.Lines)
	return o.TotalAmount
}
