package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for every amount.
const MoneyScale = 2

var (
	minPrice = decimal.New(1, -MoneyScale)
	// MaxPrice caps a single unit price.
	MaxPrice = decimal.New(99_999_999_999, -MoneyScale)
	// MaxAmount is the largest amount that fits the stored integer cents.
	MaxAmount = decimal.New(math.MaxInt64, -MoneyScale)
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InStock is informational only; placing an order never changes Stock.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductPatch carries the optional fields of a catalog edit. Nil fields are
// left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
}

func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if err := ValidatePrice(p.Price); err != nil {
		return err
	}
	if p.Stock < 0 {
		return invalid("stock", "must be zero or greater")
	}
	return nil
}

func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return invalid("price", "must be positive")
	}
	if price.LessThan(minPrice) {
		return invalid("price", "must be at least 0.01")
	}
	if price.GreaterThan(MaxPrice) {
		return invalid("price", "must be at most "+MaxPrice.StringFixed(MoneyScale))
	}
	if !price.Equal(price.Truncate(MoneyScale)) {
		return invalid("price", "must have at most two decimal places")
	}
	return nil
}

// ValidateAmount rejects amounts that cannot be stored exactly in cents.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if amount.Abs().GreaterThan(MaxAmount) {
		return invalid(field, "must be within ±"+MaxAmount.StringFixed(MoneyScale))
	}
	return nil
}

// RoundMoney rounds half away from zero to MoneyScale places. For the
// non-negative amounts handled here that is round-half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}
