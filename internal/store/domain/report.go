package domain

import "github.com/shopspring/decimal"

type UserSpend struct {
	UserID     string
	Username   string
	OrderCount int
	TotalSpent decimal.Decimal
}

type ProductSales struct {
	ProductID      string
	ProductName    string
	TotalUnitsSold int
	OrderCount     int
}

type InventoryStatus struct {
	ProductID   string
	ProductName string
	Stock       int
	UnitsSold   int
}

type MultiLineOrder struct {
	OrderID     string
	Username    string
	LineCount   int
	TotalAmount decimal.Decimal
}

type Stats struct {
	Users             int
	Products          int
	Orders            int
	OrderLines        int
	AverageOrderValue decimal.Decimal
}
