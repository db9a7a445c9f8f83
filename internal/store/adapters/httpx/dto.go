package httpx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/storefront/internal/store/app"
	"github.com/jcmexdev/storefront/internal/store/domain"
)

// Money travels as a fixed two-decimal string. Requests accept either a
// JSON string or a number.

type CreateProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (r UpdateProductRequest) patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
	}
}

type ProductResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	InStock     bool   `json:"in_stock"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       formatMoney(p.Price),
		Stock:       p.Stock,
		InStock:     p.InStock(),
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

type CreateOrderRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status,omitempty"`
}

type AddLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type OrderResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Reference   string         `json:"reference,omitempty"`
	Status      string         `json:"status"`
	TotalAmount string         `json:"total_amount"`
	CreatedAt   string         `json:"created_at"`
	Lines       []LineResponse `json:"lines"`
}

type LineResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Quantity    int    `json:"quantity"`
	PriceAtTime string `json:"price_at_time"`
	Subtotal    string `json:"subtotal"`
}

type TotalResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount string `json:"total_amount"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	lines := make([]LineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, toLineResponse(l))
	}
	return OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Reference:   o.Reference,
		Status:      string(o.Status),
		TotalAmount: formatMoney(o.TotalAmount),
		CreatedAt:   formatTime(o.CreatedAt),
		Lines:       lines,
	}
}

func toLineResponse(l domain.OrderLine) LineResponse {
	return LineResponse{
		ID:          l.ID,
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		PriceAtTime: formatMoney(l.PriceAtTime),
		Subtotal:    formatMoney(l.Subtotal()),
	}
}

type UserSpendResponse struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	OrderCount int    `json:"order_count"`
	TotalSpent string `json:"total_spent"`
}

type ProductSalesResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	TotalUnitsSold int    `json:"total_units_sold"`
	OrderCount     int    `json:"order_count"`
}

type InventoryResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
	UnitsSold   int    `json:"units_sold"`
}

type MultiLineOrderResponse struct {
	OrderID     string `json:"order_id"`
	Username    string `json:"username"`
	LineCount   int    `json:"line_count"`
	TotalAmount string `json:"total_amount"`
}

type StatsResponse struct {
	Users             int    `json:"users"`
	Products          int    `json:"products"`
	Orders            int    `json:"orders"`
	OrderLines        int    `json:"order_lines"`
	AverageOrderValue string `json:"average_order_value"`
}

// ReportResponse is the combined report, in the same shapes the /reports
// endpoints return.
type ReportResponse struct {
	Stats           StatsResponse            `json:"stats"`
	UserSpend       []UserSpendResponse      `json:"user_spend"`
	ProductSales    []ProductSalesResponse   `json:"product_sales"`
	Inventory       []InventoryResponse      `json:"inventory"`
	MultiLineOrders []MultiLineOrderResponse `json:"multi_line_orders"`
}

func NewReportResponse(r app.Report) ReportResponse {
	return ReportResponse{
		Stats:           toStatsResponse(r.Stats),
		UserSpend:       toUserSpendResponses(r.UserSpend),
		ProductSales:    toProductSalesResponses(r.ProductSales),
		Inventory:       toInventoryResponses(r.Inventory),
		MultiLineOrders: toMultiLineOrderResponses(r.MultiLineOrders),
	}
}

func toUserSpendResponses(rows []domain.UserSpend) []UserSpendResponse {
	resp := make([]UserSpendResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, UserSpendResponse{
			UserID:     row.UserID,
			Username:   row.Username,
			OrderCount: row.OrderCount,
			TotalSpent: formatMoney(row.TotalSpent),
		})
	}
	return resp
}

func toProductSalesResponses(rows []domain.ProductSales) []ProductSalesResponse {
	resp := make([]ProductSalesResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, ProductSalesResponse(row))
	}
	return resp
}

func toInventoryResponses(rows []domain.InventoryStatus) []InventoryResponse {
	resp := make([]InventoryResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, InventoryResponse(row))
	}
	return resp
}

func toMultiLineOrderResponses(rows []domain.MultiLineOrder) []MultiLineOrderResponse {
	resp := make([]MultiLineOrderResponse, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, MultiLineOrderResponse{
			OrderID:     row.OrderID,
			Username:    row.Username,
			LineCount:   row.LineCount,
			TotalAmount: formatMoney(row.TotalAmount),
		})
	}
	return resp
}

func toStatsResponse(s domain.Stats) StatsResponse {
	return StatsResponse{
		Users:             s.Users,
		Products:          s.Products,
		Orders:            s.Orders,
		OrderLines:        s.OrderLines,
		AverageOrderValue: formatMoney(s.AverageOrderValue),
	}
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
