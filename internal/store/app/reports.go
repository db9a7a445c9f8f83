package app

import (
	"context"

	"github.com/jcmexdev/storefront/internal/store/domain"
	"github.com/jcmexdev/storefront/internal/store/ports"
)

// Report is the full read-only projection printed by the report job.
type Report struct {
	Stats           domain.Stats
	UserSpend       []domain.UserSpend
	ProductSales    []domain.ProductSales
	Inventory       []domain.InventoryStatus
	MultiLineOrders []domain.MultiLineOrder
}

type Reports struct {
	repo ports.ReportRepository
}

func NewReports(repo ports.ReportRepository) *Reports {
	return &Reports{repo: repo}
}

func (r *Reports) UserSpend(ctx context.Context) ([]domain.UserSpend, error) {
	return r.repo.UserSpend(ctx)
}

func (r *Reports) ProductSales(ctx context.Context) ([]domain.ProductSales, error) {
	return r.repo.ProductSales(ctx)
}

func (r *Reports) Inventory(ctx context.Context) ([]domain.InventoryStatus, error) {
	return r.repo.Inventory(ctx)
}

func (r *Reports) MultiLineOrders(ctx context.Context) ([]domain.MultiLineOrder, error) {
	return r.repo.MultiLineOrders(ctx)
}

func (r *Reports) Stats(ctx context.Context) (domain.Stats, error) {
	return r.repo.Stats(ctx)
}

// Build collects every projection.
func (r *Reports) Build(ctx context.Context) (Report, error) {
	var (
		rep Report
		err error
	)
	if rep.Stats, err = r.repo.Stats(ctx); err != nil {
		return Report{}, err
	}
	if rep.UserSpend, err = r.repo.UserSpend(ctx); err != nil {
		return Report{}, err
	}
	if rep.ProductSales, err = r.repo.ProductSales(ctx); err != nil {
		return Report{}, err
	}
	if rep.Inventory, err = r.repo.Inventory(ctx); err != nil {
		return Report{}, err
	}
	if rep.MultiLineOrders, err = r.repo.MultiLineOrders(ctx); err != nil {
		return Report{}, err
	}
	return rep, nil
}
