package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/jcmexdev/storefront/internal/store/domain"
)

func TestOrders_WidgetScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)

	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, order.TotalAmount.IsZero())

	line, err := env.orders.AddLine(ctx, order.ID, widget.ID, 3)
	require.NoError(t, err)
	assert.True(t, money("10.00").Equal(line.PriceAtTime))

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.IsZero(), "adding a line must not recalculate")

	total, err := env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", total.StringFixed(2))

	_, err = env.catalog.Update(ctx, widget.ID, money("20.00"), 5)
	require.NoError(t, err)

	total, err = env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", total.StringFixed(2))

	p, err := env.catalog.Get(ctx, widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	_, err = env.orders.AddLine(ctx, order.ID, widget.ID, 2)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "got %v", err)

	got, err = env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", got.TotalAmount.StringFixed(2))
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
}

func TestOrders_AddLineRejectsBadQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)

	for _, qty := range []int{0, -1, domain.MaxQuantity + 1, math.MaxInt} {
		t.Run(fmt.Sprint(qty), func(t *testing.T) {
			_, err := env.orders.AddLine(ctx, order.ID, widget.ID, qty)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	lines, err := env.store.ListLines(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, []domain.EventType{domain.EventOrderCreated}, env.eventTypes(t))
}

func TestOrders_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
	}{
		{"create for unknown user", func() error { _, err := env.orders.Create(ctx, "nobody"); return err }},
		{"add line to unknown order", func() error { _, err := env.orders.AddLine(ctx, "missing", widget.ID, 1); return err }},
		{"add unknown product", func() error { _, err := env.orders.AddLine(ctx, order.ID, "missing", 1); return err }},
		{"recalculate unknown order", func() error { _, err := env.orders.RecalculateTotal(ctx, "missing"); return err }},
		{"status of unknown order", func() error { _, err := env.orders.SetStatus(ctx, "missing", domain.StatusShipped); return err }},
		{"update unknown line", func() error { _, err := env.orders.UpdateLineQuantity(ctx, order.ID, "missing", 2); return err }},
		{"remove unknown line", func() error { return env.orders.RemoveLine(ctx, order.ID, "missing") }},
		{"delete unknown order", func() error { return env.orders.Delete(ctx, "missing") }},
		{"list orders of unknown user", func() error { _, err := env.orders.ListByUser(ctx, "nobody"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), domain.ErrNotFound)
		})
	}
}

func TestOrders_CreateWithStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	order, err := env.orders.CreateWithStatus(ctx, u.ID, domain.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, order.Status)

	_, err = env.orders.CreateWithStatus(ctx, u.ID, "lost")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestOrders_UpdateLineQuantityKeepsPrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	line, err := env.orders.AddLine(ctx, order.ID, widget.ID, 1)
	require.NoError(t, err)

	_, err = env.catalog.Update(ctx, widget.ID, money("99.99"), 5)
	require.NoError(t, err)

	updated, err := env.orders.UpdateLineQuantity(ctx, order.ID, line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity)
	assert.True(t, money("10.00").Equal(updated.PriceAtTime))

	_, err = env.orders.UpdateLineQuantity(ctx, order.ID, line.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)

	total, err := env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "40.00", total.StringFixed(2))
}

func TestOrders_RemoveLine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	a := env.product(t, "A", "1.00", 1)
	b := env.product(t, "B", "2.00", 1)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	la, err := env.orders.AddLine(ctx, order.ID, a.ID, 1)
	require.NoError(t, err)
	_, err = env.orders.AddLine(ctx, order.ID, b.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.orders.RemoveLine(ctx, order.ID, la.ID))

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, b.ID, got.Lines[0].ProductID)

	// The product can be added again once its line is gone.
	_, err = env.orders.AddLine(ctx, order.ID, a.ID, 2)
	assert.NoError(t, err)
}

func TestOrders_LineOfAnotherOrderIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	first, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	second, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	line, err := env.orders.AddLine(ctx, first.ID, widget.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, env.orders.RemoveLine(ctx, second.ID, line.ID), domain.ErrNotFound)
}

func TestOrders_DeleteRemovesLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.orders.AddLine(ctx, order.ID, widget.ID, 2)
	require.NoError(t, err)

	require.NoError(t, env.orders.Delete(ctx, order.ID))

	_, err = env.orders.Get(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	n, err := env.store.CountLines(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, env.eventTypes(t), domain.EventOrderDeleted)
}

func TestOrders_ListByUserNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	other := env.user(t, "bob")

	first, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	second, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.orders.Create(ctx, other.ID)
	require.NoError(t, err)

	orders, err := env.orders.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestOrders_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("permissive accepts any recognized status", func(t *testing.T) {
		env := newTestEnv(t)
		u := env.user(t, "alice")
		order, err := env.orders.Create(ctx, u.ID)
		require.NoError(t, err)

		for _, st := range []domain.OrderStatus{domain.StatusDelivered, domain.StatusPending, domain.StatusCancelled} {
			got, err := env.orders.SetStatus(ctx, order.ID, st)
			require.NoError(t, err)
			assert.Equal(t, st, got.Status)
		}

		_, err = env.orders.SetStatus(ctx, order.ID, "teleported")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("strict follows the lifecycle", func(t *testing.T) {
		env := newTestEnv(t, WithStatusPolicy(domain.StrictTransitions{}))
		u := env.user(t, "alice")
		order, err := env.orders.Create(ctx, u.ID)
		require.NoError(t, err)

		_, err = env.orders.SetStatus(ctx, order.ID, domain.StatusShipped)
		assert.ErrorIs(t, err, domain.ErrValidation)

		for _, st := range []domain.OrderStatus{domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered} {
			_, err := env.orders.SetStatus(ctx, order.ID, st)
			require.NoError(t, err)
		}

		_, err = env.orders.SetStatus(ctx, order.ID, domain.StatusCancelled)
		assert.ErrorIs(t, err, domain.ErrValidation)

		got, err := env.orders.Get(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusDelivered, got.Status)
	})

	t.Run("same status writes no event", func(t *testing.T) {
		env := newTestEnv(t, WithStatusPolicy(domain.StrictTransitions{}))
		u := env.user(t, "alice")
		order, err := env.orders.Create(ctx, u.ID)
		require.NoError(t, err)

		_, err = env.orders.SetStatus(ctx, order.ID, domain.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, []domain.EventType{domain.EventOrderCreated}, env.eventTypes(t))
	})
}

func TestOrders_AutoRecalculate(t *testing.T) {
	env := newTestEnv(t, WithAutoRecalculate(true))
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	gadget := env.product(t, "Gadget", "0.05", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)

	line, err := env.orders.AddLine(ctx, order.ID, widget.ID, 3)
	require.NoError(t, err)
	_, err = env.orders.AddLine(ctx, order.ID, gadget.ID, 3)
	require.NoError(t, err)
	assertTotal(t, env, order.ID, "30.15")

	_, err = env.orders.UpdateLineQuantity(ctx, order.ID, line.ID, 1)
	require.NoError(t, err)
	assertTotal(t, env, order.ID, "10.15")

	require.NoError(t, env.catalog.Delete(ctx, widget.ID))
	assertTotal(t, env, order.ID, "0.15")
	assert.Contains(t, env.eventTypes(t), domain.EventTotalRecalculated)
}

func TestCatalogDelete_LeavesTotalsWithoutAutoRecalculate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.orders.AddLine(ctx, order.ID, widget.ID, 3)
	require.NoError(t, err)
	_, err = env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)

	require.NoError(t, env.catalog.Delete(ctx, widget.ID))

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)
	assert.Equal(t, "30.00", got.TotalAmount.StringFixed(2))

	total, err := env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestOrders_EventsCarryOrderChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	widget := env.product(t, "Widget", "10.00", 5)
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)
	_, err = env.orders.AddLine(ctx, order.ID, widget.ID, 3)
	require.NoError(t, err)
	_, err = env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	_, err = env.orders.RecalculateTotal(ctx, order.ID)
	require.NoError(t, err)
	_, err = env.orders.SetStatus(ctx, order.ID, domain.StatusProcessing)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{
		domain.EventOrderCreated,
		domain.EventLineAdded,
		domain.EventTotalRecalculated,
		domain.EventStatusChanged,
	}, env.eventTypes(t))

	events, err := env.store.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.JSONEq(t, `{"previous":"0","total":"30"}`, string(events[2].Payload))
}

func TestOrders_RecalculateTotalProperty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	rapid.Check(t, func(rt *rapid.T) {
		order, err := env.orders.Create(ctx, u.ID)
		require.NoError(rt, err)

		n := rapid.IntRange(0, 5).Draw(rt, "lines")
		want := decimal.Zero
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(1, 1_000_000).Draw(rt, "cents")
			qty := rapid.IntRange(1, 100).Draw(rt, "qty")
			price := decimal.New(cents, -2)

			p, err := env.catalog.Create(ctx, fmt.Sprintf("p-%s-%d", order.ID, i), "", price, 0)
			require.NoError(rt, err)
			_, err = env.orders.AddLine(ctx, order.ID, p.ID, qty)
			require.NoError(rt, err)
			want = want.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}

		first, err := env.orders.RecalculateTotal(ctx, order.ID)
		require.NoError(rt, err)
		second, err := env.orders.RecalculateTotal(ctx, order.ID)
		require.NoError(rt, err)

		assert.True(rt, want.Equal(first), "want %s got %s", want, first)
		assert.True(rt, first.Equal(second))
	})
}

func assertTotal(t *testing.T, env *testEnv, orderID, want string) {
	t.Helper()
	got, err := env.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, want, got.TotalAmount.StringFixed(2))
}

func TestOrders_CreateWithReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	first, created, err := env.orders.CreateWithReference(ctx, alice.ID, "key-1", domain.StatusPending)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "key-1", first.Reference)

	again, created, err := env.orders.CreateWithReference(ctx, alice.ID, "key-1", domain.StatusPending)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	_, _, err = env.orders.CreateWithReference(ctx, bob.ID, "key-1", domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrConflict)

	plain, created, err := env.orders.CreateWithReference(ctx, bob.ID, "", domain.StatusPending)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, plain.Reference)

	orders, err := env.orders.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestCatalog_RejectsPriceThatCannotBeStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.Create(ctx, "Yacht", "", money("184467440737095517.16"), 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	products, err := env.store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestOrders_RecalculateRejectsTotalPastStorableRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	order, err := env.orders.Create(ctx, u.ID)
	require.NoError(t, err)

	// Each line is worth just under 10^15; enough of them exceed MaxAmount.
	perLine := domain.MaxPrice.Mul(decimal.NewFromInt(domain.MaxQuantity))
	lines := int(domain.MaxAmount.Div(perLine).IntPart()) + 1
	for i := 0; i < lines; i++ {
		p := env.product(t, fmt.Sprintf("Item %03d", i), domain.MaxPrice.StringFixed(2), 1)
		_, err := env.orders.AddLine(ctx, order.ID, p.ID, domain.MaxQuantity)
		require.NoError(t, err)
	}

	_, err = env.orders.RecalculateTotal(ctx, order.ID)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total_amount", verr.Field)

	got, err := env.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.IsZero(), "stored total must stay untouched, got %s", got.TotalAmount)
}
