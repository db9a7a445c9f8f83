package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jcmexdev/storefront/internal/store/app"
	"github.com/jcmexdev/storefront/internal/store/domain"
)

func printPlan(w io.Writer, username string, plan domain.AccountPlan) {
	switch plan.Action {
	case domain.PlanCreate:
		fmt.Fprintf(w, "Account %s: created\n", username)
	case domain.PlanUpdate:
		fmt.Fprintf(w, "Account %s: updated %s\n", username, strings.Join(plan.Changes, ", "))
	default:
		fmt.Fprintf(w, "Account %s: up to date\n", username)
	}
}

func printReport(w io.Writer, r app.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "== Statistics")
	fmt.Fprintf(tw, "users\t%d\n", r.Stats.Users)
	fmt.Fprintf(tw, "products\t%d\n", r.Stats.Products)
	fmt.Fprintf(tw, "orders\t%d\n", r.Stats.Orders)
	fmt.Fprintf(tw, "order lines\t%d\n", r.Stats.OrderLines)
	fmt.Fprintf(tw, "average order value\t%s\n", r.Stats.AverageOrderValue.StringFixed(domain.MoneyScale))

	fmt.Fprintln(tw, "\n== Spend by user")
	fmt.Fprintln(tw, "USER\tORDERS\tTOTAL")
	for _, row := range r.UserSpend {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", row.Username, row.OrderCount, row.TotalSpent.StringFixed(domain.MoneyScale))
	}

	fmt.Fprintln(tw, "\n== Product sales")
	fmt.Fprintln(tw, "PRODUCT\tUNITS\tORDERS")
	for _, row := range r.ProductSales {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", row.ProductName, row.TotalUnitsSold, row.OrderCount)
	}

	fmt.Fprintln(tw, "\n== Inventory")
	fmt.Fprintln(tw, "PRODUCT\tSTOCK\tSOLD")
	for _, row := range r.Inventory {
		fmt.Fprintf(tw, "%s\t%d\t%d\n", row.ProductName, row.Stock, row.UnitsSold)
	}

	fmt.Fprintln(tw, "\n== Orders with more than one line")
	fmt.Fprintln(tw, "ORDER\tUSER\tLINES\tTOTAL")
	for _, row := range r.MultiLineOrders {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", row.OrderID, row.Username, row.LineCount, row.TotalAmount.StringFixed(domain.MoneyScale))
	}
	return tw.Flush()
}
