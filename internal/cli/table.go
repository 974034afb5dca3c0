package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/service"
	"github.com/shopspring/decimal"
)

// Table writes aligned columns with a styled header.
type Table struct {
	tw   *tabwriter.Writer
	err  error
	cols int
}

// NewTable writes the header row to w.
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{
		tw:   tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		cols: len(headers),
	}

	styled := make([]string, len(headers))
	rules := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = TableHeaderStyle.Render(h)
		rules[i] = strings.Repeat("─", max(len(h), 4))
	}
	t.write(styled)
	t.write(rules)
	return t
}

// Row appends one row. Missing cells are left blank.
func (t *Table) Row(cells ...string) {
	if len(cells) < t.cols {
		cells = append(cells, make([]string, t.cols-len(cells))...)
	}
	t.write(cells)
}

func (t *Table) write(cells []string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.tw, strings.Join(cells, "\t"))
}

// Flush writes buffered rows and returns the first error encountered.
func (t *Table) Flush() error {
	if t.err != nil {
		return fmt.Errorf("failed to write table: %w", t.err)
	}
	if err := t.tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// FormatMoney renders an amount with two decimals and its currency code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	s := amount.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// FormatSigned renders an amount colored and signed by transaction type.
func FormatSigned(amount decimal.Decimal, currency string, tt model.TransactionType) string {
	switch tt {
	case model.TypeIncome:
		return IncomeStyle.Render("+" + FormatMoney(amount, currency))
	case model.TypeExpense:
		return ExpenseStyle.Render("-" + FormatMoney(amount, currency))
	default:
		return FormatMoney(amount, currency)
	}
}

// FormatDate renders a date, or "-" when absent.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// FormatSyncReport summarizes one sync run on a single line.
func FormatSyncReport(r service.SyncReport) string {
	if r.Skipped {
		return SubtleStyle.Render(fmt.Sprintf("%-24s skipped (not logged in)", r.Kind))
	}

	line := fmt.Sprintf("%-24s pushed %d, deleted %d, pulled %d",
		r.Kind, r.Upload.Succeeded, r.Delete.Succeeded, r.Pull.Succeeded)

	if r.OK() {
		return FormatSuccess(line)
	}

	failures := make([]string, 0, 3)
	for _, p := range []struct {
		stats service.PhaseStats
		name  string
	}{
		{r.Upload, "push"},
		{r.Delete, "delete"},
		{r.Pull, "pull"},
	} {
		switch {
		case p.stats.Err != nil:
			failures = append(failures, fmt.Sprintf("%s: %v", p.name, p.stats.Err))
		case p.stats.Failed > 0:
			failures = append(failures, fmt.Sprintf("%d %s failed", p.stats.Failed, p.name))
		}
	}
	return FormatWarning(line + " (" + strings.Join(failures, "; ") + ")")
}
