package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func upcomingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Show planned payments due soon",
		RunE:  runUpcoming,
	}
	cmd.Flags().Int("days", 30, "how many days ahead to look")
	cmd.Flags().String("from", "", "start date (default: today)")
	return cmd
}

func runUpcoming(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if v, _ := cmd.Flags().GetString("from"); v != "" {
		var err error
		if from, err = parseDate(v); err != nil {
			return err
		}
	}
	to := from.AddDate(0, 0, days)

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	due, err := a.plannedService().Upcoming(ctx, from, to)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Nothing due in the next %d days", days))) //nolint:forbidigo // User-facing output
		return nil
	}
	accounts, err := a.accounts(ctx)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("%s Due %s to %s", cli.CalendarIcon, from.Format("2006-01-02"), to.Format("2006-01-02")))) //nolint:forbidigo // User-facing output

	base := a.cfg.Currency.Base
	table := cli.NewTable(os.Stdout, "ID", "Due", "Title", "Amount")
	income, expense := decimal.Zero, decimal.Zero
	for _, txn := range due {
		table.Row(
			txn.ID.String(),
			cli.FormatDate(txn.DueDate),
			txn.Title,
			cli.FormatSigned(txn.Amount, accountCurrency(accounts, txn.AccountID), txn.Type),
		)

		inBase := a.rates.TransactionAmountInBase(ctx, txn, accounts, base)
		switch txn.Type {
		case model.TypeIncome:
			income = income.Add(inBase)
		case model.TypeExpense:
			expense = expense.Add(inBase)
		}
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Println()                                                                               //nolint:forbidigo // User-facing output
	fmt.Println(cli.RenderBox("Totals", fmt.Sprintf("Income:   %s\nExpenses: %s\nNet:      %s", //nolint:forbidigo // User-facing output
		cli.FormatMoney(income, base),
		cli.FormatMoney(expense, base),
		cli.FormatMoney(income.Sub(expense), base))))
	return nil
}
