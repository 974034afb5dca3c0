package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show account balances and the total in the base currency",
		RunE:  runBalance,
	}
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := a.accounts(ctx)
	if err != nil {
		return err
	}
	txns, err := a.store.FindRealizedTransactions(ctx)
	if err != nil {
		return err
	}

	balances := accountBalances(txns)
	base := a.cfg.Currency.Base

	table := cli.NewTable(os.Stdout, "Account", "Balance", "In "+base)
	total := decimal.Zero
	for _, acc := range accounts {
		bal := balances[acc.ID]
		inBase := a.rates.ToBase(ctx, bal, acc.Currency, base)
		total = total.Add(inBase)
		table.Row(acc.Name, cli.FormatMoney(bal, acc.Currency), cli.FormatMoney(inBase, base))
	}
	if err := table.Flush(); err != nil {
		return err
	}

	fmt.Println()                                                               //nolint:forbidigo // User-facing output
	fmt.Println(cli.BoldStyle.Render("Total: " + cli.FormatMoney(total, base))) //nolint:forbidigo // User-facing output
	return nil
}

// accountBalances nets realized transactions per account. Transfers leave
// the source account in its currency and arrive as ToAmount when set.
func accountBalances(txns []model.Transaction) map[uuid.UUID]decimal.Decimal {
	balances := make(map[uuid.UUID]decimal.Decimal)
	add := func(id uuid.UUID, amount decimal.Decimal) {
		balances[id] = balances[id].Add(amount)
	}

	for _, txn := range txns {
		switch txn.Type {
		case model.TypeIncome:
			add(txn.AccountID, txn.Amount)
		case model.TypeExpense:
			add(txn.AccountID, txn.Amount.Neg())
		case model.TypeTransfer:
			add(txn.AccountID, txn.Amount.Neg())
			if txn.ToAccountID != nil {
				received := txn.Amount
				if txn.ToAmount.Valid {
					received = txn.ToAmount.Decimal
				}
				add(*txn.ToAccountID, received)
			}
		}
	}
	return balances
}
