package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/plansync/internal/budget"
	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/Veraticus/plansync/internal/storage"
	"github.com/spf13/cobra"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage budgets",
		RunE:  runBudgetsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE:  runBudgetsList,
	})

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a budget",
		Args:  cobra.ExactArgs(1),
		RunE:  runBudgetsCreate,
	}
	addBudgetFlags(create)
	_ = create.MarkFlagRequired("amount")
	cmd.AddCommand(create)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a budget",
		Args:  cobra.ExactArgs(1),
		RunE:  runBudgetsEdit,
	}
	addBudgetFlags(edit)
	edit.Flags().String("name", "", "new name")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE:  runBudgetsDelete,
	})

	return cmd
}

func addBudgetFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", "budget amount in the base currency")
	cmd.Flags().StringSlice("category", nil, "category ids (default: all categories)")
	cmd.Flags().StringSlice("account", nil, "account ids (default: all accounts)")
}

func budgetData(cmd *cobra.Command, data *budget.Data) error {
	flags := cmd.Flags()
	if flags.Changed("amount") {
		v, _ := flags.GetString("amount")
		amount, err := parseAmount(v)
		if err != nil {
			return err
		}
		data.Amount = amount
	}
	if flags.Changed("category") {
		v, _ := flags.GetStringSlice("category")
		ids, err := parseIDs(v)
		if err != nil {
			return err
		}
		data.CategoryIDs = ids
	}
	if flags.Changed("account") {
		v, _ := flags.GetStringSlice("account")
		ids, err := parseIDs(v)
		if err != nil {
			return err
		}
		data.AccountIDs = ids
	}
	return nil
}

func runBudgetsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	budgets, err := a.store.Budgets().FindAll(ctx)
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Println(cli.FormatInfo("No budgets yet. Add one with 'plansync budgets create'.")) //nolint:forbidigo // User-facing output
		return nil
	}

	table := cli.NewTable(os.Stdout, "ID", "Name", "Amount", "Type", "Accounts", "Synced")
	for _, b := range budgets {
		accounts := "all"
		if n := len(b.ParseAccountIDs()); n > 0 {
			accounts = fmt.Sprint(n)
		}
		table.Row(
			b.ID.String(),
			b.Name,
			cli.FormatMoney(b.Amount, a.cfg.Currency.Base),
			b.TypeLabel(),
			accounts,
			syncedMark(b.SyncState),
		)
	}
	return table.Flush()
}

func runBudgetsCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	data := budget.Data{Name: args[0]}
	if err := budgetData(cmd, &data); err != nil {
		return err
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	// The order number read and the insert must not interleave with another writer.
	var created model.Budget
	err = a.store.WithTx(ctx, func(tx *storage.SQLiteStorage) error {
		var err error
		created, err = budget.NewService(tx.Budgets()).Create(ctx, data)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s %q %s", created.TypeLabel(), created.Name, created.ID))) //nolint:forbidigo // User-facing output
	return nil
}

func runBudgetsEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	existing, err := a.store.Budgets().FindByID(ctx, id)
	if err != nil {
		return err
	}
	data := budget.Data{
		Name:        existing.Name,
		Amount:      existing.Amount,
		CategoryIDs: existing.ParseCategoryIDs(),
		AccountIDs:  existing.ParseAccountIDs(),
	}
	if cmd.Flags().Changed("name") {
		data.Name, _ = cmd.Flags().GetString("name")
	}
	if err := budgetData(cmd, &data); err != nil {
		return err
	}

	if _, err := a.budgetService().Edit(ctx, id, data); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Budget updated")) //nolint:forbidigo // User-facing output
	return nil
}

func runBudgetsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.budgetService().Delete(ctx, id); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Budget deleted; the deletion syncs on the next run")) //nolint:forbidigo // User-facing output
	return nil
}
