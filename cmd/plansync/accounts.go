package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/spf13/cobra"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage accounts",
		RunE:  runAccountsList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE:  runAccountsList,
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsAdd,
	}
	add.Flags().String("currency", "", "ISO 4217 currency code (default: base currency)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runAccountsDelete,
	})

	return cmd
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
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
	if len(accounts) == 0 {
		fmt.Println(cli.FormatInfo("No accounts yet. Add one with 'plansync accounts add'.")) //nolint:forbidigo // User-facing output
		return nil
	}

	table := cli.NewTable(os.Stdout, "ID", "Name", "Currency", "Synced")
	for _, acc := range accounts {
		table.Row(acc.ID.String(), acc.Name, acc.Currency, syncedMark(acc.SyncState))
	}
	return table.Flush()
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	code, _ := cmd.Flags().GetString("currency")
	if code == "" {
		code = a.cfg.Currency.Base
	}

	account := model.Account{
		ID:       model.NewID(),
		Name:     strings.TrimSpace(args[0]),
		Currency: strings.ToUpper(strings.TrimSpace(code)),
	}
	if account.Name == "" {
		return fmt.Errorf("account name must not be blank")
	}
	if err := a.store.Accounts().Save(ctx, account); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Added account %s (%s) %s", account.Name, account.Currency, account.ID))) //nolint:forbidigo // User-facing output
	return nil
}

func runAccountsDelete(cmd *cobra.Command, args []string) error {
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

	if _, err := a.store.Accounts().FindByID(ctx, id); err != nil {
		return err
	}
	if err := a.store.Accounts().FlagDeleted(ctx, id); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Account deleted; the deletion syncs on the next run")) //nolint:forbidigo // User-facing output
	return nil
}

func syncedMark(s model.SyncState) string {
	if s.IsSynced {
		return cli.SuccessIcon
	}
	return cli.SubtleStyle.Render("pending")
}
