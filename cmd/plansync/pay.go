package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/spf13/cobra"
)

func payCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay <transaction-id>",
		Short: "Mark a planned payment as paid",
		Long: `Turn a pending instance into a realized transaction. Paid instances are never
touched again when their rule is edited or deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: runPay,
	}
	cmd.Flags().String("date", "", "payment date (default: now)")
	return cmd
}

func runPay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	at := time.Now()
	if v, _ := cmd.Flags().GetString("date"); v != "" {
		if at, err = parseDate(v); err != nil {
			return err
		}
	}

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	txn, err := a.plannedService().Pay(ctx, id, at)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Paid %q on %s", txn.Title, cli.FormatDate(txn.DateTime)))) //nolint:forbidigo // User-facing output
	return nil
}
