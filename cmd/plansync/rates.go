package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/spf13/cobra"
)

func ratesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Exchange rates against the base currency",
		RunE:  runRatesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored exchange rates",
		RunE:  runRatesList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Fetch the latest exchange rates",
		RunE:  runRatesSync,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "convert <amount> <from> <to>",
		Short: "Convert an amount between currencies",
		Args:  cobra.ExactArgs(3),
		RunE:  runRatesConvert,
	})

	return cmd
}

func runRatesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	base := a.cfg.Currency.Base
	stored, err := a.store.FindExchangeRates(ctx, base)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Println(cli.FormatInfo("No rates for " + base + " yet. Fetch them with 'plansync rates sync'.")) //nolint:forbidigo // User-facing output
		return nil
	}

	table := cli.NewTable(os.Stdout, "Currency", "1 "+base+" =")
	for _, r := range stored {
		table.Row(r.Currency, r.Rate.String())
	}
	return table.Flush()
}

func runRatesSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.rates.SyncRates(ctx, a.cfg.Currency.Base)

	stored, err := a.store.FindExchangeRates(ctx, a.cfg.Currency.Base)
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%d rates stored for %s", len(stored), a.cfg.Currency.Base))) //nolint:forbidigo // User-facing output
	return nil
}

func runRatesConvert(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	amount, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	from, to := strings.ToUpper(args[1]), strings.ToUpper(args[2])

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	converted := a.rates.Convert(ctx, amount, from, to, a.cfg.Currency.Base)
	fmt.Printf("%s = %s\n", cli.FormatMoney(amount, from), cli.FormatMoney(converted, to)) //nolint:forbidigo // User-facing output
	return nil
}
