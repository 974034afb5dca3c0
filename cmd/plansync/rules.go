package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/plansync/internal/cli"
	"github.com/Veraticus/plansync/internal/model"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage planned payment rules",
		Long: `Planned payment rules describe one-time or recurring payments. Creating or
editing a rule regenerates its upcoming instances; instances that were already
paid are kept.`,
		RunE: runRulesList,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List planned payment rules",
		RunE:  runRulesList,
	})

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a planned payment rule",
		RunE:  runRulesCreate,
	}
	addRuleFlags(create)
	_ = create.MarkFlagRequired("account")
	_ = create.MarkFlagRequired("amount")
	cmd.AddCommand(create)

	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a planned payment rule",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesEdit,
	}
	addRuleFlags(edit)
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule and its unpaid instances",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesDelete,
	})

	return cmd
}

func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "account id")
	cmd.Flags().String("category", "", "category id")
	cmd.Flags().String("type", "expense", "income, expense or transfer")
	cmd.Flags().String("amount", "", "amount in the account currency")
	cmd.Flags().String("title", "", "title")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("start", "", "first due date (default: today)")
	cmd.Flags().Bool("one-time", false, "the rule occurs once")
	cmd.Flags().Int("every", 1, "recurrence step")
	cmd.Flags().String("interval", "month", "day, week, month or year")
}

// applyRuleFlags copies every flag the user set onto rule. With all set to
// true every flag is applied, defaults included.
func applyRuleFlags(cmd *cobra.Command, rule *model.PlannedPaymentRule, all bool) error {
	flags := cmd.Flags()
	set := func(name string) bool { return all || flags.Changed(name) }

	if set("account") {
		v, _ := flags.GetString("account")
		id, err := parseID(v)
		if err != nil {
			return err
		}
		rule.AccountID = id
	}
	if flags.Changed("category") {
		v, _ := flags.GetString("category")
		if v == "" {
			rule.CategoryID = nil
		} else {
			id, err := parseID(v)
			if err != nil {
				return err
			}
			rule.CategoryID = &id
		}
	}
	if set("type") {
		v, _ := flags.GetString("type")
		tt, err := model.ParseTransactionType(v)
		if err != nil {
			return err
		}
		rule.Type = tt
	}
	if set("amount") {
		v, _ := flags.GetString("amount")
		amount, err := parseAmount(v)
		if err != nil {
			return err
		}
		rule.Amount = amount
	}
	if set("title") {
		rule.Title, _ = flags.GetString("title")
	}
	if set("description") {
		rule.Description, _ = flags.GetString("description")
	}
	if set("start") {
		v, _ := flags.GetString("start")
		start := time.Now()
		if v != "" {
			var err error
			if start, err = parseDate(v); err != nil {
				return err
			}
		}
		rule.StartDate = &start
	}

	switch {
	case set("one-time"):
		rule.OneTime, _ = flags.GetBool("one-time")
	case flags.Changed("every") || flags.Changed("interval"):
		rule.OneTime = false
	}
	if rule.OneTime {
		rule.IntervalN = nil
		rule.IntervalType = nil
		return nil
	}

	if set("every") || rule.IntervalN == nil {
		every, _ := flags.GetInt("every")
		rule.IntervalN = &every
	}
	if set("interval") || rule.IntervalType == nil {
		v, _ := flags.GetString("interval")
		it, err := model.ParseIntervalType(v)
		if err != nil {
			return err
		}
		rule.IntervalType = &it
	}
	return nil
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	rules, err := a.store.Rules().FindAll(ctx)
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Println(cli.FormatInfo("No planned payments yet. Add one with 'plansync rules create'.")) //nolint:forbidigo // User-facing output
		return nil
	}
	accounts, err := a.accounts(ctx)
	if err != nil {
		return err
	}

	table := cli.NewTable(os.Stdout, "ID", "Title", "Amount", "Starts", "Repeats", "Synced")
	for _, r := range rules {
		table.Row(
			r.ID.String(),
			r.Title,
			cli.FormatSigned(r.Amount, accountCurrency(accounts, r.AccountID), r.Type),
			cli.FormatDate(r.StartDate),
			describeRecurrence(r),
			syncedMark(r.SyncState),
		)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	total := a.rates.SumRulesInBase(ctx, rules, accounts, a.cfg.Currency.Base)
	fmt.Println()                                                                                             //nolint:forbidigo // User-facing output
	fmt.Println(cli.BoldStyle.Render("Total per occurrence: " + cli.FormatMoney(total, a.cfg.Currency.Base))) //nolint:forbidigo // User-facing output
	return nil
}

func runRulesCreate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var rule model.PlannedPaymentRule
	if err := applyRuleFlags(cmd, &rule, true); err != nil {
		return err
	}
	if _, err := a.store.Accounts().FindByID(ctx, rule.AccountID); err != nil {
		return fmt.Errorf("account %s: %w", rule.AccountID, err)
	}

	rule, err = a.plannedService().CreateRule(ctx, rule)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created rule %s (%s)", rule.ID, describeRecurrence(rule)))) //nolint:forbidigo // User-facing output
	return nil
}

func runRulesEdit(cmd *cobra.Command, args []string) error {
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

	existing, err := a.store.Rules().FindByID(ctx, id)
	if err != nil {
		return err
	}
	rule := *existing
	if err := applyRuleFlags(cmd, &rule, false); err != nil {
		return err
	}
	rule.IsSynced = false

	if err := a.plannedService().EditRule(ctx, rule); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated rule %s", rule.ID))) //nolint:forbidigo // User-facing output
	return nil
}

func runRulesDelete(cmd *cobra.Command, args []string) error {
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

	if err := a.plannedService().DeleteRule(ctx, id); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess("Rule deleted; paid instances are kept")) //nolint:forbidigo // User-facing output
	return nil
}

func describeRecurrence(r model.PlannedPaymentRule) string {
	if r.OneTime {
		return "once"
	}
	if r.IntervalN == nil || r.IntervalType == nil {
		return "?"
	}
	return fmt.Sprintf("every %d %s", *r.IntervalN, r.IntervalType.Unit(*r.IntervalN))
}
