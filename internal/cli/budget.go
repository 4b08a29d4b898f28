package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/freightfocus/internal/carbon"
	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/insights"
)

// BudgetExitError is a sentinel error that carries an exit code for budget
// threshold violations. It is used to communicate the exit code from budget
// evaluation to the main package.
type BudgetExitError struct {
	ExitCode int
	Reason   string
}

func (e *BudgetExitError) Error() string {
	return e.Reason
}

// evaluateAndRenderBudgets checks the run's emissions against the configured
// budgets, renders the status table when the output format is table, and
// returns a BudgetExitError when a breached scope demands a non-zero exit.
//
// JSON and NDJSON outputs skip the table so their streams stay parseable,
// but the exit decision applies to every format.
func evaluateAndRenderBudgets(
	cmd *cobra.Command,
	cfg *config.Config,
	statuses []insights.BudgetStatus,
	output string,
) error {
	if len(statuses) == 0 {
		return nil
	}

	if output == config.OutputFormatTable {
		cmd.Println()
		if err := renderBudgetStatuses(cmd.OutOrStdout(), statuses); err != nil {
			return err
		}
	}

	return checkBudgetExit(cmd, cfg.Emissions.Budgets, statuses)
}

// checkBudgetExit evaluates whether the CLI should exit based on budget
// status. It returns a BudgetExitError with the configured exit code when a
// scope breached an alert and exit_on_threshold is enabled for that scope,
// or nil when no exit is needed.
func checkBudgetExit(cmd *cobra.Command, budgets *config.BudgetsConfig, statuses []insights.BudgetStatus) error {
	isDebug := cmd.Flag("debug") != nil && cmd.Flag("debug").Changed

	breached := insights.FirstBreached(statuses)
	if breached == nil {
		return nil
	}

	reason := fmt.Sprintf("emission budget exceeded: %s scope at %.1f%% of %s kg limit",
		breached.Scope, breached.UtilizationPct, carbon.FormatFloat(breached.LimitKg, 0))

	if isDebug {
		cmd.PrintErrf("DEBUG: %s\n", reason)
	}

	if !budgets.ShouldExitOnThreshold(breached.Scope) {
		return nil
	}

	exitCode := budgets.ExitCodeFor(breached.Scope)

	// Warning-only mode: exit code 0 means log warning but don't fail.
	if exitCode == 0 {
		cmd.PrintErrf("WARNING: %s\n", reason)
		return nil
	}

	return &BudgetExitError{
		ExitCode: exitCode,
		Reason:   reason,
	}
}

// renderBudgetStatuses renders the budget scope table plus one line per
// alert that is no longer OK.
func renderBudgetStatuses(w io.Writer, statuses []insights.BudgetStatus) error {
	fmt.Fprintln(w, "EMISSION BUDGETS")
	fmt.Fprintln(w, "================")

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "SCOPE\tLIMIT (KG)\tACTUAL (KG)\tUSED\tFORECAST\tHEALTH")
	fmt.Fprintln(tw, "-----\t----------\t-----------\t----\t--------\t------")
	for _, status := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\t%.1f%%\t%s\n",
			status.Scope,
			carbon.FormatFloat(status.LimitKg, 0),
			carbon.FormatFloat(status.ActualKg, 1),
			status.UtilizationPct,
			status.ForecastPct,
			status.Health,
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing budget table: %w", err)
	}

	for _, status := range statuses {
		for _, alert := range status.Alerts {
			if alert.State == insights.AlertStateOK {
				continue
			}
			fmt.Fprintf(w, "  %s: %s %.0f%% threshold (%s)\n",
				status.Scope, alert.Type, alert.Threshold, alert.State)
		}
	}

	return nil
}
