// Package main is the entry point for the freightfocus CLI.
package main

import (
	"errors"
	"os"

	"github.com/rshade/freightfocus/internal/cli"
	"github.com/rshade/freightfocus/pkg/version"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its result to a process exit code.
// Cobra prints the error itself, so run only translates it.
func run() int {
	rootCmd := cli.NewRootCmd(version.GetVersion())

	return extractBudgetExitCode(rootCmd.Execute())
}

// extractBudgetExitCode returns 0 for nil, the configured exit code when err
// wraps a BudgetExitError, and 1 for any other error.
func extractBudgetExitCode(err error) int {
	if err == nil {
		return 0
	}

	var budgetErr *cli.BudgetExitError
	if errors.As(err, &budgetErr) {
		return budgetErr.ExitCode
	}

	return 1
}
