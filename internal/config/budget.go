package config

import (
	"errors"
	"fmt"
)

// AlertType represents the type of budget alert evaluation.
type AlertType string

// Valid alert types for budget threshold evaluation.
const (
	// AlertTypeActual triggers when estimated emissions exceed the threshold.
	AlertTypeActual AlertType = "actual"
	// AlertTypeForecasted triggers when the completeness-adjusted projection
	// exceeds the threshold.
	AlertTypeForecasted AlertType = "forecasted"
)

// Budget scope names. Mode scopes sum leg emissions for that mode only.
const (
	BudgetScopeGlobal = "global"
	BudgetScopeAir    = "air"
	BudgetScopeSea    = "sea"
)

// Budget validation limits.
const (
	MaxThresholdPercent = 1000.0 // Allow alerts past 100% for extreme overshoot detection
	MinThresholdPercent = 0.0
)

// Exit code limits (Unix standard).
const (
	MinExitCode = 0
	MaxExitCode = 255
)

// Default alert thresholds applied when a budget configures none.
const (
	DefaultAlert50  = 50.0
	DefaultAlert80  = 80.0
	DefaultAlert100 = 100.0
)

// Budget validation errors.
var (
	ErrBudgetLimitNegative      = errors.New("budget limit_kg cannot be negative")
	ErrAlertThresholdOutOfRange = errors.New("alert threshold must be between 0 and 1000")
	ErrAlertTypeInvalid         = errors.New("alert type must be 'actual' or 'forecasted'")
	ErrExitCodeOutOfRange       = errors.New("exit code must be between 0 and 255")
)

// AlertConfig defines a budget consumption point at which the user should be
// alerted.
type AlertConfig struct {
	// Threshold is the percentage of the limit that triggers this alert
	// (e.g. 80.0 for 80%).
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Type is the evaluation type: "actual" or "forecasted".
	Type AlertType `yaml:"type"      json:"type"`
}

// Validate checks if the alert configuration is valid.
func (a AlertConfig) Validate() error {
	if a.Threshold < MinThresholdPercent || a.Threshold > MaxThresholdPercent {
		return fmt.Errorf("%w: got %.2f", ErrAlertThresholdOutOfRange, a.Threshold)
	}
	if a.Type != AlertTypeActual && a.Type != AlertTypeForecasted {
		return fmt.Errorf("%w: got %q", ErrAlertTypeInvalid, a.Type)
	}
	return nil
}

// DefaultAlerts returns the standard alerts applied when a budget configures
// none: 50%, 80% and 100% of the limit, all against actual emissions.
func DefaultAlerts() []AlertConfig {
	return []AlertConfig{
		{Threshold: DefaultAlert50, Type: AlertTypeActual},
		{Threshold: DefaultAlert80, Type: AlertTypeActual},
		{Threshold: DefaultAlert100, Type: AlertTypeActual},
	}
}

// ScopedBudget caps the emissions of one scope for a run. A zero limit
// disables the budget. Exit settings on mode scopes override the global
// budget's when set; nil inherits.
type ScopedBudget struct {
	// LimitKg is the emission cap in kg CO2e. Use 0 to disable.
	LimitKg float64 `yaml:"limit_kg" json:"limit_kg"`

	// Alerts lists the thresholds that trigger notifications. Empty uses
	// DefaultAlerts.
	Alerts []AlertConfig `yaml:"alerts,omitempty" json:"alerts,omitempty"`

	// ExitOnThreshold enables a non-zero exit code when an alert of this
	// scope fires. Nil inherits from the global budget.
	ExitOnThreshold *bool `yaml:"exit_on_threshold,omitempty" json:"exit_on_threshold,omitempty"`

	// ExitCode is the exit code used when ExitOnThreshold applies.
	// Nil inherits from the global budget; unset everywhere defaults to 1.
	ExitCode *int `yaml:"exit_code,omitempty" json:"exit_code,omitempty"`
}

// IsEnabled reports whether the budget is configured and enabled. A nil
// receiver reads as not enabled so callers can skip nil guards.
func (s *ScopedBudget) IsEnabled() bool {
	return s != nil && s.LimitKg > 0
}

// EffectiveAlerts returns the configured alerts, or DefaultAlerts when the
// budget configures none.
func (s *ScopedBudget) EffectiveAlerts() []AlertConfig {
	if s == nil || len(s.Alerts) == 0 {
		return DefaultAlerts()
	}
	return s.Alerts
}

// Validate checks the scoped budget. A nil or disabled budget is valid.
func (s *ScopedBudget) Validate() error {
	if s == nil {
		return nil
	}
	if s.LimitKg < 0 {
		return ErrBudgetLimitNegative
	}
	if s.LimitKg == 0 {
		return nil
	}
	for i, alert := range s.Alerts {
		if err := alert.Validate(); err != nil {
			return fmt.Errorf("alert[%d]: %w", i, err)
		}
	}
	if s.ExitCode != nil && (*s.ExitCode < MinExitCode || *s.ExitCode > MaxExitCode) {
		return fmt.Errorf("%w: got %d", ErrExitCodeOutOfRange, *s.ExitCode)
	}
	return nil
}

// BudgetsConfig holds the emission budgets for a run: one global cap plus
// optional per-mode caps.
type BudgetsConfig struct {
	Global *ScopedBudget `yaml:"global,omitempty" json:"global,omitempty"`
	Air    *ScopedBudget `yaml:"air,omitempty"    json:"air,omitempty"`
	Sea    *ScopedBudget `yaml:"sea,omitempty"    json:"sea,omitempty"`
}

// NamedScope pairs a scope name with its budget, preserving evaluation order.
type NamedScope struct {
	Scope  string
	Budget *ScopedBudget
}

// Scopes returns the configured budgets in evaluation order, global first.
// Disabled and absent scopes are skipped.
func (b *BudgetsConfig) Scopes() []NamedScope {
	if b == nil {
		return nil
	}
	var scopes []NamedScope
	for _, ns := range []NamedScope{
		{Scope: BudgetScopeGlobal, Budget: b.Global},
		{Scope: BudgetScopeAir, Budget: b.Air},
		{Scope: BudgetScopeSea, Budget: b.Sea},
	} {
		if ns.Budget.IsEnabled() {
			scopes = append(scopes, ns)
		}
	}
	return scopes
}

// Enabled reports whether any scope carries an active budget.
func (b *BudgetsConfig) Enabled() bool {
	return len(b.Scopes()) > 0
}

// ShouldExitOnThreshold resolves the exit behavior for the named scope:
// the scope's own setting when present, the global budget's otherwise.
func (b *BudgetsConfig) ShouldExitOnThreshold(scope string) bool {
	if b == nil {
		return false
	}
	if s := b.scoped(scope); s != nil && s.ExitOnThreshold != nil {
		return *s.ExitOnThreshold
	}
	if b.Global != nil && b.Global.ExitOnThreshold != nil {
		return *b.Global.ExitOnThreshold
	}
	return false
}

// ExitCodeFor resolves the exit code for the named scope, walking the same
// inheritance chain as ShouldExitOnThreshold and defaulting to 1.
func (b *BudgetsConfig) ExitCodeFor(scope string) int {
	if b == nil {
		return 1
	}
	if s := b.scoped(scope); s != nil && s.ExitCode != nil {
		return *s.ExitCode
	}
	if b.Global != nil && b.Global.ExitCode != nil {
		return *b.Global.ExitCode
	}
	return 1
}

func (b *BudgetsConfig) scoped(scope string) *ScopedBudget {
	switch scope {
	case BudgetScopeGlobal:
		return b.Global
	case BudgetScopeAir:
		return b.Air
	case BudgetScopeSea:
		return b.Sea
	default:
		return nil
	}
}

// Validate checks every configured scope.
func (b *BudgetsConfig) Validate() error {
	if b == nil {
		return nil
	}
	for _, ns := range []NamedScope{
		{Scope: BudgetScopeGlobal, Budget: b.Global},
		{Scope: BudgetScopeAir, Budget: b.Air},
		{Scope: BudgetScopeSea, Budget: b.Sea},
	} {
		if err := ns.Budget.Validate(); err != nil {
			return fmt.Errorf("budget %s: %w", ns.Scope, err)
		}
	}
	return nil
}
