package insights

import (
	"context"

	"github.com/rshade/freightfocus/internal/config"
	"github.com/rshade/freightfocus/internal/emission"
	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// Health classification bounds as percentages of the budget limit.
const (
	// HealthThresholdWarning marks the utilization at which a budget turns
	// to warning.
	HealthThresholdWarning = 80.0
	// HealthThresholdCritical marks the utilization at which a budget turns
	// to critical.
	HealthThresholdCritical = 90.0
	// HealthThresholdExceeded marks full consumption of the limit.
	HealthThresholdExceeded = 100.0
)

// ApproachingBuffer is the band below an alert threshold, in percentage
// points, that reads as approaching rather than ok.
const ApproachingBuffer = 5.0

const percentMultiplier = 100.0

// BudgetHealth grades overall budget consumption.
type BudgetHealth string

// Budget health grades, from healthy to blown.
const (
	BudgetHealthOK       BudgetHealth = "ok"
	BudgetHealthWarning  BudgetHealth = "warning"
	BudgetHealthCritical BudgetHealth = "critical"
	BudgetHealthExceeded BudgetHealth = "exceeded"
)

// AlertState is the evaluation result for a single alert threshold.
type AlertState string

// Alert states.
const (
	AlertStateOK          AlertState = "OK"
	AlertStateApproaching AlertState = "APPROACHING"
	AlertStateExceeded    AlertState = "EXCEEDED"
)

// AlertStatus reports one configured alert against the run's emissions.
type AlertStatus struct {
	Threshold float64          `json:"threshold"`
	Type      config.AlertType `json:"type"`
	State     AlertState       `json:"state"`
}

// BudgetStatus reports one scope's consumption for the run. ForecastKg
// projects the total a fully resolved batch would reach by scaling each
// shipment's estimated emissions up to its resolvable leg count; skipped
// legs stay out of the projection since no factor can ever price them.
type BudgetStatus struct {
	Scope          string        `json:"scope"`
	LimitKg        float64       `json:"limit_kg"`
	ActualKg       float64       `json:"actual_kg"`
	ForecastKg     float64       `json:"forecast_kg"`
	UtilizationPct float64       `json:"utilization_pct"`
	ForecastPct    float64       `json:"forecast_pct"`
	Health         BudgetHealth  `json:"health"`
	Alerts         []AlertStatus `json:"alerts"`
}

// Breached reports whether any alert of this scope has been exceeded.
func (s BudgetStatus) Breached() bool {
	for _, alert := range s.Alerts {
		if alert.State == AlertStateExceeded {
			return true
		}
	}
	return false
}

// EvaluateBudgets checks the run's emissions against every enabled budget
// scope. The global scope sums whole-shipment totals; mode scopes sum the
// estimated legs of that mode only.
func EvaluateBudgets(
	ctx context.Context,
	budgets *config.BudgetsConfig,
	results []engine.ShipmentResult,
) []BudgetStatus {
	scopes := budgets.Scopes()
	if len(scopes) == 0 {
		return nil
	}

	log := logging.FromContext(ctx)

	statuses := make([]BudgetStatus, 0, len(scopes))
	for _, ns := range scopes {
		actual, forecast := scopeEmissions(results, ns.Scope)
		status := evaluateScope(ns, actual, forecast)
		statuses = append(statuses, status)

		log.Debug().
			Ctx(ctx).
			Str("component", "insights").
			Str("operation", "evaluate_budget").
			Str("scope", status.Scope).
			Float64("limit_kg", status.LimitKg).
			Float64("actual_kg", status.ActualKg).
			Float64("forecast_kg", status.ForecastKg).
			Float64("utilization_pct", status.UtilizationPct).
			Str("health", string(status.Health)).
			Msg("budget scope evaluated")
	}
	return statuses
}

// FirstBreached returns the first breached scope, or nil when every budget
// holds. Scopes evaluate global first, so a global breach wins the exit
// decision over a mode breach.
func FirstBreached(statuses []BudgetStatus) *BudgetStatus {
	for i := range statuses {
		if statuses[i].Breached() {
			return &statuses[i]
		}
	}
	return nil
}

func evaluateScope(ns config.NamedScope, actual, forecast float64) BudgetStatus {
	limit := ns.Budget.LimitKg
	utilization := actual / limit * percentMultiplier
	forecastPct := forecast / limit * percentMultiplier

	alerts := ns.Budget.EffectiveAlerts()
	alertStatuses := make([]AlertStatus, 0, len(alerts))
	for _, alert := range alerts {
		pct := utilization
		if alert.Type == config.AlertTypeForecasted {
			pct = forecastPct
		}
		alertStatuses = append(alertStatuses, AlertStatus{
			Threshold: alert.Threshold,
			Type:      alert.Type,
			State:     alertState(alert.Threshold, pct),
		})
	}

	return BudgetStatus{
		Scope:          ns.Scope,
		LimitKg:        limit,
		ActualKg:       actual,
		ForecastKg:     forecast,
		UtilizationPct: utilization,
		ForecastPct:    forecastPct,
		Health:         healthFor(utilization),
		Alerts:         alertStatuses,
	}
}

// alertState grades a single threshold.
func alertState(threshold, pct float64) AlertState {
	switch {
	case pct >= threshold:
		return AlertStateExceeded
	case pct >= threshold-ApproachingBuffer:
		return AlertStateApproaching
	default:
		return AlertStateOK
	}
}

// healthFor grades actual utilization.
func healthFor(utilization float64) BudgetHealth {
	switch {
	case utilization >= HealthThresholdExceeded:
		return BudgetHealthExceeded
	case utilization >= HealthThresholdCritical:
		return BudgetHealthCritical
	case utilization >= HealthThresholdWarning:
		return BudgetHealthWarning
	default:
		return BudgetHealthOK
	}
}

// scopeEmissions sums a scope's actual emissions and its completeness-scaled
// forecast across the batch.
func scopeEmissions(results []engine.ShipmentResult, scope string) (actual, forecast float64) {
	for _, result := range results {
		a, f := shipmentScopeEmissions(result, scope)
		actual += a
		forecast += f
	}
	return actual, forecast
}

// shipmentScopeEmissions reduces one shipment to a scope's actual and
// forecast kg. The forecast assumes unresolved legs would emit like the
// estimated ones: actual scaled by resolvable legs over estimated legs.
func shipmentScopeEmissions(result engine.ShipmentResult, scope string) (actual, forecast float64) {
	var estimated, resolvable int
	for _, leg := range result.Legs {
		if scope != config.BudgetScopeGlobal && leg.Mode != emission.Mode(scope) {
			continue
		}
		switch leg.Status {
		case engine.LegStatusEstimated:
			actual += leg.EmissionsKg
			estimated++
			resolvable++
		case engine.LegStatusUnresolved:
			resolvable++
		case engine.LegStatusSkipped:
			// Never countable, leave it out of the projection.
		}
	}

	if estimated == 0 {
		return actual, actual
	}
	return actual, actual * float64(resolvable) / float64(estimated)
}
