package cli

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/config"
)

func budgetFlagsCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("exit-on-threshold", false, "")
	cmd.Flags().Int("exit-code", 1, "")
	return cmd
}

func TestApplyBudgetFlagOverrides_NoFlagsChanged(t *testing.T) {
	cfg := config.DefaultConfig()

	applyBudgetFlagOverrides(budgetFlagsCommand(), cfg)

	assert.Nil(t, cfg.Emissions.Budgets, "untouched flags must not materialize a budget section")
}

func TestApplyBudgetFlagOverrides_MissingFlagsAreIgnored(t *testing.T) {
	cfg := config.DefaultConfig()

	// Commands outside the emissions group never register the budget flags.
	applyBudgetFlagOverrides(&cobra.Command{}, cfg)

	assert.Nil(t, cfg.Emissions.Budgets)
}

func TestApplyBudgetFlagOverrides_ExitOnThreshold(t *testing.T) {
	cmd := budgetFlagsCommand()
	require.NoError(t, cmd.Flags().Set("exit-on-threshold", "true"))

	cfg := config.DefaultConfig()
	applyBudgetFlagOverrides(cmd, cfg)

	require.NotNil(t, cfg.Emissions.Budgets)
	require.NotNil(t, cfg.Emissions.Budgets.Global)
	require.NotNil(t, cfg.Emissions.Budgets.Global.ExitOnThreshold)
	assert.True(t, *cfg.Emissions.Budgets.Global.ExitOnThreshold)
	assert.Nil(t, cfg.Emissions.Budgets.Global.ExitCode, "exit-code stays inherited when not set")
}

func TestApplyBudgetFlagOverrides_ExitCode(t *testing.T) {
	cmd := budgetFlagsCommand()
	require.NoError(t, cmd.Flags().Set("exit-code", "3"))

	cfg := config.DefaultConfig()
	applyBudgetFlagOverrides(cmd, cfg)

	require.NotNil(t, cfg.Emissions.Budgets)
	require.NotNil(t, cfg.Emissions.Budgets.Global.ExitCode)
	assert.Equal(t, 3, *cfg.Emissions.Budgets.Global.ExitCode)
}

func TestApplyBudgetFlagOverrides_KeepsConfiguredLimit(t *testing.T) {
	cmd := budgetFlagsCommand()
	require.NoError(t, cmd.Flags().Set("exit-on-threshold", "true"))

	cfg := config.DefaultConfig()
	cfg.Emissions.Budgets = &config.BudgetsConfig{
		Global: &config.ScopedBudget{LimitKg: 500},
	}
	applyBudgetFlagOverrides(cmd, cfg)

	assert.Equal(t, 500.0, cfg.Emissions.Budgets.Global.LimitKg)
	require.NotNil(t, cfg.Emissions.Budgets.Global.ExitOnThreshold)
	assert.True(t, *cfg.Emissions.Budgets.Global.ExitOnThreshold)
}

func TestResolverMaxRetries(t *testing.T) {
	tests := []struct {
		name    string
		routing *config.RoutingConfig
		want    int
	}{
		{
			name:    "no routing section uses resolver default",
			routing: nil,
			want:    0,
		},
		{
			name:    "unset retries use routing default",
			routing: &config.RoutingConfig{},
			want:    config.DefaultMaxRetries,
		},
		{
			name:    "explicit zero disables retries",
			routing: &config.RoutingConfig{Retry: config.RetryConfig{MaxRetries: intPtr(0)}},
			want:    -1,
		},
		{
			name:    "explicit value passes through",
			routing: &config.RoutingConfig{Retry: config.RetryConfig{MaxRetries: intPtr(4)}},
			want:    4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Routing = tt.routing
			assert.Equal(t, tt.want, resolverMaxRetries(cfg))
		})
	}
}

func TestResolverRetryBackoff(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Zero(t, resolverRetryBackoff(cfg), "no routing section defers to the resolver default")

	cfg.Routing = &config.RoutingConfig{Retry: config.RetryConfig{BackoffMS: 100}}
	assert.Equal(t, 100*time.Millisecond, resolverRetryBackoff(cfg))
}

func TestBuildGeocoder_DefaultChain(t *testing.T) {
	cfg := config.DefaultConfig()

	client := buildGeocoder(context.Background(), cfg)
	assert.NotNil(t, client, "no configuration falls back to the built-in Nominatim provider")
}

func TestBuildGeocoder_UnknownProvidersOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Routing = &config.RoutingConfig{
		Providers: []config.ProviderRouting{{Name: "fancygeo"}},
	}

	client := buildGeocoder(context.Background(), cfg)
	assert.Nil(t, client, "a chain of only unknown providers disables geocoding")
}

func TestBuildGeocoder_SkipsUnknownKeepsKnown(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Routing = &config.RoutingConfig{
		Providers: []config.ProviderRouting{
			{Name: "fancygeo", Priority: 10},
			{Name: "nominatim", BaseURL: "https://nominatim.example.test"},
		},
	}

	client := buildGeocoder(context.Background(), cfg)
	assert.NotNil(t, client)
}

func TestBuildEmissionModel_Defaults(t *testing.T) {
	model, err := buildEmissionModel(config.DefaultConfig())
	require.NoError(t, err)
	assert.NotNil(t, model)
}

func TestBuildEmissionModel_MissingFactorsFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Emissions.FactorsFile = "/nonexistent/factors.yaml"

	_, err := buildEmissionModel(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading emission factors")
}

func TestNewAuditContext(t *testing.T) {
	params := map[string]string{"shipments": "shipments.json"}
	audit := newAuditContext(context.Background(), "emissions estimate", params)

	require.NotNil(t, audit)
	assert.Equal(t, "emissions estimate", audit.command)
	assert.Equal(t, params, audit.params)
	assert.NotNil(t, audit.logger, "a bare context yields the no-op audit logger")
	assert.False(t, audit.start.IsZero())

	// Both log paths must work against the no-op logger.
	audit.logSuccess(context.Background(), 2, 123.4)
	audit.logFailure(context.Background(), assert.AnError)
}
