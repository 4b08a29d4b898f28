package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/freightfocus/internal/cli"
	"github.com/rshade/freightfocus/internal/config"
)

// setupConfigInitTest sets common env vars and registers cleanup for global state.
func setupConfigInitTest(t *testing.T) {
	t.Helper()
	t.Setenv("FREIGHTFOCUS_LOG_LEVEL", "error")
	t.Setenv("FREIGHTFOCUS_SKIP_MIGRATION_CHECK", "1")
	config.ResetGlobalConfigForTest()
	t.Cleanup(func() {
		config.ResetGlobalConfigForTest()
		config.SetResolvedProjectDir("")
	})
}

// TestConfigInit_InsideProject verifies that running "config init" with a
// resolved project directory creates project-local .freightfocus/config.yaml
// and .freightfocus/.gitignore.
func TestConfigInit_InsideProject(t *testing.T) {
	setupConfigInitTest(t)

	tmpDir := t.TempDir()

	// Use FREIGHTFOCUS_PROJECT_DIR to simulate being inside a project
	// (avoids depending on the test process working directory).
	t.Setenv("FREIGHTFOCUS_PROJECT_DIR", tmpDir)

	// Point FREIGHTFOCUS_HOME at an isolated global dir so we don't touch the real home
	globalDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", globalDir)

	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init"})

	err := cmd.Execute()
	require.NoError(t, err, "config init should succeed inside a project")

	output := buf.String()
	assert.Contains(t, output, "Configuration initialized at")
	assert.Contains(t, output, "Created .gitignore to protect user-specific data")

	configPath := filepath.Join(tmpDir, ".freightfocus", "config.yaml")
	_, statErr := os.Stat(configPath)
	require.NoError(t, statErr, ".freightfocus/config.yaml should exist")

	gitignorePath := filepath.Join(tmpDir, ".freightfocus", ".gitignore")
	gitignoreData, readErr := os.ReadFile(gitignorePath)
	require.NoError(t, readErr, ".freightfocus/.gitignore should exist")
	assert.Equal(t, config.GitignoreContent(), string(gitignoreData),
		".gitignore content should match the standard template")

	// A project-local init must not write the global config.
	_, statErr = os.Stat(filepath.Join(globalDir, "config.yaml"))
	assert.True(t, os.IsNotExist(statErr),
		"global config.yaml should NOT be created by a project-local init")
}

// TestConfigInit_ProjectDirFlag verifies that --project-dir selects the
// project to initialize without relying on environment discovery.
func TestConfigInit_ProjectDirFlag(t *testing.T) {
	setupConfigInitTest(t)

	tmpDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--project-dir", tmpDir})

	require.NoError(t, cmd.Execute())

	_, statErr := os.Stat(filepath.Join(tmpDir, ".freightfocus", "config.yaml"))
	require.NoError(t, statErr, "--project-dir should control where config.yaml is created")
}

// TestConfigInit_ExistingGitignorePreserved verifies that "config init --force"
// does NOT overwrite an existing .gitignore file.
func TestConfigInit_ExistingGitignorePreserved(t *testing.T) {
	setupConfigInitTest(t)

	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, ".freightfocus")
	require.NoError(t, os.MkdirAll(projectDir, 0o750))

	customContent := "# my custom gitignore\n*.secret\n"
	gitignorePath := filepath.Join(projectDir, ".gitignore")
	require.NoError(t, os.WriteFile(gitignorePath, []byte(customContent), 0o644))

	t.Setenv("FREIGHTFOCUS_PROJECT_DIR", tmpDir)
	t.Setenv("FREIGHTFOCUS_HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--force"})

	require.NoError(t, cmd.Execute())

	gitignoreData, readErr := os.ReadFile(gitignorePath)
	require.NoError(t, readErr)
	assert.Equal(t, customContent, string(gitignoreData),
		"an existing .gitignore must never be overwritten")
	assert.NotContains(t, buf.String(), "Created .gitignore")
}

// TestConfigInit_GlobalFlag verifies that --global creates configuration in
// the global FREIGHTFOCUS_HOME directory even when a project is resolved.
func TestConfigInit_GlobalFlag(t *testing.T) {
	setupConfigInitTest(t)

	tmpDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_PROJECT_DIR", tmpDir)

	globalDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", globalDir)

	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--global"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Configuration initialized successfully")
	assert.Contains(t, output, "Configuration file:")

	_, statErr := os.Stat(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, statErr, "global config.yaml should exist in FREIGHTFOCUS_HOME")

	_, statErr = os.Stat(filepath.Join(tmpDir, ".freightfocus", "config.yaml"))
	assert.True(t, os.IsNotExist(statErr),
		"project-local config.yaml should NOT exist when --global is used")
}

// TestConfigInit_OutsideProject verifies that without a resolved project
// directory the command falls back to global configuration init.
func TestConfigInit_OutsideProject(t *testing.T) {
	setupConfigInitTest(t)

	globalDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", globalDir)

	// Use NewConfigInitCmd directly to avoid the root PersistentPreRunE
	// resolving a project against the test working directory.
	config.SetResolvedProjectDir("")
	cmd := cli.NewConfigInitCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "Configuration initialized successfully")

	_, statErr := os.Stat(filepath.Join(globalDir, "config.yaml"))
	require.NoError(t, statErr, "global config.yaml should be created outside a project")
}

// TestConfigInit_ExistingWithoutForce verifies that init refuses to clobber
// an existing configuration file unless --force is given.
func TestConfigInit_ExistingWithoutForce(t *testing.T) {
	setupConfigInitTest(t)

	globalDir := t.TempDir()
	t.Setenv("FREIGHTFOCUS_HOME", globalDir)
	existing := filepath.Join(globalDir, "config.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("output:\n  default_format: json\n"), 0o600))

	config.SetResolvedProjectDir("")
	cmd := cli.NewConfigInitCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file already exists, use --force to overwrite")
}

// TestConfigInit_ForceOverwritesConfig verifies that "config init --force"
// replaces an existing project config.yaml with fresh defaults.
func TestConfigInit_ForceOverwritesConfig(t *testing.T) {
	setupConfigInitTest(t)

	tmpDir := t.TempDir()
	projectDir := filepath.Join(tmpDir, ".freightfocus")
	require.NoError(t, os.MkdirAll(projectDir, 0o750))

	existingConfig := filepath.Join(projectDir, "config.yaml")
	originalContent := "# old config\noutput:\n  default_format: json\n"
	require.NoError(t, os.WriteFile(existingConfig, []byte(originalContent), 0o600))

	t.Setenv("FREIGHTFOCUS_PROJECT_DIR", tmpDir)
	t.Setenv("FREIGHTFOCUS_HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"config", "init", "--force"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Configuration initialized at")

	newContent, readErr := os.ReadFile(existingConfig)
	require.NoError(t, readErr)
	assert.NotEqual(t, originalContent, string(newContent),
		"config.yaml should be rewritten with default content")
	assert.NotEmpty(t, string(newContent))
}
