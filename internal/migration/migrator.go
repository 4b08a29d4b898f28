// Package migration rewrites legacy flat emission factor tables into the
// banded factor set layout the emission package loads.
package migration

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rshade/freightfocus/internal/emission"
)

const (
	// migratedSubtype names the single flat subtype created per mode when a
	// legacy one-rate-per-mode table is rewritten.
	migratedSubtype = "standard"

	migratedName    = "migrated-factors"
	migratedVersion = "1.0.0"
	migratedSource  = "migrated from legacy flat factor table"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrNotLegacy indicates the file is already in the banded layout (or is
// not a factor table at all) and needs no migration.
const ErrNotLegacy = constError("not a legacy flat factor table")

// legacyTable matches the pre-1.0 factor file layout: one flat rate per
// mode under a top-level factors key, with no subtypes or distance bands.
type legacyTable struct {
	Factors map[string]float64 `yaml:"factors"`
	Modes   yaml.Node          `yaml:"modes"`
}

// DetectLegacy reports whether the file at path is a legacy flat factor
// table, returning its per-mode rates when it is. Missing, unreadable and
// already-banded files are not legacy; they are left for the factor loader
// to reject with its own diagnostics.
func DetectLegacy(path string) (map[string]float64, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var legacy legacyTable
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, false
	}
	if len(legacy.Factors) == 0 || !legacy.Modes.IsZero() {
		return nil, false
	}
	return legacy.Factors, true
}

// BackupPath returns where the original file is preserved during migration.
func BackupPath(path string) string {
	return path + ".bak"
}

// Convert builds a banded factor set from legacy per-mode flat rates. Each
// mode gets a single flat subtype so estimates produced after migration
// use the same intensity the legacy table specified.
func Convert(rates map[string]float64) *emission.FactorSet {
	modes := make(map[string]emission.ModeFactors, len(rates))
	for mode, rate := range rates {
		modes[mode] = emission.ModeFactors{
			Default: migratedSubtype,
			Subtypes: map[string]emission.Subtype{
				migratedSubtype: {KgPerTonneKM: rate},
			},
		}
	}
	return &emission.FactorSet{
		Name:    migratedName,
		Version: migratedVersion,
		Source:  migratedSource,
		Modes:   modes,
	}
}

// MigrateFactorsFile rewrites the legacy flat factor table at path into the
// banded layout. It preserves the original data by writing a copy to
// BackupPath(path) before touching the file.
func MigrateFactorsFile(path string) error {
	rates, legacy := DetectLegacy(path)
	if !legacy {
		return fmt.Errorf("%w: %s", ErrNotLegacy, path)
	}

	set := Convert(rates)
	if err := set.Validate(); err != nil {
		return fmt.Errorf("legacy rates do not form a valid factor set: %w", err)
	}
	data, err := yaml.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding migrated factor set: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if copyErr := copyFile(path, BackupPath(path)); copyErr != nil {
		return fmt.Errorf("backing up %s: %w", path, copyErr)
	}
	if writeErr := os.WriteFile(path, data, info.Mode()); writeErr != nil {
		return fmt.Errorf("writing migrated factor set: %w", writeErr)
	}
	return nil
}

// RunMigration handles the interactive migration of a legacy flat factor
// table. It is a no-op when path is empty, the file is not a legacy table,
// or a backup from an earlier migration already exists.
func RunMigration(out io.Writer, in io.Reader, path string) error {
	if path == "" {
		return nil
	}
	if _, legacy := DetectLegacy(path); !legacy {
		return nil
	}

	// An existing backup means an earlier run already migrated this file;
	// don't prompt again.
	if _, statErr := os.Stat(BackupPath(path)); statErr == nil {
		return nil
	}

	fmt.Fprintf(out, "Detected a legacy flat factor table at %s.\n", path)
	fmt.Fprintf(out, "Rewrite it to the banded layout? The original will be kept at %s. [y/N] ", BackupPath(path))

	var response string
	if _, scanErr := fmt.Fscanln(in, &response); scanErr != nil {
		// If we can't read input, treat as "no"
		response = ""
	}
	response = strings.ToLower(strings.TrimSpace(response))

	if response != "y" && response != "yes" {
		fmt.Fprintln(out, "Migration skipped. The legacy table cannot be loaded until it is migrated.")
		return nil
	}

	fmt.Fprintln(out, "Migrating factor table...")
	if migrateErr := MigrateFactorsFile(path); migrateErr != nil {
		return fmt.Errorf("migration failed: %w", migrateErr)
	}

	fmt.Fprintf(out, "Migration complete. Your old factor table has been preserved at %s.\n", BackupPath(path))
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	// Ensure parent directory exists
	if mkdirErr := os.MkdirAll(filepath.Dir(dst), 0700); mkdirErr != nil {
		return mkdirErr
	}

	destFile, createErr := os.Create(dst)
	if createErr != nil {
		return createErr
	}
	defer destFile.Close()

	if _, copyErr := io.Copy(destFile, sourceFile); copyErr != nil {
		return copyErr
	}

	sourceInfo, statErr := os.Stat(src)
	if statErr != nil {
		return statErr
	}

	return os.Chmod(dst, sourceInfo.Mode())
}
