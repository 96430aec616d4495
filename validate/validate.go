// Package validate checks game configuration files before they are served.
// It checks:
//   - the file parses as YAML or JSON
//   - every field is a known config field
//   - the engine accepts the config (ranges, message placeholders, every
//     level fits on the board)
//   - each level is playable: the move budget covers the shortest route
//     and special cells leave room on the board
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/resource-rush/game/config"
	"github.com/wricardo/resource-rush/game/engine"
)

// crowdedRatio is the share of free cells above which a level is reported
// as crowded
const crowdedRatio = 0.5

// ValidationResult captures the outcome of validating a single file.
// Warnings never make a file invalid.
type ValidationResult struct {
	File     string   `json:"file"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateFile loads and validates a single configuration file
func ValidateFile(path string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(path),
		Valid:    true,
		Errors:   []string{},
		Warnings: []string{},
	}

	ext := strings.ToLower(filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	cfg, err := config.DecodeConfig(data, ext)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if unknown := strictDecode(data, ext); unknown != nil {
		result.warn("Unknown field: %v", unknown)
	}

	if err := engine.ValidateGameConfig(cfg); err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), engine.ErrInvalidGameConfig.Error()+": "))
		return result
	}

	checkPlayability(cfg, &result)
	return result
}

// strictDecode decodes again rejecting unknown fields. Only the unknown
// field error is returned; syntax errors were already reported.
func strictDecode(data []byte, ext string) error {
	var cfg engine.GameConfig

	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil && strings.Contains(err.Error(), "unknown field") {
			return err
		}
	}
	return nil
}

// checkPlayability warns about levels that are impossible or crowded
func checkPlayability(cfg *engine.GameConfig, result *ValidationResult) {
	route := engine.ShortestRoute(cfg.GridSize)
	free := cfg.GridSize*cfg.GridSize - 2

	for _, plan := range cfg.PlanLevels() {
		if plan.Moves < route {
			result.warn("Level %d: %d moves cannot cover the shortest route of %d", plan.Level, plan.Moves, route)
		}

		special := plan.PenaltyCells + plan.ResourceCells
		if float64(special) > crowdedRatio*float64(free) {
			result.warn("Level %d: %d special cells fill %d%% of the %d free cells",
				plan.Level, special, special*100/free, free)
		}
	}

	if cfg.Seed != 0 {
		result.warn("Seed %d makes every game generate the same boards", cfg.Seed)
	}
}

// ValidateDir validates every config file in dir, sorted by file name
func ValidateDir(dir string) ([]ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		for _, ext := range config.Extensions {
			if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				files = append(files, entry.Name())
				break
			}
		}
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, name := range files {
		results = append(results, ValidateFile(filepath.Join(dir, name)))
	}
	return results, nil
}

// AllValid reports whether every result is valid
func AllValid(results []ValidationResult) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}
