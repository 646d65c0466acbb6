// Package config loads and validates the DDL generation configuration.
//
// The configuration format is deliberately strict: every recognized field is
// enumerated, unknown fields are rejected, and required fields get no partial
// defaults. A malformed document fails the whole run rather than silently
// degrading inference quality.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"ddlgen/internal/infer"
)

// DDLConfig is the validated inference configuration.
//
// The on-disk form is a JSON object:
//
//	{
//	  "//": "optional comment",
//	  "default_string_length": 16,
//	  "varchar_tiers": [16, 32, 64, 128, 256, 512, 1024, 4096],
//	  "date_formats": ["2006-01-02"],
//	  "timestamp_formats": ["2006-01-02 15:04:05"],
//	  "usecols": []
//	}
//
// default_string_length, varchar_tiers, date_formats and timestamp_formats
// are required; usecols and the "//" comment key are optional.
type DDLConfig struct {
	DefaultStringLength int
	VarcharTiers        []int
	DateFormats         []string
	TimestampFormats    []string
	UseCols             []string
}

// rawConfig uses pointers so that a missing required key is distinguishable
// from a present-but-zero value.
type rawConfig struct {
	Comment             *string   `json:"//"`
	DefaultStringLength *int      `json:"default_string_length"`
	VarcharTiers        *[]int    `json:"varchar_tiers"`
	DateFormats         *[]string `json:"date_formats"`
	TimestampFormats    *[]string `json:"timestamp_formats"`
	UseCols             *[]string `json:"usecols"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*DDLConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	var raw rawConfig
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg, err := raw.validate()
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (r rawConfig) validate() (*DDLConfig, error) {
	switch {
	case r.DefaultStringLength == nil:
		return nil, fmt.Errorf("missing required key %q", "default_string_length")
	case r.VarcharTiers == nil:
		return nil, fmt.Errorf("missing required key %q", "varchar_tiers")
	case r.DateFormats == nil:
		return nil, fmt.Errorf("missing required key %q", "date_formats")
	case r.TimestampFormats == nil:
		return nil, fmt.Errorf("missing required key %q", "timestamp_formats")
	}

	cfg := &DDLConfig{
		DefaultStringLength: *r.DefaultStringLength,
		VarcharTiers:        *r.VarcharTiers,
		DateFormats:         *r.DateFormats,
		TimestampFormats:    *r.TimestampFormats,
	}
	if r.UseCols != nil {
		cfg.UseCols = *r.UseCols
	}

	// The inference package owns the numeric constraints; reuse them so the
	// CLI and library paths cannot drift apart.
	if err := cfg.Infer().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Infer converts the loaded document into the inference engine's config.
func (c *DDLConfig) Infer() infer.Config {
	return infer.Config{
		DefaultStringLength: c.DefaultStringLength,
		VarcharTiers:        c.VarcharTiers,
		DateFormats:         c.DateFormats,
		TimestampFormats:    c.TimestampFormats,
	}
}
