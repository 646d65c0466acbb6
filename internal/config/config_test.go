package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const validJSON = `{
  "//": "settings for the bitcoin transaction dumps",
  "default_string_length": 16,
  "varchar_tiers": [4, 16, 256],
  "date_formats": ["2006-01-02"],
  "timestamp_formats": ["2006-01-02 15:04:05"],
  "usecols": ["hash", "time"]
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ddl_config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := &DDLConfig{
		DefaultStringLength: 16,
		VarcharTiers:        []int{4, 16, 256},
		DateFormats:         []string{"2006-01-02"},
		TimestampFormats:    []string{"2006-01-02 15:04:05"},
		UseCols:             []string{"hash", "time"},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load = %+v, want %+v", cfg, want)
	}
}

func TestLoadWithoutOptionalKeys(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `{
  "default_string_length": 16,
  "varchar_tiers": [16],
  "date_formats": [],
  "timestamp_formats": []
}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UseCols != nil {
		t.Errorf("UseCols = %v, want nil", cfg.UseCols)
	}
}

func TestLoadMissingRequiredKey(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"default_string_length", "varchar_tiers", "date_formats", "timestamp_formats"} {
		lines := []string{}
		for _, l := range strings.Split(validJSON, "\n") {
			if !strings.Contains(l, `"`+key+`"`) {
				lines = append(lines, l)
			}
		}
		broken := strings.Join(lines, "\n")
		if _, err := Load(writeConfig(t, broken)); err == nil {
			t.Errorf("config without %q accepted", key)
		}
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	withTypo := strings.Replace(validJSON, `"usecols"`, `"use_cols"`, 1)
	if _, err := Load(writeConfig(t, withTypo)); err == nil {
		t.Fatal("config with misspelled key accepted")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"zero default":   strings.Replace(validJSON, `"default_string_length": 16`, `"default_string_length": 0`, 1),
		"empty tiers":    strings.Replace(validJSON, `[4, 16, 256]`, `[]`, 1),
		"unsorted tiers": strings.Replace(validJSON, `[4, 16, 256]`, `[16, 4]`, 1),
		"malformed json": validJSON[:len(validJSON)-1],
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestInferConversion(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validJSON))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ic := cfg.Infer()
	if ic.DefaultStringLength != 16 || len(ic.VarcharTiers) != 3 {
		t.Errorf("Infer() = %+v", ic)
	}
}
