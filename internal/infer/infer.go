// Package infer derives one column type per sampled column.
//
// Inference is a pure function of the sample and the configuration: the same
// inputs always produce the same schema. Types come from the closed set in
// the schema package, and VARCHAR widths are bucketed into configured tiers
// rather than raw observed maxima, so small day-to-day variations in the data
// do not churn the published schema.
package infer

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"ddlgen/internal/sample"
	"ddlgen/internal/schema"
)

// dateProbeValues caps how many non-null values the date/timestamp probe
// examines per column.
const dateProbeValues = 100

// Config carries the inference knobs loaded from the DDL configuration file.
type Config struct {
	// DefaultStringLength is the VARCHAR width used for all-null columns.
	DefaultStringLength int

	// VarcharTiers is the ascending list of allowed VARCHAR widths.
	VarcharTiers []int

	// DateFormats and TimestampFormats are Go time layouts, tried in order
	// (dates first). Order is significant: the first layout under which every
	// probed value parses wins, even if a later layout would also match.
	DateFormats      []string
	TimestampFormats []string
}

// Infer derives a schema from the sample, one column per header in header
// order. A sample with zero columns fails with schema.ErrSchemaEmpty.
func Infer(s *sample.Sample, cfg Config) (schema.Schema, error) {
	if s == nil || len(s.Headers) == 0 {
		return nil, schema.ErrSchemaEmpty
	}

	out := make(schema.Schema, 0, len(s.Headers))
	for i, header := range s.Headers {
		col := schema.Column{
			Name: schema.Normalize(header, i),
			Type: inferColumn(s.Column(i), cfg),
		}
		out = append(out, col)
	}
	return out, nil
}

// inferColumn classifies a single column's raw values.
//
// Order matters and mirrors the decision ladder of the generator this tool
// replaces: date/timestamp detection first (so "20250813" listed as a date
// layout beats the integer check), then the all-null fallback, then scalar
// kinds, then tiered VARCHAR.
func inferColumn(values []string, cfg Config) schema.Type {
	nonNull := make([]string, 0, len(values))
	maxLen := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonNull = append(nonNull, v)
		// VARCHAR widths count characters, not bytes.
		if n := utf8.RuneCountInString(v); n > maxLen {
			maxLen = n
		}
	}

	if t, ok := probeDate(nonNull, cfg.DateFormats, cfg.TimestampFormats); ok {
		return t
	}

	if len(nonNull) == 0 {
		// No information to tier on.
		return schema.Varchar(cfg.DefaultStringLength)
	}

	switch {
	case allInteger(nonNull):
		return schema.Integer
	case allFloat(nonNull):
		return schema.Float
	case allBoolean(nonNull):
		return schema.Boolean
	}

	return schema.Varchar(VarcharLength(maxLen, cfg.VarcharTiers, cfg.DefaultStringLength))
}

// probeDate tries each configured layout, dates before timestamps, against up
// to dateProbeValues non-null values. The first layout under which every
// probed value parses wins. Whether the winner yields DATE or TIMESTAMP
// depends on the layout itself: a layout carrying an hour or minute reference
// token has time-of-day granularity.
func probeDate(nonNull []string, dateFormats, timestampFormats []string) (schema.Type, bool) {
	probe := nonNull
	if len(probe) > dateProbeValues {
		probe = probe[:dateProbeValues]
	}
	if len(probe) == 0 {
		return schema.Type{}, false
	}

	layouts := make([]string, 0, len(dateFormats)+len(timestampFormats))
	layouts = append(layouts, dateFormats...)
	layouts = append(layouts, timestampFormats...)

	for _, layout := range layouts {
		if layout == "" {
			continue
		}
		if allParseAs(probe, layout) {
			if layoutHasTime(layout) {
				return schema.Timestamp, true
			}
			return schema.Date, true
		}
	}
	return schema.Type{}, false
}

func allParseAs(values []string, layout string) bool {
	for _, v := range values {
		if _, err := time.Parse(layout, v); err != nil {
			return false
		}
	}
	return true
}

// layoutHasTime reports whether a Go time layout encodes time-of-day
// granularity, i.e. carries an hour ("15", "03", "3") or minute ("04")
// reference token. Pure calendar-date layouts have neither.
func layoutHasTime(layout string) bool {
	return strings.Contains(layout, "15") ||
		strings.Contains(layout, "04") ||
		strings.Contains(layout, "03") ||
		strings.Contains(layout, "3")
}

func allInteger(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return false
		}
	}
	return true
}

func allFloat(values []string) bool {
	for _, v := range values {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return true
}

// allBoolean accepts the same loose boolean literals the wider probing
// pipeline accepts. Purely numeric flags ("0"/"1") never reach this check
// because the integer test runs first.
func allBoolean(values []string) bool {
	for _, v := range values {
		switch strings.ToLower(v) {
		case "1", "t", "true", "yes", "y", "0", "f", "false", "no", "n":
		default:
			return false
		}
	}
	return true
}

// VarcharLength selects the smallest tier that fits maxLen.
//
// A maxLen of zero (all-null column) returns the configured default. When no
// tier is large enough the largest tier is used; widths never grow beyond the
// configured ceiling even if the data would overflow it.
func VarcharLength(maxLen int, tiers []int, defaultLen int) int {
	if maxLen <= 0 {
		return defaultLen
	}
	for _, tier := range tiers {
		if maxLen <= tier {
			return tier
		}
	}
	if len(tiers) == 0 {
		return defaultLen
	}
	return tiers[len(tiers)-1]
}

// Validate rejects configurations the engine cannot run with: a non-positive
// default width, an empty tier list, or tiers that are not strictly
// ascending positives.
func (c Config) Validate() error {
	if c.DefaultStringLength < 1 {
		return fmt.Errorf("infer: default string length must be >= 1, got %d", c.DefaultStringLength)
	}
	if len(c.VarcharTiers) == 0 {
		return fmt.Errorf("infer: varchar tiers must not be empty")
	}
	prev := 0
	for i, tier := range c.VarcharTiers {
		if tier < 1 {
			return fmt.Errorf("infer: varchar tier %d must be >= 1, got %d", i, tier)
		}
		if tier <= prev {
			return fmt.Errorf("infer: varchar tiers must be strictly ascending, got %v", c.VarcharTiers)
		}
		prev = tier
	}
	return nil
}
