package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	rowsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghextract_rows_written_total",
		Help: "CSV rows written",
	})

	rowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghextract_rows_skipped_total",
		Help: "CSV rows dropped by the skip row policy",
	})
)

// RowPolicy decides what happens to a record that cannot be encoded.
type RowPolicy int

const (
	// RowAbort fails the export on the first bad record.
	RowAbort RowPolicy = iota

	// RowSkip logs the bad record, counts it and continues.
	RowSkip
)

func (p RowPolicy) String() string {
	if p == RowSkip {
		return "skip"
	}
	return "abort"
}

// ParseRowPolicy parses "abort" or "skip".
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return RowAbort, nil
	case "skip":
		return RowSkip, nil
	default:
		return RowAbort, fmt.Errorf("unknown row policy %q (want abort or skip)", s)
	}
}

// EncodeError reports a record whose cell could not be encoded.
type EncodeError struct {
	// Row is the 1-based record number, not counting the header.
	Row    int
	Column string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode row %d column %s: %v", e.Row, e.Column, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// CSV streams records of type R as CSV rows. The header is derived from R's
// csv struct tags and written before the first row, or by Flush when no row
// was written.
type CSV[R any] struct {
	w      *csv.Writer
	schema *schema
	policy RowPolicy
	logger zerolog.Logger

	headerDone bool
	seen       int
	written    int
	skipped    int
	cells      []string
}

// NewCSV creates a sink for record type R.
func NewCSV[R any](w io.Writer, policy RowPolicy) (*CSV[R], error) {
	s, err := schemaOf(reflect.TypeOf((*R)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return &CSV[R]{
		w:      csv.NewWriter(w),
		schema: s,
		policy: policy,
		logger: log.With().Str("component", "sink").Str("record", s.typ.Name()).Logger(),
		cells:  make([]string, len(s.columns)),
	}, nil
}

// Header returns the column names.
func (c *CSV[R]) Header() []string {
	return c.schema.header()
}

// WriteHeader writes the header row once.
func (c *CSV[R]) WriteHeader() error {
	if c.headerDone {
		return nil
	}
	c.headerDone = true
	if err := c.w.Write(c.schema.header()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

// Write encodes one record. Under RowSkip an unencodable record is dropped and
// nil is returned. Writer failures are always returned.
func (c *CSV[R]) Write(rec R) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	c.seen++

	if err := c.encode(reflect.ValueOf(rec)); err != nil {
		if c.policy == RowSkip {
			c.skipped++
			rowsSkipped.Inc()
			c.logger.Warn().Err(err).Int("row", c.seen).Msg("Skipping record")
			return nil
		}
		return err
	}

	if err := c.w.Write(c.cells); err != nil {
		return fmt.Errorf("write csv row %d: %w", c.seen, err)
	}
	c.written++
	rowsWritten.Inc()
	return nil
}

func (c *CSV[R]) encode(v reflect.Value) error {
	for i, col := range c.schema.columns {
		field, err := v.FieldByIndexErr(col.index)
		if err != nil {
			return &EncodeError{Row: c.seen, Column: col.name, Err: err}
		}
		text := cell(field)
		if !utf8.ValidString(text) {
			return &EncodeError{Row: c.seen, Column: col.name, Err: fmt.Errorf("invalid UTF-8")}
		}
		c.cells[i] = text
	}
	return nil
}

// Flush writes the header if nothing was written yet and flushes buffered rows.
func (c *CSV[R]) Flush() error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Written returns the number of rows written, excluding the header.
func (c *CSV[R]) Written() int {
	return c.written
}

// Skipped returns the number of records dropped under RowSkip.
func (c *CSV[R]) Skipped() int {
	return c.skipped
}
