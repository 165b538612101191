// Package export reads and writes the budget aggregate as a JSON
// document, used both for user-driven backup/restore and by the
// snapshot worker.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BLINDMO/honeycutt-budget-planner-sub000/internal/core"
)

// Write encodes the aggregate as indented JSON.
func Write(w io.Writer, agg core.BudgetAggregate) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg); err != nil {
		return fmt.Errorf("encode aggregate: %w", err)
	}
	return nil
}

// Read decodes an aggregate previously produced by Write. Documents
// from a newer schema version are rejected rather than silently
// misread.
func Read(r io.Reader) (core.BudgetAggregate, error) {
	var agg core.BudgetAggregate
	dec := json.NewDecoder(r)
	if err := dec.Decode(&agg); err != nil {
		return core.BudgetAggregate{}, fmt.Errorf("decode aggregate: %w", err)
	}
	if agg.Version > core.AggregateVersion {
		return core.BudgetAggregate{}, fmt.Errorf("unsupported aggregate version %d", agg.Version)
	}
	if agg.Version == 0 {
		agg.Version = core.AggregateVersion
	}
	return agg, nil
}

// WriteFile writes the aggregate to path atomically via a temp file
// in the same directory.
func WriteFile(path string, agg core.BudgetAggregate) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.json")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, agg); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace export file: %w", err)
	}
	return nil
}

// ReadFile loads an aggregate from a JSON export on disk.
func ReadFile(path string) (core.BudgetAggregate, error) {
	f, err := os.Open(path)
	if err != nil {
		return core.BudgetAggregate{}, fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
