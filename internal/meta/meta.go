// Package meta reads the mask-metadata CSV that drives sample selection.
// Each row names a source clip, the mask object to erase, its caption and
// frame rate.
package meta

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Sample is one row of the metadata table.
type Sample struct {
	Path    string
	MaskID  int
	Caption string
	FPS     int
}

// Table is the parsed metadata file.
type Table struct {
	samples []Sample
}

// Load parses the CSV. A header row is required; the columns path, mask_id,
// caption and fps are matched by name so column order does not matter.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask meta: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse mask meta %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("mask meta %s: no data rows", path)
	}

	col := map[string]int{}
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, required := range []string{"path", "mask_id", "caption", "fps"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("mask meta %s: missing column %q", path, required)
		}
	}

	t := &Table{}
	for n, row := range rows[1:] {
		maskID, err := strconv.Atoi(row[col["mask_id"]])
		if err != nil {
			return nil, fmt.Errorf("mask meta row %d: bad mask_id %q", n, row[col["mask_id"]])
		}
		fps, err := strconv.Atoi(row[col["fps"]])
		if err != nil {
			return nil, fmt.Errorf("mask meta row %d: bad fps %q", n, row[col["fps"]])
		}
		t.samples = append(t.samples, Sample{
			Path:    row[col["path"]],
			MaskID:  maskID,
			Caption: row[col["caption"]],
			FPS:     fps,
		})
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.samples) }

// Sample returns row id (0-based).
func (t *Table) Sample(id int) (Sample, error) {
	if id < 0 || id >= len(t.samples) {
		return Sample{}, fmt.Errorf("sample id %d out of range [0, %d)", id, len(t.samples))
	}
	return t.samples[id], nil
}
