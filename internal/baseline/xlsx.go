package baseline

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/extraction-eval/internal/model"
)

// Ground-truth sheets carry one row per attribute path:
//
//	section_id | attribute | value
//
// Dot-separated attribute paths build nested records. Cell values that parse
// as JSON keep their decoded type; everything else stays a string.

// ReadGroundTruthXLSX decodes a ground-truth workbook into per-section
// expected records. The first row is the header and is skipped.
func ReadGroundTruthXLSX(path string) (map[string]model.ExtractedRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "baseline: open xlsx")
	}
	return decodeGroundTruth(f)
}

// ReadGroundTruthXLSXBytes decodes a ground-truth workbook from memory.
func ReadGroundTruthXLSXBytes(data []byte) (map[string]model.ExtractedRecord, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "baseline: open xlsx")
	}
	return decodeGroundTruth(f)
}

func decodeGroundTruth(f *xlsx.File) (map[string]model.ExtractedRecord, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("baseline: workbook has no sheets")
	}
	sheet := f.Sheets[0]

	expected := make(map[string]model.ExtractedRecord)
	for i, row := range sheet.Rows {
		if i == 0 {
			continue // header
		}
		cells := rowToStrings(row)
		if len(cells) < 3 {
			continue
		}
		sectionID := strings.TrimSpace(cells[0])
		attrPath := strings.TrimSpace(cells[1])
		if sectionID == "" || attrPath == "" {
			continue
		}

		rec, ok := expected[sectionID]
		if !ok {
			rec = model.ExtractedRecord{}
			expected[sectionID] = rec
		}
		if err := setPath(rec, attrPath, decodeCell(cells[2])); err != nil {
			return nil, eris.Wrapf(err, "baseline: row %d", i+1)
		}
	}
	return expected, nil
}

// decodeCell keeps JSON-typed cells (numbers, booleans, arrays, objects) and
// falls back to the raw string.
func decodeCell(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		switch v.(type) {
		case float64, bool, []any, map[string]any:
			return v
		}
	}
	return trimmed
}

// setPath writes a value at a dot-separated path, creating intermediate maps.
func setPath(rec map[string]any, path string, v any) error {
	parts := strings.Split(path, ".")
	cur := rec
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p]
		if !ok {
			m := map[string]any{}
			cur[p] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return eris.Errorf("path %q collides with a scalar at %q", path, p)
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = v
	return nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

// loadExpectedXLSX fetches an XLSX reference (possibly remote) and decodes it.
func (l *Loader) loadExpectedXLSX(ctx context.Context, ref string) (map[string]model.ExtractedRecord, error) {
	if !strings.Contains(ref, "://") {
		return ReadGroundTruthXLSX(ref)
	}

	rc, err := l.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrap(err, "baseline: read xlsx body")
	}
	return ReadGroundTruthXLSXBytes(data)
}
