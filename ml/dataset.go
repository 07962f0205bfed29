package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// GameRow is one historical game: the pre-game features and the final run totals.
type GameRow struct {
	Features     FeatureRecord
	HomeTeamRuns float64
	AwayTeamRuns float64
}

// Dataset is a column-addressable table of numeric values. Columns are looked up
// by name so a training source only has to provide the required column names.
type Dataset struct {
	columns map[string][]float64
	rows    int
}

func NewDataset(columns map[string][]float64) (*Dataset, error) {
	ds := &Dataset{columns: make(map[string][]float64, len(columns)), rows: -1}
	for name, values := range columns {
		if ds.rows == -1 {
			ds.rows = len(values)
		} else if len(values) != ds.rows {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", name, len(values), ds.rows)
		}
		ds.columns[name] = append([]float64(nil), values...)
	}
	if ds.rows == -1 {
		ds.rows = 0
	}
	return ds, nil
}

func DatasetFromGames(games []GameRow) *Dataset {
	columns := make(map[string][]float64, len(RequiredColumns()))
	for _, name := range RequiredColumns() {
		columns[name] = make([]float64, len(games))
	}
	names := FeatureNames()
	for i, game := range games {
		for j, value := range FeatureVector(game.Features) {
			columns[names[j]][i] = value
		}
		columns[LabelHomeRuns][i] = game.HomeTeamRuns
		columns[LabelAwayRuns][i] = game.AwayTeamRuns
	}
	return &Dataset{columns: columns, rows: len(games)}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return d.rows
}

func (d *Dataset) Column(name string) ([]float64, bool) {
	if d == nil {
		return nil, false
	}
	values, ok := d.columns[name]
	return values, ok
}

func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.columns))
	for name := range d.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DropColumn returns a copy of the dataset without the named column.
func (d *Dataset) DropColumn(name string) *Dataset {
	columns := make(map[string][]float64, len(d.columns))
	for key, values := range d.columns {
		if key != name {
			columns[key] = values
		}
	}
	return &Dataset{columns: columns, rows: d.rows}
}

// MissingColumns reports the required names not present, in the order given.
func (d *Dataset) MissingColumns(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := d.Column(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (d *Dataset) matrix(names []string, indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for i, idx := range indices {
		row := make([]float64, len(names))
		for j, name := range names {
			row[j] = d.columns[name][idx]
		}
		out[i] = row
	}
	return out
}

func (d *Dataset) values(name string, indices []int) []float64 {
	column := d.columns[name]
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = column[idx]
	}
	return out
}

// ReadCSV loads a dataset from CSV with a header row. Every column must be numeric.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv is empty")
		}
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	columns := make(map[string][]float64, len(header))
	for _, name := range header {
		if _, dup := columns[name]; dup {
			return nil, fmt.Errorf("duplicate column %s", name)
		}
		columns[name] = nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for i, field := range record {
			value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			columns[header[i]] = append(columns[header[i]], value)
		}
	}
	return NewDataset(columns)
}
