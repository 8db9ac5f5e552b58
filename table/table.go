// Copyright 2023 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table implements the uniform tabular result type returned by all
// API endpoints: ordered rows of typed cells, named ordered columns, and a
// declared row-key column.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/stockparfait/errors"
)

type cellKind uint8

const (
	noneCell cellKind = iota
	numberCell
	stringCell
	timeCell
)

// Cell of a table Row: a number, a string, a timestamp, or an explicit "no
// value" marker for missing observations.
type Cell struct {
	kind   cellKind
	number float64
	string string
	time   time.Time
}

// None creates the explicit "no value" cell.
func None() Cell {
	return Cell{}
}

func Number(n float64) Cell {
	return Cell{kind: numberCell, number: n}
}

func String(s string) Cell {
	return Cell{kind: stringCell, string: s}
}

func Time(t time.Time) Cell {
	return Cell{kind: timeCell, time: t}
}

// IsNone tests for the "no value" marker.
func (c Cell) IsNone() bool { return c.kind == noneCell }

// Float returns the numeric value; ok is false for non-number cells.
func (c Cell) Float() (v float64, ok bool) {
	return c.number, c.kind == numberCell
}

// Timestamp returns the time value; ok is false for non-time cells.
func (c Cell) Timestamp() (t time.Time, ok bool) {
	return c.time, c.kind == timeCell
}

// String prints the cell in its canonical text form; the "no value" cell
// prints as an empty string.
func (c Cell) String() string {
	switch c.kind {
	case numberCell:
		return strconv.FormatFloat(c.number, 'g', -1, 64)
	case stringCell:
		return c.string
	case timeCell:
		if c.time.Hour() == 0 && c.time.Minute() == 0 && c.time.Second() == 0 {
			return c.time.Format("2006-01-02")
		}
		return c.time.Format("2006-01-02 15:04:05")
	}
	return ""
}

// Row is a single table row, aligned with the table's columns.
type Row []Cell

// Table is the canonical result of any API call, regardless of the endpoint:
// an ordered sequence of rows over named ordered columns. One column is the
// declared row key (typically a timestamp or a symbol). Row and column order
// is preserved exactly as returned by the data source; rows are never
// re-sorted.
type Table struct {
	key      string
	columns  []string
	colIndex map[string]int
	Rows     []Row
}

// New creates an empty table with the given row-key column and optional
// additional columns. If the key is not among the columns, it becomes the
// first column. An empty key defaults to the first column, when present.
func New(key string, columns ...string) *Table {
	t := &Table{colIndex: make(map[string]int)}
	if key != "" {
		if _, ok := index(columns, key); !ok {
			columns = append([]string{key}, columns...)
		}
	} else if len(columns) > 0 {
		key = columns[0]
	}
	t.key = key
	for _, col := range columns {
		t.AddColumn(col)
	}
	return t
}

func index(columns []string, name string) (int, bool) {
	for i, c := range columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Key returns the name of the row-key column.
func (t *Table) Key() string { return t.key }

// Columns returns the column names in order. The result must not be modified.
func (t *Table) Columns() []string { return t.columns }

func (t *Table) NumColumns() int { return len(t.columns) }

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.colIndex[name]
	return i, ok
}

// AddColumn appends a new column and back-fills the existing rows with the
// "no value" cell. Adding an existing column simply returns its index.
func (t *Table) AddColumn(name string) int {
	if i, ok := t.colIndex[name]; ok {
		return i
	}
	i := len(t.columns)
	t.columns = append(t.columns, name)
	t.colIndex[name] = i
	for r, row := range t.Rows {
		t.Rows[r] = append(row, None())
	}
	return i
}

// RenameColumn changes the name of the i'th column, keeping the row key in
// sync when it is the renamed column. Renaming to an existing name is an
// error, as it would make ColumnIndex ambiguous.
func (t *Table) RenameColumn(i int, name string) error {
	if i < 0 || i >= len(t.columns) {
		return errors.Reason("column index %d is out of range [0..%d)",
			i, len(t.columns))
	}
	old := t.columns[i]
	if name == old {
		return nil
	}
	if _, ok := t.colIndex[name]; ok {
		return errors.Reason("cannot rename column %q to %q: name already in use",
			old, name)
	}
	delete(t.colIndex, old)
	t.columns[i] = name
	t.colIndex[name] = i
	if t.key == old {
		t.key = name
	}
	return nil
}

// AddRow appends a row, padding it with "no value" cells up to the current
// number of columns. A row longer than the number of columns is an error.
func (t *Table) AddRow(cells ...Cell) error {
	if len(cells) > len(t.columns) {
		return errors.Reason("row size %d exceeds the number of columns %d",
			len(cells), len(t.columns))
	}
	row := make(Row, len(t.columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
	return nil
}

// Cell returns the cell at the given row for the named column, or the "no
// value" cell if either doesn't exist.
func (t *Table) Cell(row int, column string) Cell {
	if row < 0 || row >= len(t.Rows) {
		return None()
	}
	i, ok := t.colIndex[column]
	if !ok || i >= len(t.Rows[row]) {
		return None()
	}
	return t.Rows[row][i]
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

func (t *Table) strings(row Row) []string {
	res := make([]string, len(t.columns))
	for i := range t.columns {
		if i < len(row) {
			res[i] = row[i].String()
		}
	}
	return res
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.columns) > 0 {
		if err := cw.Write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := cw.Write(t.strings(r)); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	widths := make([]int, len(t.columns))
	update := func(row []string) {
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashes := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte('-')
		}
		return string(b)
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, w := range widths {
			row[i] = dashes(w)
		}
		return row
	}

	if !p.NoHeader {
		update(t.columns)
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		update(t.strings(r))
	}

	if !p.NoHeader && len(t.columns) > 0 {
		if err := write(t.columns); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		if err := write(dashedRow()); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := write(t.strings(r)); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	return nil
}
