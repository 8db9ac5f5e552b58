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

package av

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
)

// The provider returns JSON objects whose key order is meaningful: time
// series observations arrive chronologically ordered, and column order
// follows the wire. encoding/json maps lose that order, so objects are
// decoded with a token walker into jsonObject which preserves it.

// jsonValue is one of: *jsonObject, []jsonValue, string, json.Number, bool,
// or nil.
type jsonValue interface{}

type jsonObject struct {
	keys   []string
	values map[string]jsonValue
}

func (o *jsonObject) get(key string) (jsonValue, bool) {
	v, ok := o.values[key]
	return v, ok
}

func decodeJSON(data []byte) (jsonValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, errors.Reason("trailing data after the JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (jsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, json.Number, bool or nil
	}
	switch delim {
	case '{':
		obj := &jsonObject{values: make(map[string]jsonValue)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key := keyTok.(string)
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			if _, ok := obj.values[key]; !ok {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = v
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return obj, nil
	case '[':
		var arr []jsonValue
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		if arr == nil {
			arr = []jsonValue{}
		}
		return arr, nil
	}
	return nil, errors.Reason("unexpected token %v", tok)
}

func jsonTypeName(v jsonValue) string {
	switch v.(type) {
	case *jsonObject:
		return "object"
	case []jsonValue:
		return "list"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "bool"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}

// isMetaKey tests for the provider's metadata keys which accompany the data
// payload and do not contribute rows.
func isMetaKey(key string) bool {
	return strings.HasPrefix(key, "Meta Data")
}

// dataKeys returns the non-metadata top-level keys in order.
func dataKeys(obj *jsonObject) []string {
	var res []string
	for _, k := range obj.keys {
		if !isMetaKey(k) {
			res = append(res, k)
		}
	}
	return res
}

var timeFormats = []string{
	"2006-01-02 15:04:05.999",
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05.999Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTimestamp parses the handful of timestamp layouts the provider uses.
func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, f := range timeFormats {
		var tm time.Time
		if tm, err = time.Parse(f, s); err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

// coerceNumber converts the provider's string-encoded numbers (optionally a
// "12.3%" percentage, which becomes a fraction) to float64.
func coerceNumber(v jsonValue) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		percent := strings.HasSuffix(s, "%")
		if percent {
			s = strings.TrimSuffix(s, "%")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		if percent {
			f /= 100
		}
		return f, true
	}
	return 0, false
}

// cellFor converts a scalar to a best-effort cell: numeric-looking values
// become numbers, the provider's missing-value markers become the "no value"
// cell, and everything else stays a string.
func cellFor(v jsonValue) table.Cell {
	switch s := v.(type) {
	case nil:
		return table.None()
	case json.Number:
		if f, ok := coerceNumber(s); ok {
			return table.Number(f)
		}
		return table.String(s.String())
	case bool:
		return table.String(strconv.FormatBool(s))
	case string:
		switch s {
		case "", "-", "None", "none":
			return table.None()
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return table.Number(f)
		}
		return table.String(s)
	}
	return table.None()
}

func scalarString(v jsonValue) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprintf("%v", v)
}

// normalize converts a raw response body into the uniform table according to
// the shape declared by the endpoint spec.
func normalize(spec *EndpointSpec, body []byte) (*table.Table, error) {
	v, err := decodeJSON(body)
	if err != nil {
		return nil, &MalformedResponseError{
			Function: spec.Function, Detail: "invalid JSON: " + err.Error()}
	}
	obj, ok := v.(*jsonObject)
	if !ok {
		return nil, &MalformedResponseError{Function: spec.Function,
			Detail: fmt.Sprintf("expected a JSON object, got a %s", jsonTypeName(v))}
	}
	switch spec.Shape {
	case SingleSeries:
		return normalizeSingleSeries(spec, obj)
	case MultiSeries:
		return normalizeMultiSeries(spec, obj)
	case FlatRecord:
		return normalizeFlatRecord(spec, obj)
	case ListOfRecords:
		return normalizeListOfRecords(spec, obj)
	}
	return nil, &MalformedResponseError{Function: spec.Function,
		Detail: fmt.Sprintf("no strategy for response shape %q", spec.Shape)}
}

// normalizeSingleSeries handles a body of metadata plus one nested mapping of
// timestamp -> field mapping. One row per timestamp in wire order; fields
// seen later in the stream become new columns back-filled with "no value".
func normalizeSingleSeries(spec *EndpointSpec, obj *jsonObject) (*table.Table, error) {
	keys := dataKeys(obj)
	if len(keys) != 1 {
		return nil, &MalformedResponseError{Function: spec.Function,
			Detail: fmt.Sprintf("expected one data series, found %d", len(keys))}
	}
	seriesVal, _ := obj.get(keys[0])
	series, ok := seriesVal.(*jsonObject)
	if !ok {
		return nil, &MalformedResponseError{Function: spec.Function,
			Detail: fmt.Sprintf("expected a timestamp mapping under %q, got a %s",
				keys[0], jsonTypeName(seriesVal))}
	}
	tbl := table.New(spec.Key)
	for _, ts := range series.keys {
		fieldsVal, _ := series.get(ts)
		fields, ok := fieldsVal.(*jsonObject)
		if !ok {
			return nil, &MalformedResponseError{Function: spec.Function,
				Detail: fmt.Sprintf("expected a field mapping at %q, got a %s",
					ts, jsonTypeName(fieldsVal))}
		}
		tm, err := parseTimestamp(ts)
		if err != nil {
			return nil, &MalformedResponseError{Function: spec.Function,
				Detail: fmt.Sprintf("row key %q is not a timestamp", ts)}
		}
		for _, f := range fields.keys {
			tbl.AddColumn(f)
		}
		row := make([]table.Cell, tbl.NumColumns())
		row[0] = table.Time(tm)
		for _, f := range fields.keys {
			v, _ := fields.get(f)
			i, _ := tbl.ColumnIndex(f)
			if spec.Numeric {
				n, ok := coerceNumber(v)
				if !ok {
					return nil, &DataCoercionError{
						Function: spec.Function, Field: f, Raw: scalarString(v)}
				}
				row[i] = table.Number(n)
			} else {
				row[i] = cellFor(v)
			}
		}
		if err := tbl.AddRow(row...); err != nil {
			return nil, errors.Annotate(err, "%s: failed to add row %q",
				spec.Function, ts)
		}
	}
	return tbl, nil
}

// normalizeMultiSeries handles several named series sharing a row index,
// e.g. sector performance rankings. Rows are the union of row keys across
// the series in first-seen order; missing combinations get the explicit
// "no value" cell.
func normalizeMultiSeries(spec *EndpointSpec, obj *jsonObject) (*table.Table, error) {
	keys := dataKeys(obj)
	if len(keys) == 0 {
		return nil, &MalformedResponseError{
			Function: spec.Function, Detail: "no data series found"}
	}
	tbl := table.New(spec.Key)
	rowOf := make(map[string]int)
	for _, name := range keys {
		seriesVal, _ := obj.get(name)
		series, ok := seriesVal.(*jsonObject)
		if !ok {
			return nil, &MalformedResponseError{Function: spec.Function,
				Detail: fmt.Sprintf("expected a mapping under series %q, got a %s",
					name, jsonTypeName(seriesVal))}
		}
		col := tbl.AddColumn(name)
		for _, rk := range series.keys {
			v, _ := series.get(rk)
			r, ok := rowOf[rk]
			if !ok {
				r = len(tbl.Rows)
				rowOf[rk] = r
				if err := tbl.AddRow(table.String(rk)); err != nil {
					return nil, errors.Annotate(err, "%s: failed to add row %q",
						spec.Function, rk)
				}
			}
			if spec.Numeric {
				n, ok := coerceNumber(v)
				if !ok {
					return nil, &DataCoercionError{
						Function: spec.Function, Field: name, Raw: scalarString(v)}
				}
				tbl.Rows[r][col] = table.Number(n)
			} else {
				tbl.Rows[r][col] = cellFor(v)
			}
		}
	}
	return tbl, nil
}

// record extracts the flat mapping of a flat-record body: either the whole
// body, or its single nested object when the payload is wrapped in a named
// key (e.g. "Global Quote").
func record(obj *jsonObject) *jsonObject {
	keys := dataKeys(obj)
	if len(keys) == 1 {
		if nested, ok := obj.values[keys[0]].(*jsonObject); ok {
			return nested
		}
	}
	return obj
}

// normalizeFlatRecord handles a single mapping -> exactly one row.
func normalizeFlatRecord(spec *EndpointSpec, obj *jsonObject) (*table.Table, error) {
	rec := record(obj)
	if len(rec.keys) == 0 {
		return nil, &MalformedResponseError{
			Function: spec.Function, Detail: "empty record"}
	}
	cells := make([]table.Cell, 0, len(rec.keys))
	for _, k := range rec.keys {
		v, _ := rec.get(k)
		switch v.(type) {
		case *jsonObject, []jsonValue:
			return nil, &MalformedResponseError{Function: spec.Function,
				Detail: fmt.Sprintf("expected a scalar for field %q, got a %s",
					k, jsonTypeName(v))}
		}
		cells = append(cells, cellFor(v))
	}
	key := spec.Key
	if _, ok := rec.get(key); !ok {
		key = "" // fall back to the first column
	}
	tbl := table.New(key, rec.keys...)
	if err := tbl.AddRow(cells...); err != nil {
		return nil, errors.Annotate(err, "%s: failed to add record", spec.Function)
	}
	return tbl, nil
}

// normalizeListOfRecords handles an ordered sequence of mappings -> one row
// per element, preserving the original order. The column set is the union of
// the elements' keys in first-seen order.
func normalizeListOfRecords(spec *EndpointSpec, obj *jsonObject) (*table.Table, error) {
	keys := dataKeys(obj)
	if len(keys) != 1 {
		return nil, &MalformedResponseError{Function: spec.Function,
			Detail: fmt.Sprintf("expected one list of records, found %d keys", len(keys))}
	}
	listVal, _ := obj.get(keys[0])
	list, ok := listVal.([]jsonValue)
	if !ok {
		return nil, &MalformedResponseError{Function: spec.Function,
			Detail: fmt.Sprintf("expected a list under %q, got a %s",
				keys[0], jsonTypeName(listVal))}
	}
	var columns []string
	colSeen := make(map[string]bool)
	recs := make([]*jsonObject, len(list))
	for i, el := range list {
		rec, ok := el.(*jsonObject)
		if !ok {
			return nil, &MalformedResponseError{Function: spec.Function,
				Detail: fmt.Sprintf("element %d is a %s, not a mapping",
					i, jsonTypeName(el))}
		}
		recs[i] = rec
		for _, k := range rec.keys {
			if !colSeen[k] {
				colSeen[k] = true
				columns = append(columns, k)
			}
		}
	}
	key := spec.Key
	if !colSeen[key] {
		key = ""
	}
	tbl := table.New(key, columns...)
	for _, rec := range recs {
		row := make([]table.Cell, tbl.NumColumns())
		for _, k := range rec.keys {
			v, _ := rec.get(k)
			i, _ := tbl.ColumnIndex(k)
			row[i] = cellFor(v)
		}
		if err := tbl.AddRow(row...); err != nil {
			return nil, errors.Annotate(err, "%s: failed to add record", spec.Function)
		}
	}
	return tbl, nil
}

var (
	columnPrefix = regexp.MustCompile(`^\d+\w?\. `)
	adjustedWord = regexp.MustCompile(`\badjusted\b`)
)

// cleanColumn simplifies a provider column name: "5. adjusted close" becomes
// "adj_close".
func cleanColumn(name string) string {
	name = columnPrefix.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, " amount", "")
	name = adjustedWord.ReplaceAllString(name, "adj")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// cleanColumns renames all table columns in place using cleanColumn,
// skipping renames that would collide with an existing column.
func cleanColumns(tbl *table.Table) {
	for i, name := range tbl.Columns() {
		clean := cleanColumn(name)
		if clean == name {
			continue
		}
		_ = tbl.RenameColumn(i, clean) // collision: keep the original name
	}
}
