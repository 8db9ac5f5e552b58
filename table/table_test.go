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

package table

import (
	"bytes"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCell(t *testing.T) {
	t.Parallel()

	Convey("Cell string forms", t, func() {
		So(None().String(), ShouldEqual, "")
		So(None().IsNone(), ShouldBeTrue)
		So(Number(135.42).String(), ShouldEqual, "135.42")
		So(Number(1000).String(), ShouldEqual, "1000")
		So(String("IBM").String(), ShouldEqual, "IBM")
		So(Time(time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)).String(),
			ShouldEqual, "2020-04-09")
		So(Time(time.Date(2020, 4, 9, 16, 30, 0, 0, time.UTC)).String(),
			ShouldEqual, "2020-04-09 16:30:00")
	})

	Convey("Cell accessors", t, func() {
		v, ok := Number(42.0).Float()
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, 42.0)
		_, ok = String("42").Float()
		So(ok, ShouldBeFalse)

		tm, ok := Time(time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)).Timestamp()
		So(ok, ShouldBeTrue)
		So(tm.Year(), ShouldEqual, 2020)
		_, ok = None().Timestamp()
		So(ok, ShouldBeFalse)
	})
}

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("New places the key column first when absent", t, func() {
		tbl := New("timestamp", "open", "close")
		So(tbl.Columns(), ShouldResemble, []string{"timestamp", "open", "close"})
		So(tbl.Key(), ShouldEqual, "timestamp")
	})

	Convey("New keeps declared column order when the key is present", t, func() {
		tbl := New("symbol", "name", "symbol", "region")
		So(tbl.Columns(), ShouldResemble, []string{"name", "symbol", "region"})
		So(tbl.Key(), ShouldEqual, "symbol")
	})

	Convey("Empty key defaults to the first column", t, func() {
		tbl := New("", "name", "region")
		So(tbl.Key(), ShouldEqual, "name")
	})

	Convey("AddColumn back-fills existing rows", t, func() {
		tbl := New("timestamp", "close")
		So(tbl.AddRow(Time(time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)),
			Number(100.0)), ShouldBeNil)
		i := tbl.AddColumn("volume")
		So(i, ShouldEqual, 2)
		So(tbl.AddColumn("volume"), ShouldEqual, 2) // idempotent
		So(len(tbl.Rows[0]), ShouldEqual, 3)
		So(tbl.Rows[0][2].IsNone(), ShouldBeTrue)
	})

	Convey("AddRow pads short rows and rejects long ones", t, func() {
		tbl := New("timestamp", "close", "volume")
		So(tbl.AddRow(Time(time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC))),
			ShouldBeNil)
		So(tbl.Cell(0, "volume").IsNone(), ShouldBeTrue)
		So(tbl.AddRow(None(), None(), None(), None()), ShouldNotBeNil)
	})

	Convey("RenameColumn tracks the key", t, func() {
		tbl := New("1. symbol", "2. name")
		So(tbl.RenameColumn(0, "symbol"), ShouldBeNil)
		So(tbl.Key(), ShouldEqual, "symbol")
		So(tbl.Columns(), ShouldResemble, []string{"symbol", "2. name"})
		So(tbl.RenameColumn(1, "symbol"), ShouldNotBeNil) // duplicate
		So(tbl.RenameColumn(5, "x"), ShouldNotBeNil)      // out of range
	})

	Convey("WriteCSV", t, func() {
		tbl := New("timestamp", "close", "volume")
		So(tbl.AddRow(Time(time.Date(2020, 4, 9, 0, 0, 0, 0, time.UTC)),
			Number(135.42), Number(1000)), ShouldBeNil)
		So(tbl.AddRow(Time(time.Date(2020, 4, 8, 0, 0, 0, 0, time.UTC)),
			Number(134.1), None()), ShouldBeNil)

		var buf bytes.Buffer
		So(tbl.WriteCSV(&buf, Params{}), ShouldBeNil)
		So("\n"+buf.String(), ShouldEqual, `
timestamp,close,volume
2020-04-09,135.42,1000
2020-04-08,134.1,
`)

		buf.Reset()
		So(tbl.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
		So(buf.String(), ShouldEqual, "2020-04-09,135.42,1000\n")
	})

	Convey("WriteText", t, func() {
		tbl := New("symbol", "price")
		So(tbl.AddRow(String("IBM"), Number(135.42)), ShouldBeNil)
		So(tbl.AddRow(String("MSFT"), Number(280.0)), ShouldBeNil)

		var buf bytes.Buffer
		So(tbl.WriteText(&buf, Params{}), ShouldBeNil)
		So("\n"+buf.String(), ShouldEqual, `
symbol |  price
------ | ------
   IBM | 135.42
  MSFT |    280
`)
		So(tbl.WriteText(&buf, Params{MaxColWidth: 3}), ShouldNotBeNil)
	})
}
