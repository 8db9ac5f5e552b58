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
	"sort"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	Convey("NewRegistry", t, func() {
		registry := NewRegistry()

		Convey("validates", func() {
			So(registry.Validate(), ShouldBeNil)
		})

		Convey("Functions are sorted and unique", func() {
			fs := registry.Functions()
			So(len(fs), ShouldBeGreaterThan, 60)
			So(sort.StringsAreSorted(fs), ShouldBeTrue)
			seen := make(map[string]bool)
			for _, f := range fs {
				So(seen[f], ShouldBeFalse)
				seen[f] = true
			}
		})

		Convey("Lookup of an unknown function", func() {
			_, err := registry.Lookup("TIME_SERIES_HOURLY")
			So(err, ShouldNotBeNil)
			var unknown *UnknownEndpointError
			So(errorAs(err, &unknown), ShouldBeTrue)
			So(unknown.Function, ShouldEqual, "TIME_SERIES_HOURLY")
		})

		Convey("daily series spec", func() {
			spec, err := registry.Lookup("TIME_SERIES_DAILY")
			So(err, ShouldBeNil)
			So(spec.Shape, ShouldEqual, SingleSeries)
			So(spec.Key, ShouldEqual, "timestamp")
			So(spec.Numeric, ShouldBeTrue)
			So(spec.Params[0].Name, ShouldEqual, "symbol")
			So(spec.Params[0].Required, ShouldBeTrue)
		})

		Convey("global quote is a flat record", func() {
			spec, err := registry.Lookup("GLOBAL_QUOTE")
			So(err, ShouldBeNil)
			So(spec.Shape, ShouldEqual, FlatRecord)
			So(spec.Key, ShouldEqual, "01. symbol")
		})

		Convey("symbol search is a list of records", func() {
			spec, err := registry.Lookup("SYMBOL_SEARCH")
			So(err, ShouldBeNil)
			So(spec.Shape, ShouldEqual, ListOfRecords)
		})

		Convey("sector performance is a multi-series", func() {
			spec, err := registry.Lookup("SECTOR")
			So(err, ShouldBeNil)
			So(spec.Shape, ShouldEqual, MultiSeries)
			So(spec.Numeric, ShouldBeTrue)
			So(len(spec.Params), ShouldEqual, 0)
		})

		Convey("indicators declare symbol and interval first", func() {
			for _, f := range []string{"SMA", "MACD", "BBANDS", "STOCH"} {
				spec, err := registry.Lookup(f)
				So(err, ShouldBeNil)
				So(spec.Params[0].Name, ShouldEqual, "symbol")
				So(spec.Params[1].Name, ShouldEqual, "interval")
			}
		})
	})

	Convey("Validate catches broken specs", t, func() {
		Convey("unknown shape", func() {
			r := &Registry{specs: map[string]*EndpointSpec{
				"BAD": {Function: "BAD", Shape: Shape("pivot-table"), Key: "k"},
			}}
			var integrity *RegistryIntegrityError
			So(errorAs(r.Validate(), &integrity), ShouldBeTrue)
			So(integrity.Function, ShouldEqual, "BAD")
		})

		Convey("series without a row key", func() {
			r := &Registry{specs: map[string]*EndpointSpec{
				"BAD": {Function: "BAD", Shape: SingleSeries},
			}}
			var integrity *RegistryIntegrityError
			So(errorAs(r.Validate(), &integrity), ShouldBeTrue)
		})

		Convey("duplicate parameter names", func() {
			r := &Registry{specs: map[string]*EndpointSpec{
				"BAD": {Function: "BAD", Shape: SingleSeries, Key: "timestamp",
					Params: []ParamSpec{symbol(), symbol()}},
			}}
			var integrity *RegistryIntegrityError
			So(errorAs(r.Validate(), &integrity), ShouldBeTrue)
		})

		Convey("default violating its own constraint", func() {
			r := &Registry{specs: map[string]*EndpointSpec{
				"BAD": {Function: "BAD", Shape: SingleSeries, Key: "timestamp",
					Params: []ParamSpec{optChoice("outputsize", "huge", outputSizes)}},
			}}
			var integrity *RegistryIntegrityError
			So(errorAs(r.Validate(), &integrity), ShouldBeTrue)
		})
	})
}
