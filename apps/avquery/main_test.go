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

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_avquery_app")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("parseFlags", t, func() {
		Convey("parses all the flags", func() {
			flags, err := parseFlags([]string{
				"-config", "path/to/config.toml", "-function", "TIME_SERIES_DAILY",
				"-arg", "symbol=MSFT", "-arg", "outputsize=full",
				"-csv", "-rows", "10", "-log-level", "warning"})
			So(err, ShouldBeNil)
			So(flags.Config, ShouldEqual, "path/to/config.toml")
			So(flags.Function, ShouldEqual, "TIME_SERIES_DAILY")
			So(flags.Args, ShouldResemble, argsValue{
				"symbol": "MSFT", "outputsize": "full"})
			So(flags.CSV, ShouldBeTrue)
			So(flags.Rows, ShouldEqual, 10)
			So(flags.LogLevel, ShouldEqual, logging.Warning)
		})

		Convey("requires a function", func() {
			_, err := parseFlags([]string{"-arg", "symbol=MSFT"})
			So(err, ShouldNotBeNil)
		})

		Convey("rejects a malformed argument", func() {
			flags := Flags{Args: make(argsValue)}
			So(flags.Args.Set("symbol"), ShouldNotBeNil)
			So(flags.Args.Set("=MSFT"), ShouldNotBeNil)
			So(flags.Args.Set("symbol=MSFT"), ShouldBeNil)
		})
	})

	Convey("run works", t, func() {
		ctx := logging.Use(context.Background(),
			logging.DefaultGoLogger(logging.Info))
		server := testutil.NewTestServer()
		defer server.Close()
		server.ResponseBody = []string{`{
  "Meta Data": {"1. Information": "Daily Prices", "2. Symbol": "MSFT"},
  "Time Series (Daily)": {
    "2023-05-02": {"1. open": "306.1", "2. high": "307.9", "3. low": "303.3", "4. close": "305.4"},
    "2023-05-01": {"1. open": "304.0", "2. high": "307.0", "3. low": "303.8", "4. close": "305.6"}
  }
}`}

		configPath := filepath.Join(tmpdir, "config.toml")
		configTOML := fmt.Sprintf(`key = "testkey"
base_url = %q
clean_columns = true
`, server.URL()+"/query")
		So(testutil.WriteFile(configPath, configTOML), ShouldBeNil)

		Convey("prints the series as CSV", func() {
			flags, err := parseFlags([]string{"-config", configPath,
				"-function", "TIME_SERIES_DAILY", "-arg", "symbol=MSFT", "-csv"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So(server.RequestPath, ShouldEqual, "/query")
			So(server.RequestQuery["apikey"], ShouldResemble, []string{"testkey"})
			So("\n"+buf.String(), ShouldEqual, `
timestamp,open,high,low,close
2023-05-02,306.1,307.9,303.3,305.4
2023-05-01,304,307,303.8,305.6
`)
		})

		Convey("limits the printed rows", func() {
			flags, err := parseFlags([]string{"-config", configPath,
				"-function", "TIME_SERIES_DAILY", "-arg", "symbol=MSFT",
				"-csv", "-rows", "1"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldBeNil)
			So("\n"+buf.String(), ShouldEqual, `
timestamp,open,high,low,close
2023-05-02,306.1,307.9,303.3,305.4
... and 1 more rows
`)
		})

		Convey("fails cleanly on a provider error", func() {
			server.ResponseBody = []string{`{"Error Message": "Invalid API call."}`}
			flags, err := parseFlags([]string{"-config", configPath,
				"-function", "TIME_SERIES_DAILY", "-arg", "symbol=MSFT"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			err = run(ctx, flags, &buf)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Invalid API call")
		})

		Convey("fails on a missing config", func() {
			flags, err := parseFlags([]string{
				"-config", filepath.Join(tmpdir, "no-such.toml"),
				"-function", "TIME_SERIES_DAILY"})
			So(err, ShouldBeNil)
			var buf bytes.Buffer
			So(run(ctx, flags, &buf), ShouldNotBeNil)
		})
	})
}
