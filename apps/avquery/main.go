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

// Command avquery calls a single Alpha Vantage endpoint and prints the
// normalized table as text or CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stockparfait/alphavantage/av"
	"github.com/stockparfait/alphavantage/table"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"

	toml "github.com/pelletier/go-toml/v2"
)

// argsValue collects repeated -arg name=value flags.
type argsValue map[string]string

func (a argsValue) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (a argsValue) Set(s string) error {
	i := strings.Index(s, "=")
	if i <= 0 {
		return errors.Reason("argument %q is not in name=value form", s)
	}
	a[s[:i]] = s[i+1:]
	return nil
}

type Flags struct {
	Config   string // config file path
	Function string // endpoint function to call
	Args     argsValue
	CSV      bool // print CSV instead of the text table
	Rows     int  // max rows to print; 0 = unlimited
	LogLevel logging.Level
}

func parseFlags(args []string) (*Flags, error) {
	flags := Flags{Args: make(argsValue)}
	fs := flag.NewFlagSet("avquery", flag.ExitOnError)
	fs.StringVar(&flags.Config, "config",
		filepath.Join(os.Getenv("HOME"), ".alphavantage", "config.toml"),
		"configuration file path")
	fs.StringVar(&flags.Function, "function", "", "endpoint function, e.g. TIME_SERIES_DAILY")
	fs.Var(flags.Args, "arg", "endpoint argument as name=value; may be repeated")
	fs.BoolVar(&flags.CSV, "csv", false, "print CSV instead of a text table")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print; 0 = unlimited")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if flags.Function == "" {
		return nil, errors.Reason("-function is required")
	}
	return &flags, nil
}

type Config struct {
	Key            string `toml:"key"`      // user key for Alpha Vantage
	BaseURL        string `toml:"base_url"` // default: the production server
	QuotaPerMinute int    `toml:"quota_per_minute"`
	QuotaPerDay    int    `toml:"quota_per_day"`
	MaxAttempts    int    `toml:"max_attempts"`
	RetryDelayMSec int    `toml:"retry_delay_msec"`
	TimeoutSec     int    `toml:"timeout_sec"`
	CleanColumns   bool   `toml:"clean_columns"`
}

func parseConfig(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sample := `key = "YourSecretAlphaVantageKey"
quota_per_minute = 5
quota_per_day = 500
clean_columns = true
`
			err = errors.Annotate(err,
				"config file '%s' does not exist.\nPlease create config file containing:\n%s",
				filePath, sample)
			return nil, err
		} else {
			return nil, errors.Annotate(err,
				"cannot check config file for existence: '%s'", filePath)
		}
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open config file %s", filePath)
	}
	defer f.Close()

	d := toml.NewDecoder(f)
	var c Config
	if err := d.Decode(&c); err != nil {
		return nil, errors.Annotate(err, "failed to read config file %s", filePath)
	}
	return &c, nil
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := parseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}

	client, err := av.NewClient(av.Config{
		Key:            config.Key,
		BaseURL:        config.BaseURL,
		QuotaPerMinute: config.QuotaPerMinute,
		QuotaPerDay:    config.QuotaPerDay,
		MaxAttempts:    config.MaxAttempts,
		RetryBaseDelay: time.Duration(config.RetryDelayMSec) * time.Millisecond,
		Timeout:        time.Duration(config.TimeoutSec) * time.Second,
		CleanColumns:   config.CleanColumns,
	})
	if err != nil {
		return errors.Annotate(err, "failed to create the client")
	}

	tbl, err := av.Call(av.UseClient(ctx, client), flags.Function, flags.Args)
	if err != nil {
		return errors.Annotate(err, "failed to call %s", flags.Function)
	}

	params := table.Params{Rows: flags.Rows}
	if flags.CSV {
		err = tbl.WriteCSV(w, params)
	} else {
		err = tbl.WriteText(w, params)
	}
	if err != nil {
		return errors.Annotate(err, "failed to print the table")
	}
	if len(tbl.Rows) > flags.Rows && flags.Rows > 0 {
		fmt.Fprintf(w, "... and %d more rows\n", len(tbl.Rows)-flags.Rows)
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
