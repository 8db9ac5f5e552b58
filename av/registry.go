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
	"fmt"
	"regexp"
	"sort"
)

// Shape classifies the JSON layout of an endpoint response and selects the
// normalization strategy. Registry.Validate() checks that every registered
// shape has exactly one strategy in normalize().
type Shape string

const (
	SingleSeries  = Shape("single-series")
	MultiSeries   = Shape("multi-series")
	FlatRecord    = Shape("flat-record")
	ListOfRecords = Shape("list-of-records")
)

// ParamSpec describes a single query parameter of an endpoint.
type ParamSpec struct {
	Name     string
	Required bool
	Choices  []string       // when non-empty, the value must be one of these
	Pattern  *regexp.Regexp // when non-nil, the value must match
	Default  string         // substituted when optional and absent
}

// check validates a supplied value against the parameter constraints.
func (p ParamSpec) check(value string) bool {
	if len(p.Choices) > 0 && !stringIn(value, p.Choices...) {
		return false
	}
	if p.Pattern != nil && !p.Pattern.MatchString(value) {
		return false
	}
	return true
}

func stringIn(s string, values ...string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}

// EndpointSpec describes one logical API function: its query parameters in
// the declared wire order, the shape of its JSON response, and the row-key
// column of the normalized table. Specs are populated once by NewRegistry()
// and are read-only thereafter.
type EndpointSpec struct {
	Function string
	Params   []ParamSpec
	Shape    Shape
	Key      string // row-key column; for record shapes it may name a payload field
	Numeric  bool   // data fields are declared numeric
}

var (
	symbolPattern   = regexp.MustCompile(`^[A-Za-z0-9.^=-]{1,20}$`)
	symbolsPattern  = regexp.MustCompile(`^[A-Za-z0-9.^=-]{1,20}(,[A-Za-z0-9.^=-]{1,20})*$`)
	currencyPattern = regexp.MustCompile(`^[A-Za-z]{2,10}$`)
	periodPattern   = regexp.MustCompile(`^[1-9][0-9]*$`)
	floatPattern    = regexp.MustCompile(`^[0-9]*\.?[0-9]+$`)
)

var (
	intradayIntervals = []string{"1min", "5min", "15min", "30min", "60min"}
	allIntervals      = []string{
		"1min", "5min", "15min", "30min", "60min", "daily", "weekly", "monthly"}
	seriesTypes = []string{"close", "open", "high", "low"}
	outputSizes = []string{"compact", "full"}
	boolValues  = []string{"true", "false"}
	// Moving average types, 0 = SMA .. 8 = MAMA.
	maTypes = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}
)

func reqPattern(name string, p *regexp.Regexp) ParamSpec {
	return ParamSpec{Name: name, Required: true, Pattern: p}
}

func reqChoice(name string, choices []string) ParamSpec {
	return ParamSpec{Name: name, Required: true, Choices: choices}
}

func optPattern(name string, p *regexp.Regexp) ParamSpec {
	return ParamSpec{Name: name, Pattern: p}
}

func optChoice(name, dflt string, choices []string) ParamSpec {
	return ParamSpec{Name: name, Default: dflt, Choices: choices}
}

func symbol() ParamSpec     { return reqPattern("symbol", symbolPattern) }
func market() ParamSpec     { return reqPattern("market", currencyPattern) }
func fromSymbol() ParamSpec { return reqPattern("from_symbol", currencyPattern) }
func toSymbol() ParamSpec   { return reqPattern("to_symbol", currencyPattern) }
func outputSize() ParamSpec { return optChoice("outputsize", "compact", outputSizes) }
func dataType() ParamSpec   { return optChoice("datatype", "json", []string{"json"}) }
func timePeriod() ParamSpec { return reqPattern("time_period", periodPattern) }
func seriesType() ParamSpec { return reqChoice("series_type", seriesTypes) }
func maType(name string) ParamSpec {
	return ParamSpec{Name: name, Choices: maTypes}
}

// series is a time-series endpoint: rows keyed by timestamp, numeric fields.
func series(function string, params ...ParamSpec) EndpointSpec {
	return EndpointSpec{
		Function: function,
		Params:   params,
		Shape:    SingleSeries,
		Key:      "timestamp",
		Numeric:  true,
	}
}

// indicator is a technical indicator endpoint: symbol and interval first,
// then the indicator-specific parameters.
func indicator(function string, params ...ParamSpec) EndpointSpec {
	base := []ParamSpec{symbol(), reqChoice("interval", allIntervals)}
	return series(function, append(base, params...)...)
}

// Registry is the static table of all supported endpoints. It is populated
// once and never mutated afterwards, which makes it safe for concurrent use
// without locking.
type Registry struct {
	specs map[string]*EndpointSpec
}

// NewRegistry creates the full endpoint registry.
func NewRegistry() *Registry {
	specs := []EndpointSpec{
		// Equity time series.
		series("TIME_SERIES_INTRADAY", symbol(),
			reqChoice("interval", intradayIntervals),
			optChoice("adjusted", "true", boolValues), outputSize(), dataType()),
		series("TIME_SERIES_DAILY", symbol(), outputSize(), dataType()),
		series("TIME_SERIES_DAILY_ADJUSTED", symbol(), outputSize(), dataType()),
		series("TIME_SERIES_WEEKLY", symbol(), dataType()),
		series("TIME_SERIES_WEEKLY_ADJUSTED", symbol(), dataType()),
		series("TIME_SERIES_MONTHLY", symbol(), dataType()),
		series("TIME_SERIES_MONTHLY_ADJUSTED", symbol(), dataType()),

		// Quotes, search and fundamentals.
		{
			Function: "GLOBAL_QUOTE",
			Params:   []ParamSpec{symbol(), dataType()},
			Shape:    FlatRecord,
			Key:      "01. symbol",
		},
		{
			Function: "SYMBOL_SEARCH",
			Params:   []ParamSpec{{Name: "keywords", Required: true}, dataType()},
			Shape:    ListOfRecords,
			Key:      "1. symbol",
		},
		{
			Function: "OVERVIEW",
			Params:   []ParamSpec{symbol()},
			Shape:    FlatRecord,
			Key:      "Symbol",
		},
		{
			Function: "BATCH_STOCK_QUOTES",
			Params:   []ParamSpec{reqPattern("symbols", symbolsPattern), dataType()},
			Shape:    ListOfRecords,
			Key:      "1. symbol",
		},

		// Foreign exchange.
		{
			Function: "CURRENCY_EXCHANGE_RATE",
			Params: []ParamSpec{
				reqPattern("from_currency", currencyPattern),
				reqPattern("to_currency", currencyPattern),
			},
			Shape: FlatRecord,
			Key:   "1. From_Currency Code",
		},
		series("FX_INTRADAY", fromSymbol(), toSymbol(),
			reqChoice("interval", intradayIntervals), outputSize(), dataType()),
		series("FX_DAILY", fromSymbol(), toSymbol(), outputSize(), dataType()),
		series("FX_WEEKLY", fromSymbol(), toSymbol(), dataType()),
		series("FX_MONTHLY", fromSymbol(), toSymbol(), dataType()),

		// Digital currencies.
		series("CRYPTO_INTRADAY", symbol(), market(),
			reqChoice("interval", intradayIntervals), outputSize(), dataType()),
		series("DIGITAL_CURRENCY_DAILY", symbol(), market()),
		series("DIGITAL_CURRENCY_WEEKLY", symbol(), market()),
		series("DIGITAL_CURRENCY_MONTHLY", symbol(), market()),

		// Sector performance: several ranking series over the same sectors.
		{Function: "SECTOR", Shape: MultiSeries, Key: "sector", Numeric: true},

		// Technical indicators: moving averages.
		indicator("SMA", timePeriod(), seriesType()),
		indicator("EMA", timePeriod(), seriesType()),
		indicator("WMA", timePeriod(), seriesType()),
		indicator("DEMA", timePeriod(), seriesType()),
		indicator("TEMA", timePeriod(), seriesType()),
		indicator("TRIMA", timePeriod(), seriesType()),
		indicator("KAMA", timePeriod(), seriesType()),
		indicator("MAMA", seriesType(),
			optPattern("fastlimit", floatPattern), optPattern("slowlimit", floatPattern)),
		series("VWAP", symbol(), reqChoice("interval", intradayIntervals)),
		indicator("T3", timePeriod(), seriesType()),

		// Oscillators.
		indicator("MACD", seriesType(), optPattern("fastperiod", periodPattern),
			optPattern("slowperiod", periodPattern),
			optPattern("signalperiod", periodPattern)),
		indicator("MACDEXT", seriesType(), optPattern("fastperiod", periodPattern),
			optPattern("slowperiod", periodPattern),
			optPattern("signalperiod", periodPattern),
			maType("fastmatype"), maType("slowmatype"), maType("signalmatype")),
		indicator("STOCH", optPattern("fastkperiod", periodPattern),
			optPattern("slowkperiod", periodPattern),
			optPattern("slowdperiod", periodPattern),
			maType("slowkmatype"), maType("slowdmatype")),
		indicator("STOCHF", optPattern("fastkperiod", periodPattern),
			optPattern("fastdperiod", periodPattern), maType("fastdmatype")),
		indicator("RSI", timePeriod(), seriesType()),
		indicator("STOCHRSI", timePeriod(), seriesType(),
			optPattern("fastkperiod", periodPattern),
			optPattern("fastdperiod", periodPattern), maType("fastdmatype")),
		indicator("WILLR", timePeriod()),
		indicator("ADX", timePeriod()),
		indicator("ADXR", timePeriod()),
		indicator("APO", seriesType(), optPattern("fastperiod", periodPattern),
			optPattern("slowperiod", periodPattern), maType("matype")),
		indicator("PPO", seriesType(), optPattern("fastperiod", periodPattern),
			optPattern("slowperiod", periodPattern), maType("matype")),
		indicator("MOM", timePeriod(), seriesType()),
		indicator("BOP"),
		indicator("CCI", timePeriod()),
		indicator("CMO", timePeriod(), seriesType()),
		indicator("ROC", timePeriod(), seriesType()),
		indicator("ROCR", timePeriod(), seriesType()),
		indicator("AROON", timePeriod()),
		indicator("AROONOSC", timePeriod()),
		indicator("MFI", timePeriod()),
		indicator("TRIX", timePeriod(), seriesType()),
		indicator("ULTOSC", optPattern("timeperiod1", periodPattern),
			optPattern("timeperiod2", periodPattern),
			optPattern("timeperiod3", periodPattern)),
		indicator("DX", timePeriod()),
		indicator("MINUS_DI", timePeriod()),
		indicator("PLUS_DI", timePeriod()),
		indicator("MINUS_DM", timePeriod()),
		indicator("PLUS_DM", timePeriod()),

		// Volatility and volume.
		indicator("BBANDS", timePeriod(), seriesType(),
			optPattern("nbdevup", floatPattern), optPattern("nbdevdn", floatPattern),
			maType("matype")),
		indicator("MIDPOINT", timePeriod(), seriesType()),
		indicator("MIDPRICE", timePeriod()),
		indicator("SAR", optPattern("acceleration", floatPattern),
			optPattern("maximum", floatPattern)),
		indicator("TRANGE"),
		indicator("ATR", timePeriod()),
		indicator("NATR", timePeriod()),
		indicator("AD"),
		indicator("ADOSC", optPattern("fastperiod", periodPattern),
			optPattern("slowperiod", periodPattern)),
		indicator("OBV"),

		// Hilbert transform family.
		indicator("HT_TRENDLINE", seriesType()),
		indicator("HT_SINE", seriesType()),
		indicator("HT_TRENDMODE", seriesType()),
		indicator("HT_DCPERIOD", seriesType()),
		indicator("HT_DCPHASE", seriesType()),
		indicator("HT_PHASOR", seriesType()),
	}

	r := &Registry{specs: make(map[string]*EndpointSpec, len(specs))}
	for i := range specs {
		r.specs[specs[i].Function] = &specs[i]
	}
	return r
}

// Lookup finds the endpoint spec for the function name.
func (r *Registry) Lookup(function string) (*EndpointSpec, error) {
	spec, ok := r.specs[function]
	if !ok {
		return nil, &UnknownEndpointError{Function: function}
	}
	return spec, nil
}

// Functions returns all registered function names in sorted order.
func (r *Registry) Functions() []string {
	res := make([]string, 0, len(r.specs))
	for name := range r.specs {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

func validShape(s Shape) bool {
	switch s {
	case SingleSeries, MultiSeries, FlatRecord, ListOfRecords:
		return true
	}
	return false
}

// Validate checks the integrity of the registry: every response shape must
// have a normalization strategy, and every parameter spec must be coherent.
// It runs once at client construction; the registry is read-only afterwards.
func (r *Registry) Validate() error {
	for _, name := range r.Functions() {
		spec := r.specs[name]
		if !validShape(spec.Shape) {
			return &RegistryIntegrityError{Function: name, Detail: fmt.Sprintf(
				"response shape %q has no normalizer strategy", spec.Shape)}
		}
		if spec.Key == "" && (spec.Shape == SingleSeries || spec.Shape == MultiSeries) {
			return &RegistryIntegrityError{
				Function: name, Detail: "missing row-key column"}
		}
		seen := map[string]bool{"function": true, "apikey": true}
		for _, p := range spec.Params {
			if p.Name == "" {
				return &RegistryIntegrityError{
					Function: name, Detail: "parameter with an empty name"}
			}
			if seen[p.Name] {
				return &RegistryIntegrityError{Function: name, Detail: fmt.Sprintf(
					"duplicate parameter %q", p.Name)}
			}
			seen[p.Name] = true
			if p.Choices != nil && len(p.Choices) == 0 {
				return &RegistryIntegrityError{Function: name, Detail: fmt.Sprintf(
					"empty allowed-value set for parameter %q", p.Name)}
			}
			if p.Required && p.Default != "" {
				return &RegistryIntegrityError{Function: name, Detail: fmt.Sprintf(
					"required parameter %q declares a default", p.Name)}
			}
			if p.Default != "" && !p.check(p.Default) {
				return &RegistryIntegrityError{Function: name, Detail: fmt.Sprintf(
					"default value %q fails the constraint of parameter %q",
					p.Default, p.Name)}
			}
		}
	}
	return nil
}
