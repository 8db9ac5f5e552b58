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

// Package av implements a client for the Alpha Vantage REST API.
//
// Official documentation is at https://www.alphavantage.co/documentation/ .
//
// The API exposes several dozen logical functions (time series, quotes,
// technical indicators, FX, digital currencies, sector performance), each
// with its own parameter set and JSON response shape. This package maps every
// function through a static endpoint registry, throttles calls against the
// provider's per-minute and per-day quotas, and normalizes each response
// shape into the uniform table.Table type, so downstream code never
// special-cases the endpoint.
//
// The generic entry point is Client.Call (or the package-level Call using a
// client injected into the context); convenience methods such as
// Client.Intraday and Client.FX cover the common cases. A single Client is
// safe for concurrent use: the registry is immutable after validation, and
// the quota counters are the only locked state.
package av
