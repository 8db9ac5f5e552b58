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
	"net/url"
	"sort"
	"strings"
)

// Param is a single resolved key/value query parameter.
type Param struct {
	Name  string
	Value string
}

// Request is a fully resolved endpoint call: the ordered query parameters
// built from an EndpointSpec and validated arguments. It never holds the API
// key; the key is appended only when the wire query is assembled, so a
// Request is always safe to log or embed in error messages.
type Request struct {
	spec   *EndpointSpec
	params []Param
}

// build validates args against the endpoint spec and produces a Request with
// parameters in the declared order. It is a pure function: no I/O, no side
// effects, and it fails before any network call can be made.
func build(spec *EndpointSpec, args map[string]string) (*Request, error) {
	declared := make(map[string]bool, len(spec.Params))
	for _, p := range spec.Params {
		declared[p.Name] = true
	}
	// Sort the argument names for a deterministic first error.
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !declared[name] {
			return nil, &UnexpectedParameterError{
				Function: spec.Function, Name: name}
		}
	}

	params := []Param{{Name: "function", Value: spec.Function}}
	for _, p := range spec.Params {
		value, ok := args[p.Name]
		if !ok {
			if p.Required {
				return nil, &MissingParameterError{
					Function: spec.Function, Name: p.Name}
			}
			if p.Default == "" {
				continue
			}
			value = p.Default
		}
		if !p.check(value) {
			return nil, &InvalidParameterValueError{
				Function: spec.Function, Name: p.Name, Value: value}
		}
		params = append(params, Param{Name: p.Name, Value: value})
	}
	return &Request{spec: spec, params: params}, nil
}

// Function returns the endpoint function name of the request.
func (r *Request) Function() string { return r.spec.Function }

// Params returns the resolved parameters in wire order, without the API key.
func (r *Request) Params() []Param { return r.params }

// encode assembles the wire query string, preserving the declared parameter
// order (url.Values.Encode would sort the keys). A non-empty key is appended
// last, as the provider expects.
func (r *Request) encode(key string) string {
	var b strings.Builder
	for i, p := range r.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	if key != "" {
		b.WriteString("&apikey=")
		b.WriteString(url.QueryEscape(key))
	}
	return b.String()
}

// String prints the request query without the API key.
func (r *Request) String() string { return r.encode("") }
