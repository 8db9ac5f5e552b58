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

import "fmt"

// The error taxonomy of the client. Each kind carries enough context to
// diagnose the failure without re-running the call; none of them ever
// contains the API key. Parameter and registry errors are detected before any
// network call is made.

// UnknownEndpointError: the function name is not in the endpoint registry.
type UnknownEndpointError struct {
	Function string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("unknown endpoint function %q", e.Function)
}

// RegistryIntegrityError: the registry itself is misconfigured. This is fatal
// at client construction and indicates a programming error, not a bad call.
type RegistryIntegrityError struct {
	Function string
	Detail   string
}

func (e *RegistryIntegrityError) Error() string {
	return fmt.Sprintf("registry integrity: %s: %s", e.Function, e.Detail)
}

// MissingParameterError: a required parameter is absent from the arguments.
type MissingParameterError struct {
	Function string
	Name     string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: missing required parameter %q", e.Function, e.Name)
}

// InvalidParameterValueError: a supplied value fails the parameter's
// constraint (enumerated choices or pattern).
type InvalidParameterValueError struct {
	Function string
	Name     string
	Value    string
}

func (e *InvalidParameterValueError) Error() string {
	return fmt.Sprintf("%s: invalid value %q for parameter %q",
		e.Function, e.Value, e.Name)
}

// UnexpectedParameterError: an argument name is not declared by the endpoint.
// Strict rejection prevents silent typos from reaching the provider.
type UnexpectedParameterError struct {
	Function string
	Name     string
}

func (e *UnexpectedParameterError) Error() string {
	return fmt.Sprintf("%s: unexpected parameter %q", e.Function, e.Name)
}

// QuotaExhaustedError: the daily call ceiling is reached. There is no useful
// wait time to offer within the same day, so calls fail fast.
type QuotaExhaustedError struct {
	Limit int
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("daily quota of %d calls is exhausted", e.Limit)
}

// TransportError: the transport kept failing transiently after all retry
// attempts. Last holds the final underlying failure.
type TransportError struct {
	Function string
	Attempts int
	Last     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failed after %d attempts: %s",
		e.Function, e.Attempts, e.Last)
}

func (e *TransportError) Unwrap() error { return e.Last }

// ProviderError: the provider rejected the call with its own error payload
// (e.g. "Invalid API call" or a rate limit note). Retrying a semantically
// invalid request is pointless, so these are never retried.
type ProviderError struct {
	Function string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error: %s", e.Function, e.Message)
}

// MalformedResponseError: the response body does not match the shape declared
// by the endpoint registry. This is the primary defense against upstream API
// changes silently corrupting downstream data.
type MalformedResponseError struct {
	Function string
	Detail   string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %s", e.Function, e.Detail)
}

// DataCoercionError: a declared-numeric field holds a non-numeric string.
type DataCoercionError struct {
	Function string
	Field    string
	Raw      string
}

func (e *DataCoercionError) Error() string {
	return fmt.Sprintf("%s: field %q holds a non-numeric value %q",
		e.Function, e.Field, e.Raw)
}
