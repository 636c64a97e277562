// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package schema

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific SchemaError.
const (
	// ErrCurrencyMismatch indicates arithmetic was attempted between two
	// amounts of different currencies.
	ErrCurrencyMismatch ErrorCode = iota

	// ErrInvalidAmount indicates an amount was negative, zero where a
	// positive value is required, or above the maximum coin supply.
	ErrInvalidAmount

	// ErrInsufficientFunds indicates the available UTXOs could not cover
	// the requested outputs.
	ErrInsufficientFunds

	// ErrInsufficientFee indicates no output paying at least the minimum
	// fee to a configured fee address could be constructed.
	ErrInsufficientFee

	// ErrMissingField indicates a required field (address, output,
	// amount, metadata) was absent where exactly one was expected.
	ErrMissingField

	// ErrInvalidNetwork indicates a network type mismatch or an invalid
	// network value on a transaction.
	ErrInvalidNetwork

	// ErrValidation indicates a schema validation failure not covered by
	// a more specific code.
	ErrValidation

	// ErrBuilderConsumed indicates Build was called on a builder that
	// already produced a transaction.
	ErrBuilderConsumed

	// ErrDuplicateUtxo indicates the same UTXO id appears more than once
	// among a transaction's inputs.
	ErrDuplicateUtxo
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrCurrencyMismatch:  "ErrCurrencyMismatch",
	ErrInvalidAmount:     "ErrInvalidAmount",
	ErrInsufficientFunds: "ErrInsufficientFunds",
	ErrInsufficientFee:   "ErrInsufficientFee",
	ErrMissingField:      "ErrMissingField",
	ErrInvalidNetwork:    "ErrInvalidNetwork",
	ErrValidation:        "ErrValidation",
	ErrBuilderConsumed:   "ErrBuilderConsumed",
	ErrDuplicateUtxo:     "ErrDuplicateUtxo",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// SchemaError provides a single type for errors that can occur while
// building or validating transactions and amounts.  It carries an
// ErrorCode for programmatic matching, a human-readable description,
// and optional key/value details accumulated as the error crosses
// layers, so callers can surface the specific unmet constraint.
type SchemaError struct {
	Code        ErrorCode
	Description string
	Details     map[string]string
	Err         error
}

// Error satisfies the error interface and prints the error description
// followed by any attached details in a stable order.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(e.Description)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error, if any.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value detail and returns the same error for
// chaining.
func (e *SchemaError) WithDetail(key, value string) *SchemaError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func schemaError(code ErrorCode, desc string) *SchemaError {
	return &SchemaError{Code: code, Description: desc}
}

func schemaErrorWrap(code ErrorCode, err error, desc string) *SchemaError {
	return &SchemaError{Code: code, Description: desc, Err: err}
}

// IsSchemaErrorCode reports whether err is a *SchemaError with the
// given code.
func IsSchemaErrorCode(err error, code ErrorCode) bool {
	serr, ok := err.(*SchemaError)
	return ok && serr.Code == code
}
