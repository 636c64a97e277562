// Copyright (c) 2024 The redgold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cfgutil

// ExplicitString is a string config field that remembers whether the
// flags package assigned it, letting option handling tell a default
// apart from the same value set on the command line or in the config
// file.
type ExplicitString struct {
	Value         string
	explicitlySet bool
}

// NewExplicitString returns an ExplicitString carrying defaultValue and
// marked as not explicitly set.
func NewExplicitString(defaultValue string) *ExplicitString {
	return &ExplicitString{Value: defaultValue}
}

// ExplicitlySet reports whether UnmarshalFlag has assigned the value.
func (e *ExplicitString) ExplicitlySet() bool { return e.explicitlySet }

// MarshalFlag implements flags.Marshaler.
func (e *ExplicitString) MarshalFlag() (string, error) { return e.Value, nil }

// UnmarshalFlag implements flags.Unmarshaler, recording the assignment.
func (e *ExplicitString) UnmarshalFlag(value string) error {
	e.Value = value
	e.explicitlySet = true
	return nil
}
