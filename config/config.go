// Package config holds the flat key/value parameters that configure a job.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"
)

// ErrConfiguration is matched (via xerrors.Is) by every *Error.
var ErrConfiguration = xerrors.New("configuration error")

// Error describes a missing or invalid job parameter.
type Error struct {
	Param  string
	Reason string
}

func (e *Error) Error() string {
	return "config: parameter " + strconv.Quote(e.Param) + ": " + e.Reason
}

func (e *Error) Is(target error) bool { return target == ErrConfiguration }

// Params is an immutable set of job parameters. The zero value is an empty
// parameter set.
type Params struct {
	values map[string]string
}

// New returns a Params holding a copy of values.
func New(values map[string]string) Params {
	return Params{values: maps.Clone(values)}
}

// Parse builds a Params from "key=value" pairs. Later pairs override earlier
// ones.
func Parse(pairs []string) (Params, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Params{}, xerrors.Errorf("parse params: %w", &Error{Param: pair, Reason: "expected key=value"})
		}
		values[key] = strings.TrimSpace(value)
	}
	return Params{values: values}, nil
}

// ReadFile loads parameters from a JSON object whose values are strings,
// numbers or booleans.
func ReadFile(path string) (Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return Params{}, xerrors.Errorf("read params: %w", err)
	}
	defer func() { _ = f.Close() }()

	var raw map[string]interface{}
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err = dec.Decode(&raw); err != nil {
		return Params{}, xerrors.Errorf("read params from %q: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		switch v := v.(type) {
		case string:
			values[key] = v
		case json.Number:
			values[key] = v.String()
		case bool:
			values[key] = strconv.FormatBool(v)
		default:
			return Params{}, xerrors.Errorf("read params from %q: %w", path, &Error{Param: key, Reason: "value must be a string, number or boolean"})
		}
	}
	return Params{values: values}, nil
}

// Merge returns a new Params containing the values of p overridden by the
// values of other.
func (p Params) Merge(other Params) Params {
	values := maps.Clone(p.values)
	if values == nil {
		values = make(map[string]string, len(other.values))
	}
	maps.Copy(values, other.values)
	return Params{values: values}
}

// Has returns true if key is set.
func (p Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns the sorted list of parameter names.
func (p Params) Keys() []string {
	keys := maps.Keys(p.values)
	slices.Sort(keys)
	return keys
}

// String returns the value of key or def if it is not set.
func (p Params) String(key, def string) string {
	if v, ok := p.values[key]; ok {
		return v
	}
	return def
}

// Float64 returns the value of key parsed as a float or def if it is not set.
func (p Params) Float64(key string, def float64) (float64, error) {
	v, ok := p.values[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &Error{Param: key, Reason: "expected a number, got " + strconv.Quote(v)}
	}
	return f, nil
}

// Int returns the value of key parsed as an int or def if it is not set.
func (p Params) Int(key string, def int) (int, error) {
	v, err := p.Int64(key, int64(def))
	return int(v), err
}

// Int64 returns the value of key parsed as an int64 or def if it is not set.
func (p Params) Int64(key string, def int64) (int64, error) {
	v, ok := p.values[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &Error{Param: key, Reason: "expected an integer, got " + strconv.Quote(v)}
	}
	return n, nil
}

// Bool returns the value of key parsed as a boolean or def if it is not set.
func (p Params) Bool(key string, def bool) (bool, error) {
	v, ok := p.values[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &Error{Param: key, Reason: "expected a boolean, got " + strconv.Quote(v)}
	}
	return b, nil
}

// Duration returns the value of key parsed with time.ParseDuration or def if
// it is not set.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p.values[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &Error{Param: key, Reason: "expected a duration, got " + strconv.Quote(v)}
	}
	return d, nil
}

// RequiredInt64 is like Int64 but fails if key is not set.
func (p Params) RequiredInt64(key string) (int64, error) {
	if !p.Has(key) {
		return 0, &Error{Param: key, Reason: "required parameter is missing"}
	}
	return p.Int64(key, 0)
}

// RequiredString is like String but fails if key is not set or empty.
func (p Params) RequiredString(key string) (string, error) {
	if v := p.values[key]; v != "" {
		return v, nil
	}
	return "", &Error{Param: key, Reason: "required parameter is missing"}
}
