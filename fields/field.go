/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fields

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Kind names the translation a Field performs.
type Kind int

const (
	BaseKind Kind = iota
	StringKind
	IntegerKind
	FloatKind
	DateTimeKind
	BooleanKind
)

func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case IntegerKind:
		return "integer"
	case FloatKind:
		return "float"
	case DateTimeKind:
		return "datetime"
	case BooleanKind:
		return "boolean"
	default:
		return "base"
	}
}

// Field translates raw input (query-string text or decoded JSON) into the
// Go value expected by a column.
type Field interface {
	Name() string
	Kind() Kind
	Translate(v any) (any, error)
}

type BaseField struct{ name string }

func NewBaseField(name string) *BaseField { return &BaseField{name: name} }

func (f *BaseField) Name() string { return f.name }
func (f *BaseField) Kind() Kind   { return BaseKind }

func (f *BaseField) Translate(v any) (any, error) {
	return unwrap(v), nil
}

type StringField struct{ name string }

func NewStringField(name string) *StringField { return &StringField{name: name} }

func (f *StringField) Name() string { return f.name }
func (f *StringField) Kind() Kind   { return StringKind }

func (f *StringField) Translate(v any) (any, error) {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return fmt.Sprint(t), nil
	default:
		return nil, invalid(f.name, v, "a string")
	}
}

type IntegerField struct{ name string }

func NewIntegerField(name string) *IntegerField { return &IntegerField{name: name} }

func (f *IntegerField) Name() string { return f.name }
func (f *IntegerField) Kind() Kind   { return IntegerKind }

func (f *IntegerField) Translate(v any) (any, error) {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return nil, invalid(f.name, v, "an integer")
		}
		return n, nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return nil, invalid(f.name, v, "an integer")
		}
		return n, nil
	case float32:
		return f.fromFloat(float64(t))
	case float64:
		return f.fromFloat(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, invalid(f.name, v, "an integer")
		}
		return int64(u), nil
	}
	return nil, invalid(f.name, v, "an integer")
}

// JSON numbers decode as float64; only whole values are accepted.
func (f *IntegerField) fromFloat(x float64) (any, error) {
	if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
		return nil, invalid(f.name, x, "an integer")
	}
	return int64(x), nil
}

type FloatField struct{ name string }

func NewFloatField(name string) *FloatField { return &FloatField{name: name} }

func (f *FloatField) Name() string { return f.name }
func (f *FloatField) Kind() Kind   { return FloatKind }

func (f *FloatField) Translate(v any) (any, error) {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, invalid(f.name, v, "a number")
		}
		return x, nil
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return nil, invalid(f.name, v, "a number")
		}
		return x, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, invalid(f.name, v, "a number")
}

// DateTimeLayouts are tried in order when translating text.
var DateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type DateTimeField struct{ name string }

func NewDateTimeField(name string) *DateTimeField { return &DateTimeField{name: name} }

func (f *DateTimeField) Name() string { return f.name }
func (f *DateTimeField) Kind() Kind   { return DateTimeKind }

func (f *DateTimeField) Translate(v any) (any, error) {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return *t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range DateTimeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, invalid(f.name, v, "a datetime")
	default:
		return nil, invalid(f.name, v, "a datetime")
	}
}

type BooleanField struct{ name string }

func NewBooleanField(name string) *BooleanField { return &BooleanField{name: name} }

func (f *BooleanField) Name() string { return f.name }
func (f *BooleanField) Kind() Kind   { return BooleanKind }

func (f *BooleanField) Translate(v any) (any, error) {
	v = unwrap(v)
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "1", "yes", "y", "on":
			return true, nil
		case "false", "f", "0", "no", "n", "off":
			return false, nil
		}
	case float64:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case int:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	case int64:
		if t == 0 || t == 1 {
			return t == 1, nil
		}
	}
	return nil, invalid(f.name, v, "a boolean")
}

// New returns the Field of the given kind.
func New(name string, kind Kind) Field {
	switch kind {
	case StringKind:
		return NewStringField(name)
	case IntegerKind:
		return NewIntegerField(name)
	case FloatKind:
		return NewFloatField(name)
	case DateTimeKind:
		return NewDateTimeField(name)
	case BooleanKind:
		return NewBooleanField(name)
	default:
		return NewBaseField(name)
	}
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	bigFloatType = reflect.TypeOf(big.Float{})
	bigRatType   = reflect.TypeOf(big.Rat{})
	bigIntType   = reflect.TypeOf(big.Int{})
	valuerType   = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
)

// KindOf maps a Go column type to the translation it needs. Pointers and
// sql.Null* wrappers resolve to their payload type.
func KindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t {
	case timeType, durationType:
		return DateTimeKind
	case bigFloatType, bigRatType:
		return FloatKind
	case bigIntType:
		return IntegerKind
	}
	if inner, ok := nullPayload(t); ok {
		return KindOf(inner)
	}
	switch t.Kind() {
	case reflect.String:
		return StringKind
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return IntegerKind
	case reflect.Float32, reflect.Float64:
		return FloatKind
	case reflect.Bool:
		return BooleanKind
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return StringKind
		}
	}
	return BaseKind
}

// ForType returns the Field for a column of Go type t.
func ForType(name string, t reflect.Type) Field {
	return New(name, KindOf(t))
}

// nullPayload recognises the sql.NullX shape: a Valuer struct with a
// payload field followed by a Valid bool.
func nullPayload(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || t.NumField() != 2 || !reflect.PointerTo(t).Implements(valuerType) {
		return nil, false
	}
	if t.Field(1).Name != "Valid" || t.Field(1).Type.Kind() != reflect.Bool {
		return nil, false
	}
	return t.Field(0).Type, true
}

// unwrap collapses single-valued query-string lists.
func unwrap(v any) any {
	if s, ok := v.([]string); ok {
		switch len(s) {
		case 0:
			return nil
		case 1:
			return s[0]
		}
	}
	return v
}
