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
	"database/sql"
	"errors"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want Kind
	}{
		{"string", reflect.TypeOf(""), StringKind},
		{"bytes", reflect.TypeOf([]byte(nil)), StringKind},
		{"int", reflect.TypeOf(0), IntegerKind},
		{"uint16", reflect.TypeOf(uint16(0)), IntegerKind},
		{"int64 pointer", reflect.TypeOf((*int64)(nil)), IntegerKind},
		{"float32", reflect.TypeOf(float32(0)), FloatKind},
		{"big float", reflect.TypeOf(big.Float{}), FloatKind},
		{"time", reflect.TypeOf(time.Time{}), DateTimeKind},
		{"time pointer", reflect.TypeOf(&time.Time{}), DateTimeKind},
		{"duration", reflect.TypeOf(time.Second), DateTimeKind},
		{"bool", reflect.TypeOf(true), BooleanKind},
		{"null string", reflect.TypeOf(sql.NullString{}), StringKind},
		{"null int64", reflect.TypeOf(sql.NullInt64{}), IntegerKind},
		{"null time", reflect.TypeOf(sql.NullTime{}), DateTimeKind},
		{"map", reflect.TypeOf(map[string]any{}), BaseKind},
		{"struct", reflect.TypeOf(struct{ A int }{}), BaseKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.typ))
			assert.Equal(t, tt.want, ForType("col", tt.typ).Kind())
		})
	}
}

func TestTranslate(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"string passthrough", NewStringField("s"), "abc", "abc"},
		{"string from int", NewStringField("s"), 12, "12"},
		{"string from query list", NewStringField("s"), []string{"q"}, "q"},
		{"integer from text", NewIntegerField("i"), " 42 ", int64(42)},
		{"integer from json number", NewIntegerField("i"), float64(7), int64(7)},
		{"integer from int32", NewIntegerField("i"), int32(-3), int64(-3)},
		{"integer from query list", NewIntegerField("i"), []string{"5"}, int64(5)},
		{"float from text", NewFloatField("f"), "1.5", 1.5},
		{"float from int", NewFloatField("f"), 2, float64(2)},
		{"datetime rfc3339", NewDateTimeField("d"), "2024-03-01T12:30:00Z", ts},
		{"datetime space layout", NewDateTimeField("d"), "2024-03-01 12:30:00", ts},
		{"datetime date only", NewDateTimeField("d"), "2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"datetime value", NewDateTimeField("d"), ts, ts},
		{"boolean text", NewBooleanField("b"), "yes", true},
		{"boolean off", NewBooleanField("b"), "OFF", false},
		{"boolean number", NewBooleanField("b"), float64(1), true},
		{"base identity", NewBaseField("x"), map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"nil stays nil", NewIntegerField("i"), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Translate(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		in    any
	}{
		{"integer text", NewIntegerField("age"), "abc"},
		{"fractional integer", NewIntegerField("age"), 1.5},
		{"float text", NewFloatField("price"), "cheap"},
		{"datetime text", NewDateTimeField("when"), "yesterday"},
		{"boolean text", NewBooleanField("flag"), "maybe"},
		{"string from map", NewStringField("name"), map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.field.Translate(tt.in)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tt.field.Name())
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("unknown fields", map[string]string{"b": "not allowed", "a": "not allowed"})
	assert.Equal(t, "unknown fields (a: not allowed; b: not allowed)", err.Error())
	assert.Equal(t, "bare", NewValidationError("bare", nil).Error())
}
