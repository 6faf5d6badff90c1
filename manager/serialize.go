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

package manager

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/repository"
	"github.com/uptrace/bun/schema"
)

// FieldTree is a nested field selection. A nil subtree selects the value
// itself; a non-nil one selects fields of the related model.
type FieldTree map[string]FieldTree

// DotFieldListToDict turns dotted names into a FieldTree:
// ["a.b", "a.c", "d"] becomes {a: {b: nil, c: nil}, d: nil}.
func DotFieldListToDict(names []string) FieldTree {
	tree := FieldTree{}
	nested := map[string][]string{}
	var order []string
	for _, name := range names {
		head, rest, ok := strings.Cut(name, ".")
		if !ok {
			if _, seen := tree[head]; !seen {
				tree[head] = nil
			}
			continue
		}
		if _, seen := nested[head]; !seen {
			order = append(order, head)
		}
		nested[head] = append(nested[head], rest)
	}
	for _, head := range order {
		tree[head] = DotFieldListToDict(nested[head])
	}
	return tree
}

// Names returns the top-level names of the tree in sorted order.
func (t FieldTree) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// relationPaths lists the bun relation paths ("Author", "Posts.Tags") a
// tree reaches into, validating every name on the way.
func relationPaths(table *schema.Table, tree FieldTree, prefix string) ([]string, error) {
	info := inspectTable(table)
	var paths []string
	for _, name := range tree.Names() {
		if _, ok := info.columns[name]; ok {
			if tree[name] != nil {
				return nil, fmt.Errorf("field %q of model %s is not a relationship", name, table.Type.Name())
			}
			continue
		}
		rel, ok := info.relations[name]
		if !ok {
			return nil, fmt.Errorf("model %s has no field %q", table.Type.Name(), name)
		}
		path := prefix + rel.Field.GoName
		paths = append(paths, path)
		if sub := tree[name]; sub != nil {
			nested, err := relationPaths(rel.JoinTable, sub, path+".")
			if err != nil {
				return nil, err
			}
			paths = append(paths, nested...)
		}
	}
	return paths, nil
}

// Serialize converts a model, or a slice of models, into JSON-ready maps
// holding the fields selected by tree. Nil models serialize to nil.
func Serialize(dialect schema.Dialect, model any, tree FieldTree) (any, error) {
	return serializeValue(dialect, reflect.ValueOf(model), tree)
}

func serializeValue(dialect schema.Dialect, v reflect.Value, tree FieldTree) (any, error) {
	for v.IsValid() && (v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := serializeValue(dialect, v.Index(i), tree)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case reflect.Struct:
		return serializeStruct(dialect, v, tree)
	default:
		return nil, fmt.Errorf("cannot serialize %s as a model", v.Type())
	}
}

func serializeStruct(dialect schema.Dialect, strct reflect.Value, tree FieldTree) (map[string]any, error) {
	info := inspectTable(dialect.Tables().Get(strct.Type()))
	if tree == nil {
		tree = DotFieldListToDict(GetFieldsForModel(info.table))
	}

	out := make(map[string]any, len(tree))
	for name, sub := range tree {
		if col, ok := info.columns[name]; ok {
			fv, ok := repository.FieldValue(strct, col)
			if !ok {
				out[name] = nil
				continue
			}
			out[name] = columnValue(fv)
			continue
		}
		rel, ok := info.relations[name]
		if !ok {
			return nil, fmt.Errorf("model %s has no field %q", info.table.Type.Name(), name)
		}
		fv, ok := repository.FieldValue(strct, rel.Field)
		if !ok {
			out[name] = nil
			continue
		}
		if sub == nil {
			sub = pkTree(rel.JoinTable)
		}
		if fv.Kind() == reflect.Slice && fv.IsNil() {
			out[name] = []any{}
			continue
		}
		value, err := serializeValue(dialect, fv, sub)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

func pkTree(table *schema.Table) FieldTree {
	return DotFieldListToDict(GetPKs(table))
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	scanType   = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// columnValue converts a column value into something encoding/json renders
// as the stored value: sql.Null* wrappers collapse to their payload or nil,
// byte slices to text, JSON maps and lists stay structured.
func columnValue(v reflect.Value) any {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Type() == timeType {
		return v.Interface()
	}
	switch v.Kind() {
	case reflect.Map, reflect.Array:
		return v.Interface()
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		return v.Interface()
	}
	if v.Type().Implements(valuerType) {
		if dv, err := v.Interface().(driver.Valuer).Value(); err == nil {
			if b, ok := dv.([]byte); ok {
				return string(b)
			}
			return dv
		}
	}
	return v.Interface()
}

// setColumn translates raw and stores it in the column of strct, allocating
// nil pointers on the way.
func setColumn(strct reflect.Value, col *schema.Field, raw any) error {
	value, err := fields.ForType(col.Name, col.IndirectType).Translate(raw)
	if err != nil {
		return err
	}

	dst := strct
	for i, idx := range col.Index {
		if i > 0 && dst.Kind() == reflect.Ptr {
			if dst.IsNil() {
				dst.Set(reflect.New(dst.Type().Elem()))
			}
			dst = dst.Elem()
		}
		dst = dst.Field(idx)
	}

	if err := assign(dst, value); err != nil {
		return fields.NewValidationError("invalid field value", map[string]string{
			col.Name: err.Error(),
		})
	}
	return nil
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr && dst.Type() != reflect.TypeOf(value) {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if src.Kind() == reflect.Int64 {
			if dst.OverflowInt(src.Int()) {
				return fmt.Errorf("%d overflows %s", src.Int(), dst.Type())
			}
			dst.SetInt(src.Int())
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if src.Kind() == reflect.Int64 {
			if src.Int() < 0 || dst.OverflowUint(uint64(src.Int())) {
				return fmt.Errorf("%d overflows %s", src.Int(), dst.Type())
			}
			dst.SetUint(uint64(src.Int()))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if src.Kind() == reflect.Float64 {
			dst.SetFloat(src.Float())
			return nil
		}
	case reflect.String:
		if src.Kind() == reflect.String {
			dst.SetString(src.String())
			return nil
		}
	case reflect.Bool:
		if src.Kind() == reflect.Bool {
			dst.SetBool(src.Bool())
			return nil
		}
	case reflect.Map:
		if src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
			return nil
		}
	}

	if dst.CanAddr() && dst.Addr().Type().Implements(scanType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(scannable(value))
	}

	// Structured input for JSON-backed columns.
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dst.Addr().Interface()); err != nil {
		return fmt.Errorf("cannot use %T as %s", value, dst.Type())
	}
	return nil
}

// scannable adapts translated values to what database drivers hand to
// sql.Scanner implementations.
func scannable(value any) any {
	switch v := value.(type) {
	case int64, float64, bool, []byte, string, time.Time:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return b
	}
}
