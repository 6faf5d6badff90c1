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
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/tomoncle/hyperbun/fields"
	"github.com/uptrace/bun/schema"
)

// RelationInfo describes one relationship of a model.
type RelationInfo struct {
	// Name is the property name the relation serializes under.
	Name string
	// Relation is the Go type name of the related model.
	Relation string
	// List is true for has-many and many-to-many relations.
	List bool
}

// modelInfo indexes a table's columns and relations by serialized name.
type modelInfo struct {
	table     *schema.Table
	columns   map[string]*schema.Field
	relations map[string]*schema.Relation
}

var modelInfos sync.Map // *schema.Table -> *modelInfo

func inspectTable(table *schema.Table) *modelInfo {
	if v, ok := modelInfos.Load(table); ok {
		return v.(*modelInfo)
	}
	info := &modelInfo{
		table:     table,
		columns:   make(map[string]*schema.Field, len(table.Fields)),
		relations: make(map[string]*schema.Relation, len(table.Relations)),
	}
	for _, rel := range table.Relations {
		info.relations[rel.Field.Name] = rel
	}
	for _, f := range table.Fields {
		if _, isRel := info.relations[f.Name]; !isRel {
			info.columns[f.Name] = f
		}
	}
	v, _ := modelInfos.LoadOrStore(table, info)
	return v.(*modelInfo)
}

func (mi *modelInfo) relationNames() []string {
	names := make([]string, 0, len(mi.relations))
	for name := range mi.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableFor returns the bun table metadata of model, which may be a struct,
// a pointer to one or a reflect.Type.
func TableFor(dialect schema.Dialect, model any) *schema.Table {
	typ, ok := model.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(model)
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return dialect.Tables().Get(typ)
}

// GetFieldsForModel lists every column of the table followed by
// "relation.pk" for the primary keys of each relationship.
func GetFieldsForModel(table *schema.Table) []string {
	info := inspectTable(table)
	names := make([]string, 0, len(table.Fields)+len(info.relations))
	for _, f := range table.Fields {
		if _, ok := info.columns[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	for _, relName := range info.relationNames() {
		for _, pk := range info.relations[relName].JoinTable.PKs {
			names = append(names, relName+"."+pk.Name)
		}
	}
	return names
}

// GetPKs returns the primary key column names of the table.
func GetPKs(table *schema.Table) []string {
	pks := make([]string, 0, len(table.PKs))
	for _, pk := range table.PKs {
		pks = append(pks, pk.Name)
	}
	return pks
}

// GetRelationships describes the relationships of the table, sorted by name.
func GetRelationships(table *schema.Table) []RelationInfo {
	info := inspectTable(table)
	rels := make([]RelationInfo, 0, len(info.relations))
	for _, name := range info.relationNames() {
		rel := info.relations[name]
		rels = append(rels, RelationInfo{
			Name:     name,
			Relation: rel.JoinTable.Type.Name(),
			List:     rel.Type == schema.HasManyRelation || rel.Type == schema.ManyToManyRelation,
		})
	}
	return rels
}

// FieldTypeFor resolves a possibly dotted field name against table and
// returns the Field translating input for the column it ends on.
// Relationship names without a column resolve to a BaseField.
func FieldTypeFor(table *schema.Table, name string) (fields.Field, error) {
	info := inspectTable(table)
	head, rest, nested := strings.Cut(name, ".")
	if !nested {
		if col, ok := info.columns[head]; ok {
			return fields.ForType(name, col.IndirectType), nil
		}
		if _, ok := info.relations[head]; ok {
			return fields.NewBaseField(name), nil
		}
		return nil, fmt.Errorf("model %s has no field %q", table.Type.Name(), name)
	}
	rel, ok := info.relations[head]
	if !ok {
		return nil, fmt.Errorf("model %s has no relationship %q", table.Type.Name(), head)
	}
	f, err := FieldTypeFor(rel.JoinTable, rest)
	if err != nil {
		return nil, err
	}
	return fields.New(name, f.Kind()), nil
}
