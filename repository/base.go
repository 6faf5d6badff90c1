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

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sort"

	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T any] struct {
	dialect schema.Dialect
	table   *schema.Table
}

// NewRepository returns a generic repository for T using the table metadata
// of the given dialect.
func NewRepository[T any](dialect schema.Dialect) Repository[T] {
	return &baseRepositoryImpl[T]{
		dialect: dialect,
		table:   dialect.Tables().Get(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.dialect }

func (r *baseRepositoryImpl[T]) Table() *schema.Table { return r.table }

func (r *baseRepositoryImpl[T]) NewSelect(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().Model((*T)(nil))
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, db bun.IDB, lookup Lookup, opts ...QueryOption) (*T, error) {
	var entities []*T
	query, err := r.selectQuery(db.NewSelect().Model(&entities), lookup, opts)
	if err != nil {
		return nil, err
	}
	if err := query.Limit(2).Scan(ctx); err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, sql.ErrNoRows
	case 1:
		return entities[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func (r *baseRepositoryImpl[T]) Reload(ctx context.Context, db bun.IDB, entity *T, opts ...QueryOption) (*T, error) {
	if len(r.table.PKs) == 0 {
		return nil, fmt.Errorf("model %s has no primary key", r.table.Type.Name())
	}
	strct := reflect.ValueOf(entity).Elem()
	lookup := make(Lookup, len(r.table.PKs))
	for _, pk := range r.table.PKs {
		v, ok := FieldValue(strct, pk)
		if !ok {
			return nil, fmt.Errorf("model %s has no value for primary key %s", r.table.Type.Name(), pk.Name)
		}
		lookup[pk.Name] = v.Interface()
	}
	return r.FindOne(ctx, db, lookup, opts...)
}

func (r *baseRepositoryImpl[T]) FindPage(ctx context.Context, db bun.IDB, lookup Lookup, page *types.PageRequest, opts ...QueryOption) ([]*T, error) {
	entities := make([]*T, 0)
	query, err := r.selectQuery(db.NewSelect().Model(&entities), lookup, opts)
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = types.NewDefaultPageRequest(1, 0)
	}
	if orders := page.GetOrders(); len(orders) > 0 {
		query = query.Order(orders...)
	} else {
		for _, pk := range r.table.PKs {
			query = query.OrderExpr("?TableAlias.? ASC", bun.Ident(pk.Name))
		}
	}
	if page.Paginated() {
		query = query.Limit(page.GetLimit()).Offset(page.GetOffset())
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *baseRepositoryImpl[T]) Insert(ctx context.Context, db bun.IDB, entity *T) error {
	_, err := db.NewInsert().Model(entity).Exec(ctx)
	return err
}

// UpdateColumns writes only the named columns of entity, located by its
// primary key. No columns means nothing to write.
func (r *baseRepositoryImpl[T]) UpdateColumns(ctx context.Context, db bun.IDB, entity *T, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	_, err := db.NewUpdate().Model(entity).Column(columns...).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, db bun.IDB, entity *T) error {
	_, err := db.NewDelete().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) selectQuery(query *bun.SelectQuery, lookup Lookup, opts []QueryOption) (*bun.SelectQuery, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	for _, scope := range o.scopes {
		query = scope(query)
	}

	keys := make([]string, 0, len(lookup))
	for k := range lookup {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := r.table.FieldMap[k]; !ok {
			return nil, fmt.Errorf("model %s has no column %q", r.table.Type.Name(), k)
		}
		if v := lookup[k]; v == nil {
			query = query.Where("?TableAlias.? IS NULL", bun.Ident(k))
		} else {
			query = query.Where("?TableAlias.? = ?", bun.Ident(k), v)
		}
	}
	for _, rel := range o.relations {
		query = query.Relation(rel)
	}
	return query, nil
}

// FieldValue reads field f from strct without allocating nil embedded
// pointers. ok is false when a pointer on the path is nil.
func FieldValue(strct reflect.Value, f *schema.Field) (reflect.Value, bool) {
	v := strct
	for i, idx := range f.Index {
		if i > 0 {
			if v.Kind() == reflect.Ptr {
				if v.IsNil() {
					return reflect.Value{}, false
				}
				v = v.Elem()
			}
		}
		v = v.Field(idx)
	}
	return v, true
}
