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
	"errors"

	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// ErrMultipleRows is returned by FindOne when the lookup matches more than
// one row.
var ErrMultipleRows = errors.New("multiple rows found")

// Scope narrows a select query. It is applied before lookups and filters.
type Scope func(q *bun.SelectQuery) *bun.SelectQuery

// Lookup is a set of column = value conditions.
type Lookup map[string]any

// FindOneRepository loads single rows.
type FindOneRepository[T any] interface {
	FindOne(ctx context.Context, db bun.IDB, lookup Lookup, opts ...QueryOption) (*T, error)
	Reload(ctx context.Context, db bun.IDB, entity *T, opts ...QueryOption) (*T, error)
}

// PageQueryRepository lists rows a page at a time.
type PageQueryRepository[T any] interface {
	FindPage(ctx context.Context, db bun.IDB, lookup Lookup, page *types.PageRequest, opts ...QueryOption) ([]*T, error)
}

// WriteRepository persists rows.
type WriteRepository[T any] interface {
	Insert(ctx context.Context, db bun.IDB, entity *T) error
	UpdateColumns(ctx context.Context, db bun.IDB, entity *T, columns ...string) error
	Delete(ctx context.Context, db bun.IDB, entity *T) error
}

// Repository is the query layer a manager runs on. Every call takes the
// handle to run against so that it composes with session handlers.
type Repository[T any] interface {
	FindOneRepository[T]
	PageQueryRepository[T]
	WriteRepository[T]
	Dialect() schema.Dialect
	Table() *schema.Table
	NewSelect(db bun.IDB) *bun.SelectQuery
}

// QueryOption adjusts how a select is built.
type QueryOption func(*queryOptions)

type queryOptions struct {
	relations []string
	scopes    []Scope
}

// WithRelations eager loads relations given as bun Go-name paths
// ("Author", "Posts.Tags").
func WithRelations(paths ...string) QueryOption {
	return func(o *queryOptions) { o.relations = append(o.relations, paths...) }
}

// WithScope adds a scope to the query. Nil scopes are ignored.
func WithScope(s Scope) QueryOption {
	return func(o *queryOptions) {
		if s != nil {
			o.scopes = append(o.scopes, s)
		}
	}
}

// FilterScope turns a raw QueryFilter into a Scope.
func FilterScope(filter *types.QueryFilter) Scope {
	if filter == nil || filter.Schema == "" {
		return nil
	}
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where(filter.Schema, filter.Args...)
	}
}
