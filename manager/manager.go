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
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/repository"
	"github.com/tomoncle/hyperbun/session"
	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Manager exposes create, retrieve, list, update and delete for the bun
// model T, returning serialized maps. Every operation runs through the
// session handler it was built with.
type Manager[T any] struct {
	handler session.Handler
	repo    repository.Repository[T]
	info    *modelInfo
	logger  database.Logger

	fields       []string
	createFields []string
	updateFields []string
	listFields   []string

	paginateBy int
	pageArg    string
	countArg   string
	orders     []string
	scopes     []repository.Scope
	strict     bool

	tree          FieldTree
	listTree      FieldTree
	relations     []string
	listRelations []string
}

// New builds a Manager for T. Field lists default to every column of T
// plus the primary keys of its relationships.
func New[T any](handler session.Handler, opts ...Option) (*Manager[T], error) {
	if handler == nil {
		return nil, errors.New("manager: session handler is required")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	repo := repository.NewRepository[T](handler.Dialect())
	m := &Manager[T]{
		handler:    handler,
		repo:       repo,
		info:       inspectTable(repo.Table()),
		logger:     o.logger,
		paginateBy: o.paginateBy,
		pageArg:    o.pageArg,
		countArg:   o.countArg,
		orders:     o.orders,
		scopes:     o.scopes,
		strict:     o.strict,
	}
	if m.logger == nil {
		m.logger = database.GetLogger()
	}

	m.fields = o.fields
	if o.allFields || len(m.fields) == 0 {
		m.fields = GetFieldsForModel(repo.Table())
	}
	m.createFields = orDefault(o.createFields, m.fields)
	m.updateFields = orDefault(o.updateFields, m.fields)
	m.listFields = orDefault(o.listFields, m.fields)

	var err error
	m.tree = DotFieldListToDict(m.fields)
	if m.relations, err = relationPaths(repo.Table(), m.tree, ""); err != nil {
		return nil, err
	}
	m.listTree = DotFieldListToDict(m.listFields)
	if m.listRelations, err = relationPaths(repo.Table(), m.listTree, ""); err != nil {
		return nil, err
	}
	for _, names := range [][]string{m.createFields, m.updateFields} {
		for _, name := range names {
			if _, err := FieldTypeFor(repo.Table(), name); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func orDefault(names, def []string) []string {
	if len(names) == 0 {
		return def
	}
	return names
}

// ModelName is the Go type name of T.
func (m *Manager[T]) ModelName() string { return m.info.table.Type.Name() }

func (m *Manager[T]) Table() *schema.Table { return m.info.table }

func (m *Manager[T]) Fields() []string       { return m.fields }
func (m *Manager[T]) CreateFields() []string { return m.createFields }
func (m *Manager[T]) UpdateFields() []string { return m.updateFields }
func (m *Manager[T]) ListFields() []string   { return m.listFields }
func (m *Manager[T]) PaginateBy() int        { return m.paginateBy }

// PaginationArgs returns the filter keys holding the page number and size.
func (m *Manager[T]) PaginationArgs() (pageArg, countArg string) {
	return m.pageArg, m.countArg
}

// FieldType returns the Field used to translate input for name, which may
// be dotted to reach through relationships.
func (m *Manager[T]) FieldType(name string) (fields.Field, error) {
	return FieldTypeFor(m.info.table, name)
}

// Serialize converts a T (or a slice of them) using tree, or the manager's
// fields when tree is nil.
func (m *Manager[T]) Serialize(model any, tree FieldTree) (any, error) {
	if tree == nil {
		tree = m.tree
	}
	return Serialize(m.handler.Dialect(), model, tree)
}

func (m *Manager[T]) Create(ctx context.Context, values map[string]any) (map[string]any, error) {
	return session.Run(ctx, m.handler, func(ctx context.Context, db bun.IDB) (map[string]any, error) {
		entity := new(T)
		if err := m.setValues(entity, values, m.createFields); err != nil {
			return nil, err
		}
		if err := m.repo.Insert(ctx, db, entity); err != nil {
			return nil, err
		}
		saved, err := m.repo.Reload(ctx, db, entity, repository.WithRelations(m.relations...))
		if err != nil {
			return nil, err
		}
		m.logger.Debug("Model created", "model", m.ModelName())
		return m.serializeOne(saved, m.tree)
	})
}

func (m *Manager[T]) Retrieve(ctx context.Context, lookupKeys map[string]any) (map[string]any, error) {
	return session.Run(ctx, m.handler, func(ctx context.Context, db bun.IDB) (map[string]any, error) {
		entity, err := m.find(ctx, db, lookupKeys, m.relations)
		if err != nil {
			return nil, err
		}
		return m.serializeOne(entity, m.tree)
	})
}

type listResult struct {
	items []map[string]any
	meta  *types.ListMeta
}

// RetrieveList returns one page of models matching filters. The page and
// count keys are removed from filters; the remaining keys must name
// columns and are matched for equality.
func (m *Manager[T]) RetrieveList(ctx context.Context, filters map[string]any) ([]map[string]any, *types.ListMeta, error) {
	filters = copyMap(filters)
	page, err := m.popInt(filters, m.pageArg, 1)
	if err != nil {
		return nil, nil, err
	}
	count, err := m.popInt(filters, m.countArg, m.paginateBy)
	if err != nil {
		return nil, nil, err
	}
	lookup, err := m.lookup(filters)
	if err != nil {
		return nil, nil, err
	}
	pageReq := types.NewPageRequest(page, count, m.orders)

	res, err := session.Run(ctx, m.handler, func(ctx context.Context, db bun.IDB) (*listResult, error) {
		rows, err := m.repo.FindPage(ctx, db, lookup, pageReq, m.queryOptions(m.listRelations)...)
		if err != nil {
			return nil, err
		}
		meta := &types.ListMeta{
			Links:    pageReq.Links(len(rows)),
			PageArg:  m.pageArg,
			CountArg: m.countArg,
		}
		if pageReq.Paginated() && len(rows) > count {
			rows = rows[:count]
		}
		items := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			item, err := m.serializeOne(row, m.listTree)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &listResult{items: items, meta: meta}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res.items, res.meta, nil
}

func (m *Manager[T]) Update(ctx context.Context, lookupKeys map[string]any, updates map[string]any) (map[string]any, error) {
	return session.Run(ctx, m.handler, func(ctx context.Context, db bun.IDB) (map[string]any, error) {
		entity, err := m.find(ctx, db, lookupKeys, nil)
		if err != nil {
			return nil, err
		}
		columns, err := m.applyValues(entity, updates, m.updateFields)
		if err != nil {
			return nil, err
		}
		if err := m.repo.UpdateColumns(ctx, db, entity, columns...); err != nil {
			return nil, err
		}
		saved, err := m.repo.Reload(ctx, db, entity, repository.WithRelations(m.relations...))
		if err != nil {
			return nil, err
		}
		m.logger.Debug("Model updated", "model", m.ModelName(), "columns", columns)
		return m.serializeOne(saved, m.tree)
	})
}

// Delete removes the model matching lookupKeys and returns an empty map.
func (m *Manager[T]) Delete(ctx context.Context, lookupKeys map[string]any) (map[string]any, error) {
	return session.Run(ctx, m.handler, func(ctx context.Context, db bun.IDB) (map[string]any, error) {
		entity, err := m.find(ctx, db, lookupKeys, nil)
		if err != nil {
			return nil, err
		}
		if err := m.repo.Delete(ctx, db, entity); err != nil {
			return nil, err
		}
		m.logger.Debug("Model deleted", "model", m.ModelName())
		return map[string]any{}, nil
	})
}

func (m *Manager[T]) find(ctx context.Context, db bun.IDB, lookupKeys map[string]any, relations []string) (*T, error) {
	lookup, err := m.lookup(lookupKeys)
	if err != nil {
		return nil, err
	}
	entity, err := m.repo.FindOne(ctx, db, lookup, m.queryOptions(relations)...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, &NotFoundError{Model: m.ModelName(), LookupKeys: lookupKeys}
	case errors.Is(err, repository.ErrMultipleRows):
		return nil, fmt.Errorf("%w: model %s with lookup_keys %v", ErrMultipleResults, m.ModelName(), lookupKeys)
	case err != nil:
		return nil, err
	}
	return entity, nil
}

func (m *Manager[T]) queryOptions(relations []string) []repository.QueryOption {
	opts := make([]repository.QueryOption, 0, len(m.scopes)+1)
	for _, s := range m.scopes {
		opts = append(opts, repository.WithScope(s))
	}
	return append(opts, repository.WithRelations(relations...))
}

// lookup validates that every key names a column and translates its value.
func (m *Manager[T]) lookup(keys map[string]any) (repository.Lookup, error) {
	lookup := make(repository.Lookup, len(keys))
	var invalid map[string]string
	for name, raw := range keys {
		col, ok := m.info.columns[name]
		if !ok {
			if invalid == nil {
				invalid = make(map[string]string)
			}
			invalid[name] = "not a filterable column"
			continue
		}
		v, err := fields.ForType(name, col.IndirectType).Translate(raw)
		if err != nil {
			return nil, err
		}
		lookup[name] = v
	}
	if invalid != nil {
		return nil, fields.NewValidationError("invalid lookup keys", invalid)
	}
	return lookup, nil
}

func (m *Manager[T]) setValues(entity *T, values map[string]any, allowed []string) error {
	_, err := m.applyValues(entity, values, allowed)
	return err
}

// applyValues sets every allowed column present in values and returns the
// names of the columns it set, sorted.
func (m *Manager[T]) applyValues(entity *T, values map[string]any, allowed []string) ([]string, error) {
	if m.strict {
		if err := ValidateFields(values, allowed); err != nil {
			return nil, err
		}
	}
	permitted := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		permitted[name] = struct{}{}
	}

	strct := reflect.ValueOf(entity).Elem()
	var columns []string
	for name, raw := range values {
		if _, ok := permitted[name]; !ok {
			continue
		}
		col, ok := m.info.columns[name]
		if !ok {
			continue
		}
		if err := setColumn(strct, col, raw); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns, nil
}

func (m *Manager[T]) serializeOne(entity *T, tree FieldTree) (map[string]any, error) {
	v, err := Serialize(m.handler.Dialect(), entity, tree)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	return out, nil
}

func (m *Manager[T]) popInt(filters map[string]any, key string, def int) (int, error) {
	raw, ok := filters[key]
	if !ok {
		return def, nil
	}
	delete(filters, key)
	v, err := fields.NewIntegerField(key).Translate(raw)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return def, nil
	}
	return int(v.(int64)), nil
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
