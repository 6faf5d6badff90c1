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
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/repository"
	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
)

const (
	DefaultPaginateBy = 100
	DefaultPageArg    = "page"
	DefaultCountArg   = "count"
)

type options struct {
	fields       []string
	createFields []string
	updateFields []string
	listFields   []string
	allFields    bool
	paginateBy   int
	pageArg      string
	countArg     string
	scopes       []repository.Scope
	orders       []string
	strict       bool
	logger       database.Logger
}

func defaultOptions() *options {
	return &options{
		paginateBy: DefaultPaginateBy,
		pageArg:    DefaultPageArg,
		countArg:   DefaultCountArg,
	}
}

// Option configures a Manager.
type Option func(*options)

// WithFields sets the fields returned by Create, Retrieve and Update.
// Dotted names ("author.id") reach through relationships.
func WithFields(names ...string) Option {
	return func(o *options) { o.fields = names }
}

// WithCreateFields restricts the values accepted by Create.
func WithCreateFields(names ...string) Option {
	return func(o *options) { o.createFields = names }
}

// WithUpdateFields restricts the values accepted by Update.
func WithUpdateFields(names ...string) Option {
	return func(o *options) { o.updateFields = names }
}

// WithListFields sets the fields returned for each row by RetrieveList.
func WithListFields(names ...string) Option {
	return func(o *options) { o.listFields = names }
}

// WithAllFields exposes every column plus the primary keys of every
// relationship, ignoring WithFields.
func WithAllFields() Option {
	return func(o *options) { o.allFields = true }
}

// WithPaginateBy sets the default page size. Zero or less disables paging.
func WithPaginateBy(n int) Option {
	return func(o *options) { o.paginateBy = n }
}

// WithPaginationArgs renames the page and count filter keys.
func WithPaginationArgs(pageArg, countArg string) Option {
	return func(o *options) {
		if pageArg != "" {
			o.pageArg = pageArg
		}
		if countArg != "" {
			o.countArg = countArg
		}
	}
}

// WithQueryset narrows every lookup and list the manager runs.
func WithQueryset(fn func(q *bun.SelectQuery) *bun.SelectQuery) Option {
	return func(o *options) {
		if fn != nil {
			o.scopes = append(o.scopes, fn)
		}
	}
}

// WithFilter is WithQueryset for a raw WHERE clause.
func WithFilter(filter *types.QueryFilter) Option {
	return func(o *options) {
		if s := repository.FilterScope(filter); s != nil {
			o.scopes = append(o.scopes, s)
		}
	}
}

// WithOrder sets the list ordering, e.g. "name ASC". Lists are ordered by
// primary key otherwise.
func WithOrder(orders ...string) Option {
	return func(o *options) { o.orders = orders }
}

// WithStrict makes Create and Update reject keys outside their allowed
// fields instead of ignoring them.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

func WithLogger(l database.Logger) Option {
	return func(o *options) { o.logger = l }
}
