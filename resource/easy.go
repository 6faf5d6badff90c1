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

package resource

import (
	"github.com/tomoncle/hyperbun/manager"
	"github.com/tomoncle/hyperbun/session"
)

type modelOptions struct {
	name              string
	methods           Method
	relationships     []Relationship
	autoRelationships bool
	links             []Relationship
	preprocessors     []Processor
	postprocessors    []PostProcessor
	fields            []string
	paginateBy        int
	pks               []string
	createFields      []string
	updateFields      []string
	listFields        []string
	appendSlash       bool
	managerOptions    []manager.Option
}

// Option configures FromModel.
type Option func(*modelOptions)

// WithName sets the resource name. It defaults to the model's table name.
func WithName(name string) Option {
	return func(o *modelOptions) { o.name = name }
}

// WithMethods limits the exposed operations, e.g. MethodUpdate|MethodDelete.
func WithMethods(m Method) Option {
	return func(o *modelOptions) { o.methods = m }
}

// WithRelationships adds relationships. Relationships found on the model
// are appended after them unless WithoutAutoRelationships is given.
func WithRelationships(rels ...Relationship) Option {
	return func(o *modelOptions) { o.relationships = append(o.relationships, rels...) }
}

func WithoutAutoRelationships() Option {
	return func(o *modelOptions) { o.autoRelationships = false }
}

func WithLinks(links ...Relationship) Option {
	return func(o *modelOptions) { o.links = append(o.links, links...) }
}

func WithPreprocessors(p ...Processor) Option {
	return func(o *modelOptions) { o.preprocessors = append(o.preprocessors, p...) }
}

func WithPostprocessors(p ...PostProcessor) Option {
	return func(o *modelOptions) { o.postprocessors = append(o.postprocessors, p...) }
}

// WithFields sets the exposed fields. All fields of the model by default.
func WithFields(names ...string) Option {
	return func(o *modelOptions) { o.fields = names }
}

func WithPaginateBy(n int) Option {
	return func(o *modelOptions) { o.paginateBy = n }
}

// WithPKs overrides the primary keys identifying an item in URLs.
func WithPKs(pks ...string) Option {
	return func(o *modelOptions) { o.pks = pks }
}

// WithCreateFields defaults to the fields without the primary keys.
func WithCreateFields(names ...string) Option {
	return func(o *modelOptions) { o.createFields = names }
}

// WithUpdateFields defaults to the fields without the primary keys.
func WithUpdateFields(names ...string) Option {
	return func(o *modelOptions) { o.updateFields = names }
}

// WithListFields defaults to the fields.
func WithListFields(names ...string) Option {
	return func(o *modelOptions) { o.listFields = names }
}

func WithAppendSlash() Option {
	return func(o *modelOptions) { o.appendSlash = true }
}

// WithManagerOptions passes extra options to the generated manager.
func WithManagerOptions(opts ...manager.Option) Option {
	return func(o *modelOptions) { o.managerOptions = append(o.managerOptions, opts...) }
}

// FromModel builds a CRUDL resource and its manager by inspecting the bun
// model T: its columns, primary keys and relationships.
func FromModel[T any](handler session.Handler, opts ...Option) (*Resource, error) {
	o := &modelOptions{
		methods:           CRUDL,
		autoRelationships: true,
		paginateBy:        manager.DefaultPaginateBy,
	}
	for _, opt := range opts {
		opt(o)
	}

	table := manager.TableFor(handler.Dialect(), (*T)(nil))
	rels := o.relationships
	if o.autoRelationships {
		for _, info := range manager.GetRelationships(table) {
			rels = append(rels, Relationship{Name: info.Name, Relation: info.Relation, List: info.List})
		}
	}
	pks := o.pks
	if len(pks) == 0 {
		pks = manager.GetPKs(table)
	}
	fieldNames := o.fields
	if len(fieldNames) == 0 {
		fieldNames = manager.GetFieldsForModel(table)
	}
	createFields := o.createFields
	if len(createFields) == 0 {
		createFields = without(fieldNames, pks)
	}
	updateFields := o.updateFields
	if len(updateFields) == 0 {
		updateFields = without(fieldNames, pks)
	}
	listFields := o.listFields
	if len(listFields) == 0 {
		listFields = fieldNames
	}

	mopts := append([]manager.Option{
		manager.WithFields(fieldNames...),
		manager.WithCreateFields(createFields...),
		manager.WithUpdateFields(updateFields...),
		manager.WithListFields(listFields...),
		manager.WithPaginateBy(o.paginateBy),
	}, o.managerOptions...)
	m, err := manager.New[T](handler, mopts...)
	if err != nil {
		return nil, err
	}

	name := o.name
	if name == "" {
		name = table.Name
	}
	return &Resource{
		Name:           name,
		ModelName:      m.ModelName(),
		Manager:        m,
		PKs:            pks,
		Relationships:  rels,
		Links:          o.links,
		Preprocessors:  o.preprocessors,
		Postprocessors: o.postprocessors,
		AppendSlash:    o.appendSlash,
		Methods:        o.methods,
	}, nil
}

func without(names, drop []string) []string {
	skip := make(map[string]struct{}, len(drop))
	for _, d := range drop {
		skip[d] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := skip[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
