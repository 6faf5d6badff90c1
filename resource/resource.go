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
	"context"
	"errors"
	"fmt"

	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/types"
)

// Resource exposes a Manager as a hypermedia resource.
type Resource struct {
	// Name is the URL segment of the resource.
	Name string
	// ModelName is the name relationships of other resources refer to.
	ModelName string
	Manager   Manager
	PKs       []string

	Relationships  []Relationship
	Links          []Relationship
	Preprocessors  []Processor
	Postprocessors []PostProcessor

	AppendSlash bool
	// Methods lists the exposed operations; zero means CRUDL.
	Methods Method

	registry *Registry
}

func (r *Resource) Registry() *Registry { return r.registry }

// Allows reports whether op is exposed.
func (r *Resource) Allows(op Method) bool {
	if r.Methods == 0 {
		return CRUDL.Has(op)
	}
	return r.Methods.Has(op)
}

func (r *Resource) Create(ctx context.Context, req *Request) (*Response, error) {
	return r.run(ctx, MethodCreate, req, func(req *Request) (*Response, error) {
		values, err := r.translate(req.Body, false)
		if err != nil {
			return nil, err
		}
		props, err := r.Manager.Create(ctx, values)
		if err != nil {
			return nil, err
		}
		return r.itemResponse(MethodCreate, props), nil
	})
}

func (r *Resource) Retrieve(ctx context.Context, req *Request) (*Response, error) {
	return r.run(ctx, MethodRetrieve, req, func(req *Request) (*Response, error) {
		lookup, err := r.translate(req.URLParams, false)
		if err != nil {
			return nil, err
		}
		props, err := r.Manager.Retrieve(ctx, lookup)
		if err != nil {
			return nil, err
		}
		return r.itemResponse(MethodRetrieve, props), nil
	})
}

// RetrieveList lists the resource. URL parameters and query arguments are
// both used as filters.
func (r *Resource) RetrieveList(ctx context.Context, req *Request) (*Response, error) {
	return r.run(ctx, MethodRetrieveList, req, func(req *Request) (*Response, error) {
		raw := make(map[string]any, len(req.QueryArgs)+len(req.URLParams))
		for k, v := range req.QueryArgs {
			raw[k] = v
		}
		for k, v := range req.URLParams {
			raw[k] = v
		}
		filters, err := r.translate(raw, true)
		if err != nil {
			return nil, err
		}
		items, meta, err := r.Manager.RetrieveList(ctx, filters)
		if err != nil {
			return nil, err
		}
		return r.listResponse(req, items, meta), nil
	})
}

func (r *Resource) Update(ctx context.Context, req *Request) (*Response, error) {
	return r.run(ctx, MethodUpdate, req, func(req *Request) (*Response, error) {
		lookup, err := r.translate(req.URLParams, false)
		if err != nil {
			return nil, err
		}
		updates, err := r.translate(req.Body, false)
		if err != nil {
			return nil, err
		}
		props, err := r.Manager.Update(ctx, lookup, updates)
		if err != nil {
			return nil, err
		}
		return r.itemResponse(MethodUpdate, props), nil
	})
}

func (r *Resource) Delete(ctx context.Context, req *Request) (*Response, error) {
	return r.run(ctx, MethodDelete, req, func(req *Request) (*Response, error) {
		lookup, err := r.translate(req.URLParams, false)
		if err != nil {
			return nil, err
		}
		props, err := r.Manager.Delete(ctx, lookup)
		if err != nil {
			return nil, err
		}
		return r.itemResponse(MethodDelete, props), nil
	})
}

func (r *Resource) run(ctx context.Context, op Method, req *Request, fn func(*Request) (*Response, error)) (*Response, error) {
	if !r.Allows(op) {
		return nil, fmt.Errorf("%w: %s on %s", ErrMethodNotAllowed, op, r.Name)
	}
	if req == nil {
		req = &Request{}
	}
	for _, pre := range r.Preprocessors {
		if err := pre(ctx, r, op, req); err != nil {
			return nil, err
		}
	}
	resp, err := fn(req)
	if err != nil {
		return nil, err
	}
	for _, post := range r.Postprocessors {
		if err := post(ctx, r, op, req, resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// translate converts raw values with the manager's field types. Keys the
// manager does not know are passed through for it to accept or reject;
// pagination keys too when paging is set.
func (r *Resource) translate(raw map[string]any, paging bool) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	var pageArg, countArg string
	if paging {
		pageArg, countArg = r.Manager.PaginationArgs()
	}
	invalid := map[string]string{}
	for name, v := range raw {
		if paging && (name == pageArg || name == countArg) {
			out[name] = v
			continue
		}
		f, err := r.Manager.FieldType(name)
		if err != nil {
			out[name] = v
			continue
		}
		tv, err := f.Translate(v)
		if err != nil {
			var verr *fields.ValidationError
			if errors.As(err, &verr) {
				for k, reason := range verr.Fields {
					invalid[k] = reason
				}
				continue
			}
			return nil, err
		}
		out[name] = tv
	}
	if len(invalid) > 0 {
		return nil, fields.NewValidationError("invalid field values", invalid)
	}
	return out, nil
}

// pkValues extracts the primary key values of r from props.
func (r *Resource) pkValues(props map[string]any) (map[string]any, bool) {
	if len(r.PKs) == 0 {
		return nil, false
	}
	pks := make(map[string]any, len(r.PKs))
	for _, pk := range r.PKs {
		v, ok := props[pk]
		if !ok || v == nil {
			return nil, false
		}
		pks[pk] = v
	}
	return pks, true
}

func (r *Resource) itemResponse(op Method, props map[string]any) *Response {
	resp := newResponse(r, statusFor(op))
	for k, v := range props {
		resp.Properties[k] = v
	}
	if pks, ok := r.pkValues(resp.Properties); ok {
		resp.addLink("self", Link{Resource: r, PKs: pks})
	}
	for _, rel := range r.Relationships {
		rel.resolve(r.registry, resp, true)
	}
	for _, link := range r.Links {
		link.resolve(r.registry, resp, false)
	}
	return resp
}

func (r *Resource) listResponse(req *Request, items []map[string]any, meta *types.ListMeta) *Response {
	resp := newResponse(r, statusFor(MethodRetrieveList))
	self := Link{Resource: r}
	if len(req.QueryArgs) > 0 {
		self.QueryArgs = make(map[string]any, len(req.QueryArgs))
		for k, v := range req.QueryArgs {
			if s, ok := v.([]string); ok && len(s) == 1 {
				v = s[0]
			}
			self.QueryArgs[k] = v
		}
	}
	resp.addLink("self", self)

	if meta != nil {
		if next := meta.QueryArgs(meta.Links.Next); next != nil {
			resp.addLink("next", Link{Resource: r, QueryArgs: intArgs(next)})
		}
		if prev := meta.QueryArgs(meta.Links.Previous); prev != nil {
			resp.addLink("previous", Link{Resource: r, QueryArgs: intArgs(prev)})
		}
	}

	embedded := make([]*Response, 0, len(items))
	for _, item := range items {
		embedded = append(embedded, r.itemResponse(MethodRetrieve, item))
	}
	resp.Embedded[r.Name] = embedded
	return resp
}

func intArgs(in map[string]int) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
