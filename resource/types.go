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
	"net/http"
	"strings"

	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/types"
)

// ErrMethodNotAllowed is returned for operations a resource does not expose.
var ErrMethodNotAllowed = errors.New("method not allowed")

// Method is a set of resource operations.
type Method uint8

const (
	MethodCreate Method = 1 << iota
	MethodRetrieve
	MethodRetrieveList
	MethodUpdate
	MethodDelete

	CRUD  = MethodCreate | MethodRetrieve | MethodUpdate | MethodDelete
	CRUDL = CRUD | MethodRetrieveList
)

func (m Method) Has(op Method) bool { return m&op == op }

func (m Method) String() string {
	if m == 0 {
		return "none"
	}
	var names []string
	for _, op := range []struct {
		m    Method
		name string
	}{
		{MethodCreate, "create"},
		{MethodRetrieve, "retrieve"},
		{MethodRetrieveList, "retrieve_list"},
		{MethodUpdate, "update"},
		{MethodDelete, "delete"},
	} {
		if m.Has(op.m) {
			names = append(names, op.name)
		}
	}
	return strings.Join(names, "|")
}

// Manager is the persistence contract a resource delegates to. It is
// satisfied by *manager.Manager[T].
type Manager interface {
	ModelName() string
	FieldType(name string) (fields.Field, error)
	PaginationArgs() (pageArg, countArg string)
	Create(ctx context.Context, values map[string]any) (map[string]any, error)
	Retrieve(ctx context.Context, lookupKeys map[string]any) (map[string]any, error)
	RetrieveList(ctx context.Context, filters map[string]any) ([]map[string]any, *types.ListMeta, error)
	Update(ctx context.Context, lookupKeys map[string]any, updates map[string]any) (map[string]any, error)
	Delete(ctx context.Context, lookupKeys map[string]any) (map[string]any, error)
}

// Request carries the inputs of one resource operation. Query argument
// values are usually []string as parsed from a URL.
type Request struct {
	URLParams map[string]any
	QueryArgs map[string]any
	Body      map[string]any
}

// Link points at another resource, or at another page of this one.
type Link struct {
	Resource  *Resource
	PKs       map[string]any
	QueryArgs map[string]any
}

// Response is the outcome of a resource operation.
type Response struct {
	Resource   *Resource
	Status     int
	Properties map[string]any
	// Links maps a relation name ("self", "next", a relationship) to its links.
	Links map[string][]Link
	// Embedded holds full representations, such as the rows of a list.
	Embedded map[string][]*Response
}

func newResponse(r *Resource, status int) *Response {
	return &Response{
		Resource:   r,
		Status:     status,
		Properties: map[string]any{},
		Links:      map[string][]Link{},
		Embedded:   map[string][]*Response{},
	}
}

func (resp *Response) addLink(rel string, link Link) {
	resp.Links[rel] = append(resp.Links[rel], link)
}

// Processor runs before an operation and may rewrite the request.
type Processor func(ctx context.Context, r *Resource, op Method, req *Request) error

// PostProcessor runs after an operation and may rewrite the response.
type PostProcessor func(ctx context.Context, r *Resource, op Method, req *Request, resp *Response) error

func statusFor(op Method) int {
	switch op {
	case MethodCreate:
		return http.StatusCreated
	case MethodDelete:
		return http.StatusNoContent
	default:
		return http.StatusOK
	}
}
