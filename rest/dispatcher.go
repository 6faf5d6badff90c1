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

package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/resource"
)

// HALContentType is the media type of every successful response.
const HALContentType = "application/hal+json"

// Router is implemented by *echo.Echo and *echo.Group.
type Router interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
}

// Dispatcher routes HTTP requests to the resources of a registry and
// renders their responses as HAL documents.
type Dispatcher struct {
	registry *resource.Registry
	logger   database.Logger
}

func NewDispatcher(registry *resource.Registry, logger database.Logger) *Dispatcher {
	if logger == nil {
		logger = database.GetLogger()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

func (d *Dispatcher) Registry() *resource.Registry { return d.registry }

// Register adds the routes of every registered resource under the
// registry's base path:
//
//	GET, POST               {base}/{name}/
//	GET, PUT, PATCH, DELETE {base}/{name}/:pk...
func (d *Dispatcher) Register(router Router) {
	for _, r := range d.registry.Resources() {
		listPath, itemPath := d.paths(r)
		router.Add(http.MethodGet, listPath, d.handle(r, r.RetrieveList))
		router.Add(http.MethodPost, listPath, d.handle(r, r.Create))
		if itemPath == "" {
			continue
		}
		router.Add(http.MethodGet, itemPath, d.handle(r, r.Retrieve))
		router.Add(http.MethodPut, itemPath, d.handle(r, r.Update))
		router.Add(http.MethodPatch, itemPath, d.handle(r, r.Update))
		router.Add(http.MethodDelete, itemPath, d.handle(r, r.Delete))
		d.logger.Debug("Resource registered", "resource", r.Name, "list", listPath, "item", itemPath)
	}
}

func (d *Dispatcher) paths(r *resource.Resource) (list, item string) {
	base := strings.TrimSuffix(d.registry.BasePath(), "/")
	list = base + "/" + r.Name + "/"
	if len(r.PKs) == 0 {
		return list, ""
	}
	params := make([]string, 0, len(r.PKs))
	for _, pk := range r.PKs {
		params = append(params, ":"+pk)
	}
	item = list + strings.Join(params, "/")
	if r.AppendSlash {
		item += "/"
	}
	return list, item
}

type operation func(ctx context.Context, req *resource.Request) (*resource.Response, error)

func (d *Dispatcher) handle(r *resource.Resource, op operation) echo.HandlerFunc {
	return func(c echo.Context) error {
		req, err := newRequest(c)
		if err != nil {
			return err
		}
		resp, err := op(c.Request().Context(), req)
		if err != nil {
			return err
		}
		if resp.Status == http.StatusNoContent {
			return c.NoContent(http.StatusNoContent)
		}
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		return writeHAL(c, status, d.Render(resp))
	}
}

func newRequest(c echo.Context) (*resource.Request, error) {
	req := &resource.Request{
		URLParams: map[string]any{},
		QueryArgs: map[string]any{},
	}
	for i, name := range c.ParamNames() {
		if i < len(c.ParamValues()) {
			req.URLParams[name] = c.ParamValues()[i]
		}
	}
	for name, values := range c.QueryParams() {
		req.QueryArgs[name] = values
	}

	switch c.Request().Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		body := map[string]any{}
		if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
			return nil, err
		}
		req.Body = body
	}
	return req, nil
}

func writeHAL(c echo.Context, status int, doc map[string]any) error {
	c.Response().Header().Set(echo.HeaderContentType, HALContentType)
	c.Response().WriteHeader(status)
	return c.Echo().JSONSerializer.Serialize(c, doc, "")
}

// Render converts a response into a HAL document.
func (d *Dispatcher) Render(resp *resource.Response) map[string]any {
	doc := make(map[string]any, len(resp.Properties)+2)
	for k, v := range resp.Properties {
		doc[k] = v
	}

	if len(resp.Links) > 0 {
		links := make(map[string]any, len(resp.Links))
		for rel, ls := range resp.Links {
			hrefs := make([]map[string]string, 0, len(ls))
			for _, l := range ls {
				hrefs = append(hrefs, map[string]string{"href": d.registry.LinkURL(l)})
			}
			if len(hrefs) == 1 && !isListRelation(resp.Resource, rel) {
				links[rel] = hrefs[0]
			} else {
				links[rel] = hrefs
			}
		}
		doc["_links"] = links
	}

	if len(resp.Embedded) > 0 {
		embedded := make(map[string]any, len(resp.Embedded))
		for name, items := range resp.Embedded {
			docs := make([]map[string]any, 0, len(items))
			for _, item := range items {
				docs = append(docs, d.Render(item))
			}
			embedded[name] = docs
		}
		doc["_embedded"] = embedded
	}
	return doc
}

func isListRelation(r *resource.Resource, rel string) bool {
	if r == nil {
		return false
	}
	for _, rs := range [][]resource.Relationship{r.Relationships, r.Links} {
		for _, rr := range rs {
			if rr.Name == rel {
				return rr.List
			}
		}
	}
	return false
}
