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
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Registry holds the resources served together and resolves relationship
// targets by resource name or model name.
type Registry struct {
	basePath string

	mu      sync.RWMutex
	order   []*Resource
	byName  map[string]*Resource
	byModel map[string]*Resource
}

// NewRegistry returns an empty registry whose URLs start with basePath.
func NewRegistry(basePath string) *Registry {
	return &Registry{
		basePath: "/" + strings.Trim(basePath, "/"),
		byName:   make(map[string]*Resource),
		byModel:  make(map[string]*Resource),
	}
}

func (g *Registry) BasePath() string { return g.basePath }

// Register adds resources. Names must be unique within the registry.
func (g *Registry) Register(resources ...*Resource) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range resources {
		if r == nil || r.Name == "" {
			return fmt.Errorf("resource must have a name")
		}
		if _, dup := g.byName[r.Name]; dup {
			return fmt.Errorf("resource %q is already registered", r.Name)
		}
		g.byName[r.Name] = r
		if r.ModelName != "" {
			if _, dup := g.byModel[r.ModelName]; !dup {
				g.byModel[r.ModelName] = r
			}
		}
		g.order = append(g.order, r)
		r.registry = g
	}
	return nil
}

// Lookup finds a resource by name, falling back to its model name.
func (g *Registry) Lookup(name string) (*Resource, bool) {
	r := g.lookup(name)
	return r, r != nil
}

func (g *Registry) lookup(name string) *Resource {
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if r, ok := g.byName[name]; ok {
		return r
	}
	return g.byModel[name]
}

// Resources returns the registered resources in registration order.
func (g *Registry) Resources() []*Resource {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Resource, len(g.order))
	copy(out, g.order)
	return out
}

// URL builds the path of r. With primary key values it addresses a single
// item, otherwise the list. Query arguments are encoded in sorted order.
func (g *Registry) URL(r *Resource, pks map[string]any, query map[string]any) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(g.basePath, "/"))
	b.WriteString("/")
	b.WriteString(r.Name)
	b.WriteString("/")
	if len(pks) > 0 {
		parts := make([]string, 0, len(r.PKs))
		for _, pk := range r.PKs {
			parts = append(parts, url.PathEscape(fmt.Sprint(pks[pk])))
		}
		b.WriteString(strings.Join(parts, "/"))
		if r.AppendSlash {
			b.WriteString("/")
		}
	}
	if len(query) > 0 {
		values := url.Values{}
		keys := make([]string, 0, len(query))
		for k := range query {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values.Set(k, fmt.Sprint(query[k]))
		}
		b.WriteString("?")
		b.WriteString(values.Encode())
	}
	return b.String()
}

// LinkURL renders a Link produced by a resource operation.
func (g *Registry) LinkURL(l Link) string {
	return g.URL(l.Resource, l.PKs, l.QueryArgs)
}
