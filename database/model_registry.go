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

package database

import (
	"reflect"
	"sort"
	"sync"
)

// ModelRegistry collects the models whose tables are created on start-up.
// Each model type is kept once. Models come back ordered by priority, then
// by registration order, so referenced tables can be created first.
type ModelRegistry struct {
	mu      sync.RWMutex
	entries []registeredModel
	types   map[reflect.Type]int
	seq     int
}

type registeredModel struct {
	model    any
	priority int
	seq      int
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{types: make(map[reflect.Type]int)}
}

// Add registers model, a bun struct pointer. Registering a type again only
// updates its priority. It reports whether the type was new.
func (r *ModelRegistry) Add(model any, priority int) bool {
	typ := reflect.TypeOf(model)
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.types[typ]; ok {
		r.entries[i].priority = priority
		return false
	}
	r.types[typ] = len(r.entries)
	r.entries = append(r.entries, registeredModel{model: model, priority: priority, seq: r.seq})
	r.seq++
	return true
}

func (r *ModelRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.types = make(map[reflect.Type]int)
	r.seq = 0
}

func (r *ModelRegistry) Models() []any {
	r.mu.RLock()
	entries := make([]registeredModel, len(r.entries))
	copy(entries, r.entries)
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	models := make([]any, len(entries))
	for i, e := range entries {
		models[i] = e.model
	}
	return models
}

var defaultRegistry = NewModelRegistry()

// RegisterModels adds models to the default registry with priority 0, so
// they are created in the order given.
func RegisterModels(models ...any) {
	for _, m := range models {
		defaultRegistry.Add(m, 0)
	}
}

// RegisterModelWithPriority adds one model to the default registry; lower
// priorities are created first.
func RegisterModelWithPriority(model any, priority int) {
	defaultRegistry.Add(model, priority)
}

func ResetRegisteredModels() {
	defaultRegistry.Reset()
}

// RegisteredModelInstances returns the models of the default registry in
// creation order.
func RegisteredModelInstances() []any {
	return defaultRegistry.Models()
}
