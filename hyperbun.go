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

package hyperbun

import (
	"errors"

	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/manager"
	"github.com/tomoncle/hyperbun/resource"
	"github.com/tomoncle/hyperbun/session"
)

// ErrDatabaseNotInitialized is returned by the constructors below when
// database.InitDB has not been called.
var ErrDatabaseNotInitialized = errors.New("hyperbun: database not initialized")

// DefaultHandler returns a ScopedHandler over the global database, so every
// manager operation runs in its own transaction. The database is looked up
// on every operation, which keeps handlers working after a reconnect.
func DefaultHandler() (session.Handler, error) {
	db := database.GetDB()
	if db == nil {
		return nil, ErrDatabaseNotInitialized
	}
	return session.NewScopedHandlerFunc(database.GetDB, db.Dialect(), nil), nil
}

// NewManager returns a Manager for T bound to the global database.
func NewManager[T any](opts ...manager.Option) (*manager.Manager[T], error) {
	h, err := DefaultHandler()
	if err != nil {
		return nil, err
	}
	return manager.New[T](h, opts...)
}

// NewResource returns a resource for T, with fields and relationships
// derived from the model, bound to the global database.
func NewResource[T any](opts ...resource.Option) (*resource.Resource, error) {
	h, err := DefaultHandler()
	if err != nil {
		return nil, err
	}
	return resource.FromModel[T](h, opts...)
}

// MustRegister registers resources and panics on a duplicate name. It is
// meant for program start-up.
func MustRegister(registry *resource.Registry, resources ...*resource.Resource) {
	if err := registry.Register(resources...); err != nil {
		panic(err)
	}
}
