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
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/manager"
	"github.com/tomoncle/hyperbun/resource"
	"github.com/uptrace/bun"
)

type Note struct {
	bun.BaseModel `bun:"table:notes"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Body string `bun:"body"`
}

func initTestDB(t *testing.T) {
	t.Helper()
	initTestDBNamed(t, ":memory:")
}

func initTestDBNamed(t *testing.T, name string) {
	t.Helper()
	database.ResetRegisteredModels()
	database.RegisterModels((*Note)(nil))

	conn := database.DefaultConnectionConfig()
	conn.Type = "sqlite"
	conn.DBName = name
	conn.HealthCheckInterval = 0
	conn.SlowQueryTime = 0
	_, err := database.InitDB(&database.Config{
		ConnectionConfig: *conn,
		SchemaConfig:     database.SchemaConfig{CreateTablesOnStartup: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.CloseDB()
		database.ResetRegisteredModels()
	})
}

func TestConstructorsRequireDatabase(t *testing.T) {
	require.NoError(t, database.CloseDB())

	_, err := NewManager[Note]()
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)
	_, err = NewResource[Note]()
	assert.ErrorIs(t, err, ErrDatabaseNotInitialized)
}

func TestNewManager(t *testing.T) {
	initTestDB(t)
	ctx := context.Background()

	m, err := NewManager[Note](manager.WithPaginateBy(10))
	require.NoError(t, err)
	assert.Equal(t, "Note", m.ModelName())

	created, err := m.Create(ctx, map[string]any{"body": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", created["body"])

	items, _, err := m.RetrieveList(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestNewResource(t *testing.T) {
	initTestDB(t)

	r, err := NewResource[Note]()
	require.NoError(t, err)
	assert.Equal(t, "notes", r.Name)

	registry := resource.NewRegistry("/api")
	MustRegister(registry, r)
	assert.Panics(t, func() { MustRegister(registry, r) })

	resp, err := r.Create(context.Background(), &resource.Request{Body: map[string]any{"body": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "/api/notes/1", registry.LinkURL(resp.Links["self"][0]))
}

func TestManagerSurvivesReconnect(t *testing.T) {
	initTestDBNamed(t, filepath.Join(t.TempDir(), "notes.db"))
	ctx := context.Background()

	m, err := NewManager[Note]()
	require.NoError(t, err)
	created, err := m.Create(ctx, map[string]any{"body": "before"})
	require.NoError(t, err)

	old := database.GetDB()
	require.NoError(t, database.GetConnector().Reconnect(ctx))
	require.NotSame(t, old, database.GetDB())

	got, err := m.Retrieve(ctx, map[string]any{"id": created["id"]})
	require.NoError(t, err)
	assert.Equal(t, "before", got["body"])

	_, err = m.Create(ctx, map[string]any{"body": "after"})
	require.NoError(t, err)
	items, _, err := m.RetrieveList(ctx, map[string]any{})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
