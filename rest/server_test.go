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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hyperbun/database"
	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/manager"
	"github.com/tomoncle/hyperbun/resource"
	"github.com/tomoncle/hyperbun/session"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type Author struct {
	bun.BaseModel `bun:"table:authors"`

	ID    int64   `bun:"id,pk,autoincrement"`
	Name  string  `bun:"name"`
	Posts []*Post `bun:"rel:has-many,join:id=author_id"`
}

type Post struct {
	bun.BaseModel `bun:"table:posts"`

	ID       int64   `bun:"id,pk,autoincrement"`
	Title    string  `bun:"title"`
	Views    int     `bun:"views"`
	AuthorID int64   `bun:"author_id"`
	Author   *Author `bun:"rel:belongs-to,join:author_id=id"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, model := range []any{(*Author)(nil), (*Post)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	_, err = db.NewInsert().Model(&Author{Name: "ada"}).Exec(ctx)
	require.NoError(t, err)

	handler := session.NewScopedHandler(db, nil)
	posts, err := resource.FromModel[Post](handler)
	require.NoError(t, err)
	authors, err := resource.FromModel[Author](handler)
	require.NoError(t, err)
	readOnly, err := resource.FromModel[Post](handler,
		resource.WithName("archive"), resource.WithMethods(resource.MethodRetrieve|resource.MethodRetrieveList))
	require.NoError(t, err)

	registry := resource.NewRegistry("/api")
	require.NoError(t, registry.Register(posts, authors, readOnly))
	return NewServer(ServerConfig{}, registry, database.NopLogger{})
}

func do(t *testing.T, s *Server, method, target string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var doc map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	}
	return rec, doc
}

func href(t *testing.T, doc map[string]any, rel string) string {
	t.Helper()
	links, ok := doc["_links"].(map[string]any)
	require.True(t, ok, "missing _links")
	link, ok := links[rel].(map[string]any)
	require.True(t, ok, "missing link %q", rel)
	return link["href"].(string)
}

func createPost(t *testing.T, s *Server, title string) map[string]any {
	t.Helper()
	rec, doc := do(t, s, http.MethodPost, "/api/posts/", map[string]any{"title": title, "author_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return doc
}

func TestCreateAndRetrieve(t *testing.T) {
	s := newTestServer(t)

	doc := createPost(t, s, "first")
	assert.Equal(t, "first", doc["title"])
	assert.Equal(t, "/api/posts/1", href(t, doc, "self"))
	assert.Equal(t, "/api/authors/1", href(t, doc, "author"))
	assert.NotContains(t, doc, "author")

	rec, doc := do(t, s, http.MethodGet, "/api/posts/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, HALContentType, rec.Header().Get(echo.HeaderContentType))
	assert.EqualValues(t, 1, doc["id"])
	assert.EqualValues(t, 1, doc["author_id"])
}

func TestListRelationIsAlwaysAList(t *testing.T) {
	s := newTestServer(t)
	createPost(t, s, "only")

	rec, doc := do(t, s, http.MethodGet, "/api/authors/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	links := doc["_links"].(map[string]any)
	posts, ok := links["posts"].([]any)
	require.True(t, ok)
	require.Len(t, posts, 1)
	assert.Equal(t, "/api/posts/1", posts[0].(map[string]any)["href"])
}

func TestRetrieveList(t *testing.T) {
	s := newTestServer(t)
	for i := 1; i <= 3; i++ {
		createPost(t, s, fmt.Sprintf("post-%d", i))
	}

	rec, doc := do(t, s, http.MethodGet, "/api/posts/?count=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	embedded := doc["_embedded"].(map[string]any)["posts"].([]any)
	require.Len(t, embedded, 2)
	assert.Equal(t, "/api/posts/1", href(t, embedded[0].(map[string]any), "self"))
	assert.Equal(t, "/api/posts/?count=2", href(t, doc, "self"))
	assert.Equal(t, "/api/posts/?count=2&page=2", href(t, doc, "next"))

	rec, doc = do(t, s, http.MethodGet, "/api/posts/?count=2&page=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	embedded = doc["_embedded"].(map[string]any)["posts"].([]any)
	require.Len(t, embedded, 1)
	assert.Equal(t, "/api/posts/?count=2&page=1", href(t, doc, "previous"))
	assert.NotContains(t, doc["_links"], "next")
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestServer(t)
	createPost(t, s, "draft")

	rec, doc := do(t, s, http.MethodPatch, "/api/posts/1", map[string]any{"title": "final", "views": "7"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "final", doc["title"])
	assert.EqualValues(t, 7, doc["views"])

	rec, _ = do(t, s, http.MethodPut, "/api/posts/1", map[string]any{"views": 8})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, "/api/posts/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec, doc = do(t, s, http.MethodGet, "/api/posts/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, http.StatusNotFound, doc["code"])
	assert.Contains(t, doc["details"], "No model of type Post was found")
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	createPost(t, s, "x")

	rec, doc := do(t, s, http.MethodPatch, "/api/posts/1", map[string]any{"views": "many"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, doc["field_errors"], "views")

	rec, _ = do(t, s, http.MethodGet, "/api/posts/?colour=red", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/posts/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	createPost(t, s, "x")

	rec, _ := do(t, s, http.MethodDelete, "/api/archive/1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec, doc := do(t, s, http.MethodGet, "/api/archive/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/archive/1", href(t, doc, "self"))
}

func TestHealthWithoutGlobalDatabase(t *testing.T) {
	s := newTestServer(t)

	rec, doc := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Database not initialized", doc["last_error"])

	rec, doc = do(t, s, http.MethodGet, "/health/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, doc["open_conns"])
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fields.NewValidationError("bad", map[string]string{"a": "b"}), http.StatusBadRequest},
		{"not found", &manager.NotFoundError{Model: "Post"}, http.StatusNotFound},
		{"multiple", fmt.Errorf("wrapped: %w", manager.ErrMultipleResults), http.StatusConflict},
		{"method", resource.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"no rows", sql.ErrNoRows, http.StatusNotFound},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, http.StatusConflict},
		{"postgres fk", &pq.Error{Code: "23503"}, http.StatusBadRequest},
		{"sqlite not null", errors.New("NOT NULL constraint failed: posts.title"), http.StatusBadRequest},
		{"echo", echo.NewHTTPError(http.StatusUnsupportedMediaType, "nope"), http.StatusUnsupportedMediaType},
		{"api error", NewAPIError(http.StatusTeapot, "tea", ""), http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToAPIError(tt.err).Code)
		})
	}
}

func TestHTTPErrorHandlerHidesInternalDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	HTTPErrorHandler(errors.New("secret dsn"), c)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret dsn")

	e.Debug = true
	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	HTTPErrorHandler(errors.New("secret dsn"), c)
	assert.Contains(t, rec.Body.String(), "secret dsn")
}
