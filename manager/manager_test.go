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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hyperbun/fields"
	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
)

func TestCreate(t *testing.T) {
	db := openTestDB(t)
	author := seedBlog(t, db, 0)
	m := newPostManager(t, db)

	got, err := m.Create(context.Background(), map[string]any{
		"title":     "hello",
		"views":     "3",
		"author_id": author.ID,
		"meta":      map[string]any{"lang": "en"},
		"bogus":     "ignored",
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, got["id"])
	assert.Equal(t, "hello", got["title"])
	assert.EqualValues(t, 3, got["views"])
	assert.Equal(t, types.JsonObject{"lang": "en"}, got["meta"])
	assert.Equal(t, map[string]any{"id": author.ID}, got["author"])
	assert.NotContains(t, got, "bogus")
}

func TestCreateStrictRejectsUnknownFields(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db, WithStrict())

	_, err := m.Create(context.Background(), map[string]any{"title": "x", "bogus": 1})
	var verr *fields.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "bogus")

	n, err := db.NewSelect().Model((*Post)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateInvalidValue(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db)

	_, err := m.Create(context.Background(), map[string]any{"views": "many"})
	var verr *fields.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "views")
}

func TestRetrieve(t *testing.T) {
	db := openTestDB(t)
	author := seedBlog(t, db, 2)
	m := newPostManager(t, db, WithFields("id", "title", "author.id", "author.name"))

	got, err := m.Retrieve(context.Background(), map[string]any{"id": "2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"id":     int64(2),
		"title":  "post-2",
		"author": map[string]any{"id": author.ID, "name": "ada"},
	}, got)
}

func TestRetrieveNotFound(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 1)
	m := newPostManager(t, db)

	_, err := m.Retrieve(context.Background(), map[string]any{"id": 42})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "No model of type Post was found using lookup_keys map[id:42]", err.Error())
}

func TestRetrieveMultipleResults(t *testing.T) {
	db := openTestDB(t)
	author := seedBlog(t, db, 2)
	m := newPostManager(t, db)

	_, err := m.Retrieve(context.Background(), map[string]any{"author_id": author.ID})
	assert.ErrorIs(t, err, ErrMultipleResults)
}

func TestRetrieveUnknownLookupKey(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db)

	_, err := m.Retrieve(context.Background(), map[string]any{"author.name": "ada"})
	var verr *fields.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "author.name")
}

func TestRetrieveWithQueryset(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 2)
	m := newPostManager(t, db, WithQueryset(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.published = ?", true)
	}))

	_, err := m.Retrieve(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)
	_, err = m.Retrieve(context.Background(), map[string]any{"id": 2})
	assert.True(t, IsNotFound(err))
}

func TestWithFilter(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 5)
	ctx := context.Background()
	m := newPostManager(t, db,
		WithFilter(types.NewQueryFilter("?TableAlias.views >= ?", 30)),
		WithFilter(nil),
	)

	_, err := m.Retrieve(ctx, map[string]any{"id": 1})
	assert.True(t, IsNotFound(err))
	got, err := m.Retrieve(ctx, map[string]any{"id": 4})
	require.NoError(t, err)
	assert.Equal(t, "post-4", got["title"])

	items, meta, err := m.RetrieveList(ctx, map[string]any{"count": 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.EqualValues(t, 3, items[0]["id"])
	assert.Equal(t, &types.PageCursor{Page: 2, Count: 2}, meta.Links.Next)
}

func TestRetrieveList(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 10)
	m := newPostManager(t, db, WithListFields("id", "title"))
	ctx := context.Background()

	items, meta, err := m.RetrieveList(ctx, map[string]any{"count": 3})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, map[string]any{"id": int64(1), "title": "post-1"}, items[0])
	assert.Equal(t, &types.PageCursor{Page: 2, Count: 3}, meta.Links.Next)
	assert.Nil(t, meta.Links.Previous)
	assert.Equal(t, map[string]int{"page": 2, "count": 3}, meta.QueryArgs(meta.Links.Next))

	items, meta, err = m.RetrieveList(ctx, map[string]any{"page": []string{"2"}, "count": []string{"3"}})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.EqualValues(t, 4, items[0]["id"])
	assert.Equal(t, &types.PageCursor{Page: 3, Count: 3}, meta.Links.Next)
	assert.Equal(t, &types.PageCursor{Page: 1, Count: 3}, meta.Links.Previous)

	items, meta, err = m.RetrieveList(ctx, map[string]any{"page": 4, "count": 3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 10, items[0]["id"])
	assert.Nil(t, meta.Links.Next)
	assert.Equal(t, &types.PageCursor{Page: 3, Count: 3}, meta.Links.Previous)

	items, meta, err = m.RetrieveList(ctx, map[string]any{"page": 9, "count": 3})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Nil(t, meta.Links.Next)
}

func TestRetrieveListDefaults(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 5)
	ctx := context.Background()

	items, meta, err := newPostManager(t, db).RetrieveList(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Nil(t, meta.Links.Next)
	assert.Nil(t, meta.Links.Previous)

	items, meta, err = newPostManager(t, db, WithPaginateBy(2)).RetrieveList(ctx, map[string]any{"page": 0})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, &types.PageCursor{Page: 2, Count: 2}, meta.Links.Next)
	assert.Nil(t, meta.Links.Previous)

	items, meta, err = newPostManager(t, db).RetrieveList(ctx, map[string]any{"count": 0})
	require.NoError(t, err)
	assert.Len(t, items, 5)
	assert.Nil(t, meta.Links.Next)
}

func TestRetrieveListFilters(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 5)
	m := newPostManager(t, db, WithPaginationArgs("p", "n"), WithOrder("id DESC"))
	ctx := context.Background()

	items, meta, err := m.RetrieveList(ctx, map[string]any{"published": "true", "n": 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.EqualValues(t, 5, items[0]["id"])
	assert.EqualValues(t, 3, items[1]["id"])
	assert.Equal(t, map[string]int{"p": 2, "n": 2}, meta.QueryArgs(meta.Links.Next))

	_, _, err = m.RetrieveList(ctx, map[string]any{"colour": "red"})
	var verr *fields.ValidationError
	require.ErrorAs(t, err, &verr)

	_, _, err = m.RetrieveList(ctx, map[string]any{"p": "first"})
	require.ErrorAs(t, err, &verr)
}

func TestRetrieveListDoesNotMutateFilters(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 1)
	filters := map[string]any{"page": 1, "count": 5}

	_, _, err := newPostManager(t, db).RetrieveList(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, filters, 2)
}

func TestUpdate(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 1)
	m := newPostManager(t, db, WithUpdateFields("title", "published_at"))
	ctx := context.Background()

	got, err := m.Update(ctx, map[string]any{"id": 1}, map[string]any{
		"title":        "renamed",
		"views":        999,
		"published_at": "2024-03-01T10:00:00Z",
		"unknown":      true,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got["title"])
	assert.EqualValues(t, 10, got["views"])
	require.NotNil(t, got["published_at"])

	var post Post
	require.NoError(t, db.NewSelect().Model(&post).Where("id = ?", 1).Scan(ctx))
	assert.Equal(t, "renamed", post.Title)
	assert.Equal(t, 10, post.Views)
	require.NotNil(t, post.PublishedAt)
	assert.Equal(t, 2024, post.PublishedAt.Year())
}

func TestUpdateNotFound(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db)

	_, err := m.Update(context.Background(), map[string]any{"id": 5}, map[string]any{"title": "x"})
	assert.True(t, IsNotFound(err))
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 2)
	m := newPostManager(t, db)
	ctx := context.Background()

	got, err := m.Delete(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Retrieve(ctx, map[string]any{"id": 1})
	assert.True(t, IsNotFound(err))

	_, err = m.Delete(ctx, map[string]any{"id": 1})
	assert.True(t, IsNotFound(err))
}

func TestSerializeHasMany(t *testing.T) {
	db := openTestDB(t)
	seedBlog(t, db, 2)
	m, err := New[Author](newHandler(db), WithFields("id", "name", "posts.id", "posts.title"))
	require.NoError(t, err)

	got, err := m.Retrieve(context.Background(), map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "ada", got["name"])
	assert.ElementsMatch(t, []any{
		map[string]any{"id": int64(1), "title": "post-1"},
		map[string]any{"id": int64(2), "title": "post-2"},
	}, got["posts"])
}

func TestSerialize(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db)

	v, err := m.Serialize(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = m.Serialize([]*Post{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}}, FieldTree{"title": nil})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"title": "a"}, map[string]any{"title": "b"}}, v)

	v, err = m.Serialize(&Post{ID: 3}, FieldTree{"author": FieldTree{"id": nil}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"author": nil}, v)

	_, err = m.Serialize(&Post{}, FieldTree{"missing": nil})
	assert.Error(t, err)
}

func TestDotFieldListToDict(t *testing.T) {
	tree := DotFieldListToDict([]string{"a.b", "a.c", "d", "a.e.f"})
	assert.Equal(t, FieldTree{
		"a": FieldTree{"b": nil, "c": nil, "e": FieldTree{"f": nil}},
		"d": nil,
	}, tree)
	assert.Equal(t, []string{"a", "d"}, tree.Names())
	assert.Empty(t, DotFieldListToDict(nil))
}

func TestFieldType(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db)

	tests := []struct {
		name string
		want fields.Kind
	}{
		{"id", fields.IntegerKind},
		{"title", fields.StringKind},
		{"views", fields.IntegerKind},
		{"published", fields.BooleanKind},
		{"published_at", fields.DateTimeKind},
		{"meta", fields.BaseKind},
		{"author", fields.BaseKind},
		{"author.name", fields.StringKind},
		{"author.posts.views", fields.IntegerKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := m.FieldType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Kind())
			assert.Equal(t, tt.name, f.Name())
		})
	}

	_, err := m.FieldType("nope")
	assert.Error(t, err)
	_, err = m.FieldType("title.length")
	assert.Error(t, err)
}

func TestNewRejectsUnknownFields(t *testing.T) {
	db := openTestDB(t)
	_, err := New[Post](newHandler(db), WithFields("id", "ghost"))
	assert.Error(t, err)

	_, err = New[Post](newHandler(db), WithCreateFields("author.ghost"))
	assert.Error(t, err)

	_, err = New[Post](nil)
	assert.Error(t, err)
}

func TestDefaultFieldLists(t *testing.T) {
	db := openTestDB(t)
	m := newPostManager(t, db, WithCreateFields("title"))

	assert.ElementsMatch(t, []string{
		"id", "title", "views", "published", "published_at", "meta", "author_id", "author.id",
	}, m.Fields())
	assert.Equal(t, []string{"title"}, m.CreateFields())
	assert.Equal(t, m.Fields(), m.UpdateFields())
	assert.Equal(t, m.Fields(), m.ListFields())
	assert.Equal(t, DefaultPaginateBy, m.PaginateBy())
	assert.Equal(t, "Post", m.ModelName())
}

func TestValidateFields(t *testing.T) {
	assert.NoError(t, ValidateFields(map[string]any{"a": 1}, []string{"a", "b"}))

	err := ValidateFields(map[string]any{"a": 1, "z": 2, "y": 3}, []string{"a"})
	var verr *fields.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"y": "unknown field", "z": "unknown field"}, verr.Fields)
	assert.Contains(t, err.Error(), "unknown fields: y, z")
}

func TestManyToManyRelationships(t *testing.T) {
	db := openArticleDB(t)
	table := TableFor(db.Dialect(), (*Article)(nil))

	assert.Equal(t, []RelationInfo{{Name: "tags", Relation: "Tag", List: true}}, GetRelationships(table))
	assert.Equal(t, []string{"id", "title", "tags.id"}, GetFieldsForModel(table))

	paths, err := relationPaths(table, FieldTree{"tags": FieldTree{"name": nil}}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tags"}, paths)

	field, err := FieldTypeFor(table, "tags.name")
	require.NoError(t, err)
	assert.Equal(t, fields.StringKind, field.Kind())
}

func TestManyToManyRetrieve(t *testing.T) {
	db := openArticleDB(t)
	ctx := context.Background()

	m, err := New[Article](newHandler(db))
	require.NoError(t, err)

	got, err := m.Retrieve(ctx, map[string]any{"id": 1})
	require.NoError(t, err)
	assert.Equal(t, "go", got["title"])
	assert.ElementsMatch(t, []any{
		map[string]any{"id": int64(1)},
		map[string]any{"id": int64(2)},
	}, got["tags"])

	got, err = m.Retrieve(ctx, map[string]any{"id": 2})
	require.NoError(t, err)
	assert.Equal(t, []any{}, got["tags"])

	named, err := New[Article](newHandler(db), WithFields("id", "tags.name"))
	require.NoError(t, err)
	items, _, err := named.RetrieveList(ctx, map[string]any{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.ElementsMatch(t, []any{
		map[string]any{"name": "lang"},
		map[string]any{"name": "fast"},
	}, items[0]["tags"])
}

func TestManyToManySerialize(t *testing.T) {
	db := openArticleDB(t)
	m, err := New[Article](newHandler(db))
	require.NoError(t, err)

	v, err := m.Serialize(&Article{ID: 9, Tags: []*Tag{{ID: 3, Name: "x"}}}, FieldTree{"tags": FieldTree{"name": nil}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"tags": []any{map[string]any{"name": "x"}}}, v)
}
