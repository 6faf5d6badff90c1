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
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/hyperbun/session"
	"github.com/tomoncle/hyperbun/types"
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

	ID          int64            `bun:"id,pk,autoincrement"`
	Title       string           `bun:"title"`
	Views       int              `bun:"views"`
	Published   bool             `bun:"published"`
	PublishedAt *time.Time       `bun:"published_at"`
	Meta        types.JsonObject `bun:"meta,type:text"`
	AuthorID    int64            `bun:"author_id"`
	Author      *Author          `bun:"rel:belongs-to,join:author_id=id"`
}

type Tag struct {
	bun.BaseModel `bun:"table:tags"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name"`
}

type Article struct {
	bun.BaseModel `bun:"table:articles"`

	ID    int64  `bun:"id,pk,autoincrement"`
	Title string `bun:"title"`
	Tags  []*Tag `bun:"m2m:article_tags,join:Article=Tag"`
}

type ArticleTag struct {
	bun.BaseModel `bun:"table:article_tags"`

	ArticleID int64    `bun:"article_id,pk"`
	Article   *Article `bun:"rel:belongs-to,join:article_id=id"`
	TagID     int64    `bun:"tag_id,pk"`
	Tag       *Tag     `bun:"rel:belongs-to,join:tag_id=id"`
}

// openArticleDB creates an article table tagged through article_tags.
// Article "go" carries tags "lang" and "fast"; article "draft" has none.
func openArticleDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	db.RegisterModel((*ArticleTag)(nil))
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []any{(*Tag)(nil), (*Article)(nil), (*ArticleTag)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	tags := []*Tag{{Name: "lang"}, {Name: "fast"}}
	articles := []*Article{{Title: "go"}, {Title: "draft"}}
	for _, model := range []any{tags[0], tags[1], articles[0], articles[1]} {
		_, err := db.NewInsert().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	for _, tag := range tags {
		_, err := db.NewInsert().Model(&ArticleTag{ArticleID: articles[0].ID, TagID: tag.ID}).Exec(ctx)
		require.NoError(t, err)
	}
	return db
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	for _, model := range []any{(*Author)(nil), (*Post)(nil)} {
		_, err := db.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}
	return db
}

// seedBlog inserts one author owning n posts titled "post-1".."post-n".
// Odd-numbered posts are published.
func seedBlog(t *testing.T, db *bun.DB, n int) *Author {
	t.Helper()
	ctx := context.Background()
	author := &Author{Name: "ada"}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)
	for i := 1; i <= n; i++ {
		post := &Post{
			Title:     fmt.Sprintf("post-%d", i),
			Views:     i * 10,
			Published: i%2 == 1,
			AuthorID:  author.ID,
		}
		_, err := db.NewInsert().Model(post).Exec(ctx)
		require.NoError(t, err)
	}
	return author
}

func newPostManager(t *testing.T, db *bun.DB, opts ...Option) *Manager[Post] {
	t.Helper()
	m, err := New[Post](newHandler(db), opts...)
	require.NoError(t, err)
	return m
}

func newHandler(db *bun.DB) session.Handler {
	return session.NewScopedHandler(db, nil)
}
