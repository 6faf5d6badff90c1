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

package main

import (
	"time"

	"github.com/tomoncle/hyperbun/types"
	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors"`

	ID       int64      `bun:"id,pk,autoincrement"`
	Name     string     `bun:"name,notnull"`
	Email    string     `bun:"email,unique"`
	Posts    []*Post    `bun:"rel:has-many,join:id=author_id"`
	Comments []*Comment `bun:"rel:has-many,join:id=author_id"`
}

type Post struct {
	bun.BaseModel `bun:"table:posts"`

	ID          int64            `bun:"id,pk,autoincrement"`
	Title       string           `bun:"title,notnull"`
	Body        string           `bun:"body"`
	Published   bool             `bun:"published,notnull,default:false"`
	PublishedAt *time.Time       `bun:"published_at"`
	Meta        types.JsonObject `bun:"meta,type:text"`
	AuthorID    int64            `bun:"author_id,notnull"`
	Author      *Author          `bun:"rel:belongs-to,join:author_id=id"`
	Comments    []*Comment       `bun:"rel:has-many,join:id=post_id"`
}

type Comment struct {
	bun.BaseModel `bun:"table:comments"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Body      string    `bun:"body,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	PostID    int64     `bun:"post_id,notnull"`
	Post      *Post     `bun:"rel:belongs-to,join:post_id=id"`
	AuthorID  int64     `bun:"author_id,notnull"`
	Author    *Author   `bun:"rel:belongs-to,join:author_id=id"`
}

func blogModels() []any {
	return []any{(*Author)(nil), (*Post)(nil), (*Comment)(nil)}
}
