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

package types

// QueryFilter describes a WHERE clause schema and its argument values.
type QueryFilter struct {
	Schema string
	Args   []interface{}
}

// NewQueryFilter creates a new query filter with schema and args.
func NewQueryFilter(schema string, args ...interface{}) *QueryFilter {
	return &QueryFilter{schema, args}
}

// PageRequest is a 1-based page number plus page size. A page size of zero
// or less means the list is not paginated.
type PageRequest struct {
	page     int
	pageSize int
	orders   []string // "id ASC", "name DESC"
}

// GetPage returns the page number, clamped to 1.
func (p *PageRequest) GetPage() int {
	if p.page < 1 {
		p.page = 1
	}
	return p.page
}

func (p *PageRequest) GetPageSize() int {
	return p.pageSize
}

// Paginated reports whether a limit applies.
func (p *PageRequest) Paginated() bool {
	return p.pageSize > 0
}

func (p *PageRequest) GetOffset() int {
	if !p.Paginated() {
		return 0
	}
	return (p.GetPage() - 1) * p.pageSize
}

// GetLimit returns the number of rows to fetch: one more than the page size,
// so that the presence of a following page can be detected.
func (p *PageRequest) GetLimit() int {
	if !p.Paginated() {
		return 0
	}
	return p.pageSize + 1
}

func (p *PageRequest) GetOrders() []string {
	return p.orders
}

// Links builds the next/previous cursors for a page that fetched n rows.
func (p *PageRequest) Links(n int) PageLinks {
	var links PageLinks
	if !p.Paginated() {
		return links
	}
	if n > p.pageSize {
		links.Next = &PageCursor{Page: p.GetPage() + 1, Count: p.pageSize}
	}
	if p.GetPage() > 1 {
		links.Previous = &PageCursor{Page: p.GetPage() - 1, Count: p.pageSize}
	}
	return links
}

// NewPageRequest constructs a PageRequest with ordering.
func NewPageRequest(page int, pageSize int, orders []string) *PageRequest {
	return &PageRequest{page, pageSize, orders}
}

// NewDefaultPageRequest constructs a PageRequest with no explicit ordering.
func NewDefaultPageRequest(page int, pageSize int) *PageRequest {
	return NewPageRequest(page, pageSize, nil)
}

// PageCursor identifies one page of a list.
type PageCursor struct {
	Page  int `json:"page"`
	Count int `json:"count"`
}

// PageLinks holds the cursors adjacent to the current page; nil when absent.
type PageLinks struct {
	Next     *PageCursor `json:"next"`
	Previous *PageCursor `json:"previous"`
}

// ListMeta is the metadata returned alongside a list of serialized models.
type ListMeta struct {
	Links PageLinks `json:"links"`
	// PageArg and CountArg are the query argument names the cursors map to.
	PageArg  string `json:"-"`
	CountArg string `json:"-"`
}

// QueryArgs renders a cursor as query arguments using the meta's names.
func (m *ListMeta) QueryArgs(c *PageCursor) map[string]int {
	if c == nil {
		return nil
	}
	return map[string]int{m.PageArg: c.Page, m.CountArg: c.Count}
}
