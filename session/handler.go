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

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/hyperbun/database"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// Handler hands out the bun handle used by one manager operation and
// finishes it once the operation returns.
type Handler interface {
	// Session acquires the unit of work for one operation.
	Session(ctx context.Context) (bun.IDB, error)

	// Handle finishes a unit of work. err is the outcome of the operation.
	Handle(ctx context.Context, sess bun.IDB, err error) error

	// Dialect gives access to table metadata without opening a session.
	Dialect() schema.Dialect
}

// ScopedHandler runs every operation in its own transaction: it commits
// when the operation succeeds and rolls back otherwise.
type ScopedHandler struct {
	source  func() *bun.DB
	dialect schema.Dialect
	txOpts  *sql.TxOptions
}

var _ Handler = (*ScopedHandler)(nil)

// ErrNoDatabase is returned by Session when the handler's source has no
// database to hand out.
var ErrNoDatabase = errors.New("no database available")

// NewScopedHandler returns a handler opening transactions on db. opts may be nil.
func NewScopedHandler(db *bun.DB, opts *sql.TxOptions) *ScopedHandler {
	return &ScopedHandler{
		source:  func() *bun.DB { return db },
		dialect: db.Dialect(),
		txOpts:  opts,
	}
}

// NewScopedHandlerFunc returns a handler that asks source for the database
// on every Session, so it follows a pool that is replaced after a
// reconnect. dialect is used for table metadata and must match the
// databases source returns.
func NewScopedHandlerFunc(source func() *bun.DB, dialect schema.Dialect, opts *sql.TxOptions) *ScopedHandler {
	return &ScopedHandler{source: source, dialect: dialect, txOpts: opts}
}

func (h *ScopedHandler) Session(ctx context.Context) (bun.IDB, error) {
	db := h.source()
	if db == nil {
		return nil, ErrNoDatabase
	}
	tx, err := db.BeginTx(ctx, h.txOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

func (h *ScopedHandler) Handle(ctx context.Context, sess bun.IDB, err error) error {
	tx, ok := asTx(sess)
	if !ok {
		return nil
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("failed to rollback transaction: %w", rbErr)
		}
		return nil
	}
	if cmErr := tx.Commit(); cmErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", cmErr)
	}
	return nil
}

func (h *ScopedHandler) Dialect() schema.Dialect { return h.dialect }

// SharedHandler hands out the same handle to every operation. Whoever owns
// the handle commits or closes it; the handler only rolls a transaction
// back after a failed operation.
type SharedHandler struct {
	idb bun.IDB
}

var _ Handler = (*SharedHandler)(nil)

func NewSharedHandler(idb bun.IDB) *SharedHandler {
	return &SharedHandler{idb: idb}
}

func (h *SharedHandler) Session(ctx context.Context) (bun.IDB, error) {
	return h.idb, nil
}

func (h *SharedHandler) Handle(ctx context.Context, sess bun.IDB, err error) error {
	if err == nil {
		return nil
	}
	tx, ok := asTx(sess)
	if !ok {
		return nil
	}
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", rbErr)
	}
	return nil
}

func (h *SharedHandler) Dialect() schema.Dialect { return h.idb.Dialect() }

func asTx(sess bun.IDB) (bun.Tx, bool) {
	switch tx := sess.(type) {
	case bun.Tx:
		return tx, true
	case *bun.Tx:
		if tx != nil {
			return *tx, true
		}
	}
	return bun.Tx{}, false
}

// Run acquires a session from h, runs fn with it and hands the outcome back
// to h. An error from fn is returned as is; a failure to roll back after it
// is only logged. A failure to finish a successful operation is returned.
// When fn panics the session is rolled back before the panic continues.
func Run[R any](ctx context.Context, h Handler, fn func(ctx context.Context, db bun.IDB) (R, error)) (R, error) {
	var zero R
	sess, err := h.Session(ctx)
	if err != nil {
		return zero, err
	}

	defer func() {
		if p := recover(); p != nil {
			if hErr := h.Handle(ctx, sess, fmt.Errorf("panic: %v", p)); hErr != nil {
				database.GetLogger().Error("Session cleanup after panic failed", "error", hErr)
			}
			panic(p)
		}
	}()

	res, opErr := fn(ctx, sess)
	if hErr := h.Handle(ctx, sess, opErr); hErr != nil {
		if opErr != nil {
			database.GetLogger().Error("Session cleanup failed", "error", hErr, "cause", opErr)
			return zero, opErr
		}
		return zero, hErr
	}
	if opErr != nil {
		return zero, opErr
	}
	return res, nil
}
