// Package session provides the unit-of-work handlers used by managers.
//
// A ScopedHandler opens one transaction per operation. A SharedHandler
// reuses a handle owned by the caller, which is useful when a request
// already runs inside a transaction.
package session
