// Package repository is the generic bun query layer used by managers:
// single-row lookups, paged listing, inserts, column updates and deletes.
// Every operation runs against the bun.IDB it is given, so the caller
// decides whether it runs inside a transaction.
package repository
