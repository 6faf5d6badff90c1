// Package types holds the small value types shared by the repository,
// manager and rest packages: page requests, page cursors and JSON columns.
package types
