// Package database provides connection management, configuration loading and
// validation, SQL error classification, query logging hooks, the model
// registry used to create tables, and health/statistics helpers built on Bun.
package database
