// Package fields translates raw request input into typed column values.
// Each column of a model maps to one Field kind through KindOf.
package fields
