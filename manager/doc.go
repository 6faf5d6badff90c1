// Package manager maps create, retrieve, list, update and delete onto bun
// for any registered model and serializes results into plain maps.
//
// Field names follow the bun column names. Relationships are addressed by
// their bun field name and may be followed with dots, so "author.id"
// selects the primary key of the related author.
package manager
