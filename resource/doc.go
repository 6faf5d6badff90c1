// Package resource is a small hypermedia layer over managers. A Resource
// turns manager results into responses carrying links to related
// resources, and FromModel derives a complete resource from a bun model.
package resource
