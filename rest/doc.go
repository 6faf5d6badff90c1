// Package rest serves resources over HTTP with echo. Items and lists are
// rendered as HAL documents with _links and _embedded sections, and errors
// as JSON APIError bodies.
package rest
