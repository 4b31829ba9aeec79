// Package binder decodes HTTP request payloads into typed values.
// Only JSON binding is provided; callers that need form or query
// binding should reach for the router's own helpers.
package binder
