// Package middleware provides the HTTP middleware chain for the gateway:
// request IDs, identity extraction, structured request logging and panic
// recovery.
package middleware
