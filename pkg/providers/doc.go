// Package providers defines the boundary to the downstream completion API.
//
// The gateway is provider-agnostic: requests and responses use the neutral
// types in this package and each adapter translates to its wire format. The
// one hard requirement on adapters is surfacing the actual token usage
// figure when the provider reports one; when it is absent the router falls
// back to its pre-call estimate, accepting reduced accounting precision.
package providers
