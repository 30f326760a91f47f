// Package tokens provides pre-flight token estimation for completion
// requests.
//
// The estimate feeds the quota ledger's admission decision before the
// request reaches a provider; actual usage reported by the provider
// replaces the estimate when tokens are recorded afterwards.
package tokens
