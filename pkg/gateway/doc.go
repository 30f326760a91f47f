// Package gateway routes completion requests through admission control,
// tier selection, the provider call and usage reconciliation.
//
// The router is the only component that sees a request end to end. The
// order is fixed: estimate tokens, admit against the quota ledger, pick a
// model tier, call the provider, then record actual consumption. A
// rejected or failed request never reaches later stages.
package gateway
