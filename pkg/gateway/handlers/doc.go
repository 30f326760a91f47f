// Package handlers implements the gateway's HTTP endpoints: completion
// submission, quota status and health probes.
package handlers
