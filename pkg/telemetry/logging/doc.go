// Package logging configures the process-wide structured logger.
package logging
