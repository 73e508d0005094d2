// Package requestid tags every request with a correlation id so that the
// records logged during one login or logout can be grouped.
package requestid
