// Package filter decides which responses are hidden from the output.
//
// Exactly one filter kind is active per run. When several are configured the
// first non-empty one in the order status, content length, server, regex
// wins and the others are ignored. A response that matches the active filter
// is hidden.
package filter
