// Package report renders run output.
//
// Sink prints result lines while a run is in progress, serialized across
// workers and optionally mirrored to a file. Writer implementations render
// the end-of-run summary as text, JSON or Markdown, and ConfigTable prints
// the effective settings before a run starts.
package report
