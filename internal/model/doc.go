// Package model defines the data structures shared by the run engines,
// the report writers and the history database.
//
// This package contains the following main types:
//   - Response: a normalized HTTP response as seen by the filters
//   - Hit: a response that survived the hide filters in fuzz mode
//   - Discovery: a link found while crawling
//   - RunReport: the summary of one fuzz or crawl run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies between dispatch, crawler, report and database.
package model
