// Package database stores run history in SQLite.
//
// Every finished run is saved with its hits (fuzz mode) and discoveries
// (crawl mode) so that earlier runs against the same target can be listed,
// shown again and compared. The driver is modernc.org/sqlite, which needs no
// cgo, and the database runs in WAL mode.
package database
