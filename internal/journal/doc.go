/*
Journal persists every accepted position mutation as one append-only row.

# Module
  - record: gorm row model for the position table plus the trade-metadata blob
  - store: append and latest-row-before-cutoff queries (postgres and sqlite)
  - writer: single background goroutine draining a bounded queue into the store

# Source
  - position manager enqueues one record per applied fill

# Produce
  - rows in the position table; read back only by beginning-of-day recovery

# Sharded
  - none; one writer goroutine keeps per-key ordering by construction
*/
package journal
