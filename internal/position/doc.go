/*
Position orchestrates applying execution confirmations to the ledgers.

# Module
  - manager: exec-type dispatch; one exclusive critical section covers the
    full sub-account/broker-account/user update for one event, plus the
    owner-object aggregates and the journal enqueue
  - bod table: last durable state per sub-account key before the current
    session, seeded by recovery and kept for audit/reporting

# Source
  - confirmations from the intake queue
  - journal rows replayed by recovery (offline mode, no re-journaling)

# Produce
  - journal records for every applied fill
  - in-memory ledger state read by the pnl publisher

# Sharded
  - none; a single mutex preserves cross-ledger consistency
*/
package position
