/*
Ledger stores per-(owner, security) positions and the average-cost
accounting math that mutates them.

# Module
  - position: quantity, cost basis, realized pnl and working-order
    bookkeeping for one owner/security pair
  - ledger: lazily-populated map from (owner id, security id) to a position,
    one instance per aggregation tier (sub-account, broker-account, user)

# Source
  - order confirmations dispatched by the position manager
  - journal rows folded back in during beginning-of-day recovery

# Produce
  - none (pure in-memory state; durability lives in the journal)

# Sharded
  - none; the position manager serializes all mutation
*/
package ledger
