/*
Pnl publishes periodic mark-to-market snapshots.

# Module
  - publisher: self-rescheduling pass that re-marks unrealized pnl across
    all three tiers, rolls notional exposure onto the owner objects, and
    appends per-sub-account timeseries lines

# Source
  - ledgers through the position manager's critical section
  - current prices pushed onto the securities by market data

# Produce
  - <store>/pnl-<subAccountID> append-only files, one
    "epoch realized unrealized" line per accepted emission

# Sharded
  - none; one pass per interval
*/
package pnl
