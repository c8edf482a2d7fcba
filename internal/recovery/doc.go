/*
Recovery rebuilds in-memory ledger state at startup.

# Module
  - session marker: one timestamp file per session; its presence decides
    whether this boot starts a new session or rejoins a running one
  - bod loader: latest journal row per sub-account key before the marker,
    folded into the three ledgers before any live event is accepted
  - target files: per-sub-account target positions, loaded at boot and
    reloaded when rewritten on disk

# Source
  - the position journal table
  - <store>/session, <store>/target-<id>.json

# Produce
  - seeded ledgers and the beginning-of-day baseline table

# Sharded
  - none; recovery is strictly sequential and completes before workers start
*/
package recovery
