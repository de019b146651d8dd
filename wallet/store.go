/*
store.go - Persistence interface for the wallet snapshot

PURPOSE:
  Defines the interface between the ledger and durable local storage.
  The wallet persists two records: the serialized snapshot and a separate
  boolean flag recording whether the one-time integrity heal has run.

CONTRACT:
  - Put must be atomic per key: a reader never observes a torn write.
  - Writes are ordered: a Put followed by a Get of the same key returns
    the new value.

IMPLEMENTATIONS:
  - store/sqlite: Durable SQLite-backed store (production)
  - store: In-memory store (tests/dev)

SEE ALSO:
  - snapshot.go: What gets written under SnapshotKey
  - wallet.go: Load/save call sites
*/
package wallet

import "context"

// Store keys. The healed flag lives under its own key so a completed heal
// survives restarts independently of the snapshot contents.
const (
	SnapshotKey = "wallet/state"
	HealedKey   = "wallet/healed"
)

// Store is a durable local key-value store.
type Store interface {
	// Get returns the value for key, with found=false when absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put writes value under key atomically, overwriting any prior value.
	Put(ctx context.Context, key string, value []byte) error
}
