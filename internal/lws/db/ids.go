// Package db implements the light-wallet data model and storage
// invariants: the account/output/spend entities, their packed byte
// layouts and ordering keys, and the transactional Storage type scan
// workers commit through.
package db

import "math"

// AccountId is an opaque account identifier. It is never reused and
// carries no arithmetic -- only equality, and the reserved Invalid
// sentinel.
type AccountId uint32

// InvalidAccountId is the reserved "no such account" sentinel: all-ones.
const InvalidAccountId AccountId = math.MaxUint32

// Valid reports whether id is not the reserved sentinel.
func (id AccountId) Valid() bool { return id != InvalidAccountId }

// BlockId is an opaque, monotonically increasing chain height.
type BlockId uint64

// Next returns the height immediately following id.
func (id BlockId) Next() BlockId { return id + 1 }

// Before reports whether id is strictly less than other.
func (id BlockId) Before(other BlockId) bool { return id < other }

// OutputId is a globally unique output index assigned by the peer.
type OutputId uint64

// Offset is a ring-member offset as reported by the peer: a relative delta
// used to reconstruct absolute OutputIds via prefix-sum.
// It is a distinct type from OutputId so the two are never added by
// accident; Apply is the only sanctioned combination.
type Offset uint64

// Apply returns base advanced by this offset, reconstructing the next
// absolute OutputId in a ring-member prefix sum.
func (o Offset) Apply(base OutputId) OutputId { return base + OutputId(o) }

// AccountTime is seconds since the Unix epoch, stored as a fixed-width u32.
type AccountTime uint32
