// Package account holds the in-memory, per-user scan state a worker
// carries across a batch of blocks: an immutable identity/key core plus
// scratch slices of outputs and spends matched since the last commit.
package account

import (
	"sort"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
)

// core is the identity and key material shared by every clone of an
// Account: it never changes across a scan, so clones share the pointer
// instead of copying it.
type core struct {
	id      db.AccountId
	address db.AccountAddress
	viewKey db.ViewKey
}

// Account is a worker's scan-time view of one user: which outputs it
// already knows about (received), plus whatever this batch has matched
// so far (outputs/spends) that have not yet been committed through
// db.Storage.Update.
type Account struct {
	core     *core
	received []db.OutputId // kept sorted; supports binary-search membership
	outputs  []db.Output
	spends   []db.PendingSpend
	height   db.BlockId
}

// New builds an Account from a persisted db.Account row and the set of
// output ids the account is already known to own (its "spendable" set).
func New(source db.Account, received []db.OutputId) *Account {
	sorted := make([]db.OutputId, len(received))
	copy(sorted, received)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &Account{
		core: &core{
			id:      source.Id,
			address: source.Address,
			viewKey: source.ViewKey,
		},
		received: sorted,
		height:   source.ScanHeight,
	}
}

// Clone returns an independent copy sharing the immutable core but not
// the mutable scratch, so a worker can hand one goroutine a batch while
// another continues mutating its own copy.
func (a *Account) Clone() *Account {
	received := make([]db.OutputId, len(a.received))
	copy(received, a.received)
	outputs := make([]db.Output, len(a.outputs))
	copy(outputs, a.outputs)
	spends := make([]db.PendingSpend, len(a.spends))
	copy(spends, a.spends)
	return &Account{
		core:     a.core,
		received: received,
		outputs:  outputs,
		spends:   spends,
		height:   a.height,
	}
}

// Updated advances the account past a successful commit: the scan
// height moves to newHeight and the per-batch scratch is reset.
func (a *Account) Updated(newHeight db.BlockId) {
	a.height = newHeight
	a.outputs = nil
	a.spends = nil
}

// ID returns the account's persisted id.
func (a *Account) ID() db.AccountId { return a.core.id }

// Address returns the account's public address.
func (a *Account) Address() db.AccountAddress { return a.core.address }

// ViewKey returns the account's view key.
func (a *Account) ViewKey() db.ViewKey { return a.core.viewKey }

// ScanHeight returns the height this account has been scanned through.
func (a *Account) ScanHeight() db.BlockId { return a.height }

// HasReceived reports whether id is in the account's known-received
// set, without consulting outputs matched so far in the current batch.
func (a *Account) HasReceived(id db.OutputId) bool {
	i := sort.Search(len(a.received), func(i int) bool { return a.received[i] >= id })
	return i < len(a.received) && a.received[i] == id
}

// Outputs returns the outputs matched since the last Updated call.
func (a *Account) Outputs() []db.Output { return a.outputs }

// Spends returns the spends matched since the last Updated call.
func (a *Account) Spends() []db.PendingSpend { return a.spends }

// AddOut records a newly matched output, inserting its id into the
// sorted received set so later spends against it can be detected.
func (a *Account) AddOut(out db.Output) {
	a.outputs = append(a.outputs, out)
	i := sort.Search(len(a.received), func(i int) bool { return a.received[i] >= out.Id })
	a.received = append(a.received, 0)
	copy(a.received[i+1:], a.received[i:])
	a.received[i] = out.Id
}

// CheckSpends reconstructs the absolute output ids a key image's ring
// covers from the peer's delta-encoded offsets (a running prefix sum,
// matching the daemon's wire format) and records a spend for every ring member
// this account actually owns. The ring's mixin count is one less than
// its member count, with a floor of zero for a degenerate single-member
// ring -- matching original_source's check_spends.
func (a *Account) CheckSpends(image [32]byte, offsets []db.Offset) {
	mixin := uint32(len(offsets))
	if mixin == 0 {
		mixin = 1
	}
	mixin--

	var id db.OutputId
	for _, off := range offsets {
		id = off.Apply(id)
		if a.HasReceived(id) {
			log.Debugf("Account %d: key image %x spends owned output %d", a.core.id, image, id)
			a.spends = append(a.spends, db.PendingSpend{
				Output: id,
				Spend:  db.Spend{KeyImage: image, MixinCount: mixin},
			})
		}
	}
}

// ToPendingUser reduces the account's current scratch to the shape
// db.Storage.Update commits, pairing it with the scan height this batch
// started from so Update can detect drift from a concurrent reorg.
func (a *Account) ToPendingUser(expectedScanHeight db.BlockId, newScanHeight db.BlockId) db.PendingUser {
	return db.PendingUser{
		AccountID:          a.core.id,
		ExpectedScanHeight: expectedScanHeight,
		NewScanHeight:      newScanHeight,
		Outputs:            a.outputs,
		Spends:             a.spends,
	}
}
