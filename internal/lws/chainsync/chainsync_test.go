package chainsync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/lightningnetwork/lnd/clock"
)

// sequencePeer replays one result per call to GetHashesFast, holding on
// the last entry once exhausted -- enough to drive Sync through several
// convergence rounds in a test.
type sequencePeer struct {
	results []*peer.GetHashesFastResult
	calls   int
}

func (f *sequencePeer) GetHashesFast(ctx context.Context, params peer.GetHashesFastParams) (*peer.GetHashesFastResult, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i], nil
}

func openTestStorage(t *testing.T) *db.Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lws.db")
	s, err := db.Open(db.Config{Path: path, CreateQueueMax: 10, Retention: 0, Clock: clock.NewTestClock(time.Unix(0, 0))})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedGenesis bootstraps storage with a single stored block, standing
// in for whatever out-of-band step gives a fresh deployment its first
// locator entry -- Sync itself refuses to run from a wholly empty
// locator (see TestSyncRejectsEmptyLocator).
func seedGenesis(t *testing.T, s *db.Storage, hash [32]byte) {
	t.Helper()
	if err := s.SyncChain(0, [][32]byte{hash}); err != nil {
		t.Fatalf("seedGenesis: %v", err)
	}
}

func TestSyncRejectsEmptyLocator(t *testing.T) {
	s := openTestStorage(t)
	fp := &sequencePeer{results: []*peer.GetHashesFastResult{{
		BlockIds:      [][32]byte{{1}},
		StartHeight:   0,
		CurrentHeight: 0,
	}}}

	if _, err := Sync(context.Background(), fp, s, [32]byte{}); !lws.Is(err, lws.ErrBadBlockchain) {
		t.Fatalf("expected BadBlockchain for an empty locator, got %v", err)
	}
	if fp.calls != 0 {
		t.Fatalf("expected no peer call when the locator is empty, got %d", fp.calls)
	}
}

func TestSyncRejectsEmptyPeerResponse(t *testing.T) {
	s := openTestStorage(t)
	seedGenesis(t, s, [32]byte{1})
	fp := &sequencePeer{results: []*peer.GetHashesFastResult{{}}}

	if _, err := Sync(context.Background(), fp, s, [32]byte{}); err == nil {
		t.Fatal("expected an error for an empty peer response")
	}
}

func TestSyncConvergesImmediatelyWhenAligned(t *testing.T) {
	s := openTestStorage(t)
	seedGenesis(t, s, [32]byte{1})
	fp := &sequencePeer{results: []*peer.GetHashesFastResult{{
		BlockIds:      [][32]byte{{1}},
		StartHeight:   0,
		CurrentHeight: 0,
	}}}

	tip, err := Sync(context.Background(), fp, s, [32]byte{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if tip != 0 {
		t.Fatalf("expected no new blocks applied, got tip %d", tip)
	}
	if fp.calls != 1 {
		t.Fatalf("expected exactly one round when already aligned, got %d", fp.calls)
	}
}

func TestSyncConvergesAfterMultipleRounds(t *testing.T) {
	s := openTestStorage(t)
	seedGenesis(t, s, [32]byte{1})

	// Round 1: peer reports blocks past the seeded anchor, still not
	// caught up to its own tip.
	round1 := &peer.GetHashesFastResult{
		BlockIds:      [][32]byte{{1}, {2}, {3}},
		StartHeight:   0,
		CurrentHeight: 5,
	}
	// Round 2: the rebuilt locator's newest hash ({3}) comes back as the
	// peer's own last hash, so the loop should stop here.
	round2 := &peer.GetHashesFastResult{
		BlockIds:      [][32]byte{{3}},
		StartHeight:   2,
		CurrentHeight: 5,
	}
	fp := &sequencePeer{results: []*peer.GetHashesFastResult{round1, round2}}

	tip, err := Sync(context.Background(), fp, s, [32]byte{})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if tip != 2 {
		t.Fatalf("expected tip 2 after applying round 1, got %d", tip)
	}
	if fp.calls != 2 {
		t.Fatalf("expected two rounds to converge, got %d", fp.calls)
	}

	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	last, err := r.GetLastBlock()
	if err != nil {
		t.Fatalf("GetLastBlock: %v", err)
	}
	if last.Id != 2 {
		t.Fatalf("expected stored tip 2, got %d", last.Id)
	}
}

func TestSyncRejectsGenesisMismatch(t *testing.T) {
	s := openTestStorage(t)
	seedGenesis(t, s, [32]byte{1})
	fp := &sequencePeer{results: []*peer.GetHashesFastResult{{
		BlockIds:      [][32]byte{{1}, {0xAA}},
		StartHeight:   0,
		CurrentHeight: 5,
	}}}

	configuredGenesis := [32]byte{0xFF}
	if _, err := Sync(context.Background(), fp, s, configuredGenesis); !lws.Is(err, lws.ErrBadBlockchain) {
		t.Fatalf("expected BadBlockchain for a genesis mismatch, got %v", err)
	}
}
