package scan

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws/account"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/lightningnetwork/lnd/clock"
)

type fakeDecoder struct{}

func (fakeDecoder) DecodeBlock(height db.BlockId, entry peer.BlockCompleteEntry) (Block, error) {
	var hash [32]byte
	hash[0] = byte(height)
	return Block{Height: height, Hash: hash}, nil
}

func TestApplyResponseSkipsOverlapBlock(t *testing.T) {
	w := &Worker{decoder: fakeDecoder{}}

	res := &peer.GetBlocksFastResult{
		StartHeight: 5,
		Blocks: []peer.BlockCompleteEntry{
			{}, // overlap block at height 5, already known
			{}, // new block at height 6
			{}, // new block at height 7
		},
	}

	next, hashes, blocks, err := w.applyResponse(5, res)
	if err != nil {
		t.Fatalf("applyResponse: %v", err)
	}
	if next != 7 {
		t.Fatalf("expected next start height 7, got %d", next)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 decoded blocks after dropping overlap, got %d", len(blocks))
	}
	if blocks[0].Height != 6 || blocks[1].Height != 7 {
		t.Fatalf("unexpected block heights: %+v", blocks)
	}
	if len(hashes) != 3 {
		t.Fatalf("expected 3 hashes including the overlap anchor, got %d", len(hashes))
	}
	if hashes[0][0] != 5 || hashes[1][0] != 6 || hashes[2][0] != 7 {
		t.Fatalf("unexpected hashes: %+v", hashes)
	}
}

func TestApplyResponseRejectsWrongStartHeight(t *testing.T) {
	w := &Worker{decoder: fakeDecoder{}}
	res := &peer.GetBlocksFastResult{StartHeight: 9, Blocks: []peer.BlockCompleteEntry{{}, {}}}
	if _, _, _, err := w.applyResponse(5, res); err == nil {
		t.Fatal("expected an error for a mismatched start height")
	}
}

func TestApplyResponseSingleBlockIsNotNewWork(t *testing.T) {
	w := &Worker{decoder: fakeDecoder{}}
	res := &peer.GetBlocksFastResult{StartHeight: 5, Blocks: []peer.BlockCompleteEntry{{}}}
	next, hashes, blocks, err := w.applyResponse(5, res)
	if err != nil {
		t.Fatalf("applyResponse: %v", err)
	}
	if blocks != nil || hashes != nil {
		t.Fatalf("expected no blocks or hashes to process when only the overlap block was returned")
	}
	if next != 5 {
		t.Fatalf("expected next start height to stay at 5, got %d", next)
	}
}

func TestApplyResponseFirstSyncHasNoAnchor(t *testing.T) {
	w := &Worker{decoder: fakeDecoder{}}
	res := &peer.GetBlocksFastResult{
		StartHeight: 1,
		Blocks:      []peer.BlockCompleteEntry{{}, {}},
	}

	next, hashes, blocks, err := w.applyResponse(1, res)
	if err != nil {
		t.Fatalf("applyResponse: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected next start height 2, got %d", next)
	}
	if len(blocks) != 2 || blocks[0].Height != 1 || blocks[1].Height != 2 {
		t.Fatalf("expected both blocks scanned starting at height 1, got %+v", blocks)
	}
	if len(hashes) != 2 || hashes[0][0] != 1 || hashes[1][0] != 2 {
		t.Fatalf("expected hashes for both blocks starting at height 1, got %+v", hashes)
	}
}

func TestWorkerCommitAdvancesScanHeightAndAppliesOutputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lws.db")
	storage, err := db.Open(db.Config{Path: path, CreateQueueMax: 5, Retention: 0, Clock: clock.NewTestClock(time.Unix(0, 0))})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer storage.Close()

	var vk db.ViewKey
	addr := db.AccountAddress{SpendPublic: [32]byte{0x01}}
	if err := storage.CreationRequest(addr, vk, 0); err != nil {
		t.Fatalf("CreationRequest: %v", err)
	}
	acct, err := storage.AcceptRequest(addr)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}

	chainHashes := make([][32]byte, 3)
	for i := range chainHashes {
		chainHashes[i][0] = byte(i)
	}
	if err := storage.SyncChain(0, chainHashes); err != nil {
		t.Fatalf("SyncChain: %v", err)
	}

	u := account.New(*acct, nil)
	u.AddOut(db.Output{Id: 100, Height: 1})

	w := &Worker{storage: storage, users: []*account.Account{u}}
	blocks := []Block{{Height: 1, Hash: chainHashes[1]}, {Height: 2, Hash: chainHashes[2]}}
	// anchorHeight 0 re-verifies the already-synced genesis hash;
	// hashes[1:] are the new blocks being committed.
	commitHashes := [][32]byte{chainHashes[0], chainHashes[1], chainHashes[2]}

	if err := w.commit(0, commitHashes, blocks); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if u.ScanHeight() != 2 {
		t.Fatalf("expected in-memory scan height 2, got %d", u.ScanHeight())
	}
	if len(u.Outputs()) != 0 {
		t.Fatalf("expected scratch cleared after a successful commit")
	}

	r, err := storage.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	persisted, err := r.GetAccount(addr)
	if err != nil {
		t.Fatal(err)
	}
	if persisted.ScanHeight != 2 {
		t.Fatalf("expected persisted scan height 2, got %d", persisted.ScanHeight)
	}
}
