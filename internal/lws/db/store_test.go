package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/lightningnetwork/lnd/clock"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lws.db")
	s, err := Open(Config{Path: path, CreateQueueMax: 2, Retention: 5, Clock: clock.NewTestClock(time.Unix(0, 0))})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addrFor(b byte) AccountAddress {
	var a AccountAddress
	a.SpendPublic[0] = b
	a.ViewPublic[0] = b
	return a
}

func TestCreationRequestAndAccept(t *testing.T) {
	s := openTestStorage(t)
	addr := addrFor(1)
	var vk ViewKey
	vk[0] = 0x42

	if err := s.CreationRequest(addr, vk, 100); err != nil {
		t.Fatalf("CreationRequest: %v", err)
	}
	if err := s.CreationRequest(addr, vk, 100); !lws.Is(err, lws.ErrDuplicateRequest) {
		t.Fatalf("expected DuplicateRequest, got %v", err)
	}

	acct, err := s.AcceptRequest(addr)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	if acct.ScanHeight != 100 || acct.StartHeight != 100 {
		t.Fatalf("unexpected scan/start height: %+v", acct)
	}
	if acct.Status != StatusActive {
		t.Fatalf("expected Active status, got %v", acct.Status)
	}

	if err := s.CreationRequest(addr, vk, 100); !lws.Is(err, lws.ErrAccountExists) {
		t.Fatalf("expected AccountExists, got %v", err)
	}

	r, err := s.StartRead()
	if err != nil {
		t.Fatalf("StartRead: %v", err)
	}
	defer r.Close()
	got, err := r.GetAccount(addr)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Id != acct.Id {
		t.Fatalf("account id mismatch: %v != %v", got.Id, acct.Id)
	}
}

func TestCreateQueueMax(t *testing.T) {
	s := openTestStorage(t)
	var vk ViewKey
	if err := s.CreationRequest(addrFor(1), vk, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.CreationRequest(addrFor(2), vk, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.CreationRequest(addrFor(3), vk, 0); !lws.Is(err, lws.ErrCreateQueueMax) {
		t.Fatalf("expected CreateQueueMax, got %v", err)
	}
}

func TestGetAccountNoSuchAccount(t *testing.T) {
	s := openTestStorage(t)
	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.GetAccount(addrFor(9)); !lws.Is(err, lws.ErrNoSuchAccount) {
		t.Fatalf("expected NoSuchAccount, got %v", err)
	}
}

func TestEmptyChainStartup(t *testing.T) {
	s := openTestStorage(t)
	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.GetLastBlock(); !lws.Is(err, lws.ErrUnknown) {
		t.Fatalf("expected an error for an empty chain, got %v", err)
	}
	hashes, err := r.GetChainSync()
	if err != nil {
		t.Fatalf("GetChainSync: %v", err)
	}
	if len(hashes) != 0 {
		t.Fatalf("expected no locator hashes for an empty chain, got %d", len(hashes))
	}
}

func TestSyncChainAndGetChainSync(t *testing.T) {
	s := openTestStorage(t)
	hashes := make([][32]byte, 12)
	for i := range hashes {
		hashes[i][0] = byte(i + 1)
	}
	if err := s.SyncChain(0, hashes); err != nil {
		t.Fatalf("SyncChain: %v", err)
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
	if last.Id != BlockId(len(hashes)-1) {
		t.Fatalf("expected tip id %d, got %d", len(hashes)-1, last.Id)
	}

	locator, err := r.GetChainSync()
	if err != nil {
		t.Fatalf("GetChainSync: %v", err)
	}
	if len(locator) == 0 || locator[0] != hashes[len(hashes)-1] {
		t.Fatalf("expected locator to start with the tip hash")
	}
}

func TestSyncChainNonContiguousFails(t *testing.T) {
	s := openTestStorage(t)
	hashes := [][32]byte{{1}, {2}, {3}}
	if err := s.SyncChain(5, hashes); !lws.Is(err, lws.ErrBadBlockchain) {
		t.Fatalf("expected BadBlockchain, got %v", err)
	}
}

func seedAccount(t *testing.T, s *Storage, addr AccountAddress, startHeight BlockId) AccountId {
	t.Helper()
	var vk ViewKey
	if err := s.CreationRequest(addr, vk, startHeight); err != nil {
		t.Fatalf("CreationRequest: %v", err)
	}
	acct, err := s.AcceptRequest(addr)
	if err != nil {
		t.Fatalf("AcceptRequest: %v", err)
	}
	return acct.Id
}

func seedChain(t *testing.T, s *Storage, n int) [][32]byte {
	t.Helper()
	hashes := make([][32]byte, n)
	for i := range hashes {
		hashes[i][0] = byte(i + 1)
	}
	if err := s.SyncChain(0, hashes); err != nil {
		t.Fatalf("SyncChain: %v", err)
	}
	return hashes
}

func TestUpdateAppliesOutputsAndAdvancesScanHeight(t *testing.T) {
	s := openTestStorage(t)
	hashes := seedChain(t, s, 5)
	id := seedAccount(t, s, addrFor(1), 0)

	out := Output{Height: 2, Id: 500, Amount: 1000}
	users := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 0,
		NewScanHeight:      4,
		Outputs:            []Output{out},
	}}
	n, err := s.Update(0, hashes, users)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 updated user, got %d", n)
	}

	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	acct, err := r.GetAccount(addrFor(1))
	if err != nil {
		t.Fatal(err)
	}
	if acct.ScanHeight != 4 {
		t.Fatalf("expected scan height 4, got %d", acct.ScanHeight)
	}

	it := r.GetOutputs(id)
	count := 0
	for it.Next() {
		o := it.Output()
		if o.Height > acct.ScanHeight {
			t.Fatalf("stored output height %d exceeds account scan height %d", o.Height, acct.ScanHeight)
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected 1 output, got %d", count)
	}
}

func TestUpdateSkipsUserWithStaleScanHeight(t *testing.T) {
	s := openTestStorage(t)
	hashes := seedChain(t, s, 5)
	id := seedAccount(t, s, addrFor(1), 0)

	users := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 99, // does not match stored scan_height (0)
		NewScanHeight:      4,
	}}
	n, err := s.Update(0, hashes, users)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 updated users for a drifted scan height, got %d", n)
	}
}

func TestUpdateSpendMustReferenceExistingOutput(t *testing.T) {
	s := openTestStorage(t)
	hashes := seedChain(t, s, 5)
	id := seedAccount(t, s, addrFor(1), 0)

	users := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 0,
		NewScanHeight:      4,
		Spends: []PendingSpend{{
			Output: 999,
			Spend:  Spend{MixinCount: 1},
		}},
	}}
	if _, err := s.Update(0, hashes, users); err == nil {
		t.Fatal("expected an error when a spend references an unknown output")
	}
}

func TestUpdateReorgAtomicity(t *testing.T) {
	s := openTestStorage(t)
	hashes := seedChain(t, s, 11)
	id := seedAccount(t, s, addrFor(1), 0)

	// A genuine commit succeeds first so we have baseline state to
	// compare against.
	users := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 0,
		NewScanHeight:      4,
		Outputs:            []Output{{Height: 1, Id: 10}},
	}}
	if _, err := s.Update(0, hashes[:5], users); err != nil {
		t.Fatalf("baseline Update: %v", err)
	}

	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	before, err := r.GetLastBlock()
	r.Close()
	if err != nil {
		t.Fatal(err)
	}

	// Now simulate a reorg: block 4's hash as reported by the "peer"
	// differs from what is stored.
	badHashes := make([][32]byte, 3)
	badHashes[0][0] = 0xFF // mismatches stored hash at height 4
	badHashes[1][0] = 0xFE
	badHashes[2][0] = 0xFD

	moreUsers := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 4,
		NewScanHeight:      6,
		Outputs:            []Output{{Height: 5, Id: 11}},
	}}
	_, err = s.Update(4, badHashes, moreUsers)
	if !lws.Is(err, lws.ErrBlockchainReorg) {
		t.Fatalf("expected BlockchainReorg, got %v", err)
	}

	r2, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	after, err := r2.GetLastBlock()
	if err != nil {
		t.Fatal(err)
	}
	if after.Id != before.Id || after.Hash != before.Hash {
		t.Fatalf("expected no change after a rejected reorg update: before=%+v after=%+v", before, after)
	}
	acct, err := r2.GetAccount(addrFor(1))
	if err != nil {
		t.Fatal(err)
	}
	if acct.ScanHeight != 4 {
		t.Fatalf("expected scan height unchanged at 4, got %d", acct.ScanHeight)
	}
}

func TestOutputIteratorSuspendResume(t *testing.T) {
	s := openTestStorage(t)
	hashes := seedChain(t, s, 5)
	id := seedAccount(t, s, addrFor(1), 0)

	users := []PendingUser{{
		AccountID:          id,
		ExpectedScanHeight: 0,
		NewScanHeight:      4,
		Outputs: []Output{
			{Height: 1, Id: 10},
			{Height: 2, Id: 11},
			{Height: 3, Id: 12},
		},
	}}
	if _, err := s.Update(0, hashes, users); err != nil {
		t.Fatalf("Update: %v", err)
	}

	r1, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	it1 := r1.GetOutputs(id)
	if !it1.Next() {
		t.Fatal("expected a first output")
	}
	if it1.Output().Id != 10 {
		t.Fatalf("expected output 10 first, got %d", it1.Output().Id)
	}
	sc := it1.Suspend()
	if err := r1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r2, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	it2 := r2.ResumeOutputs(id, sc)

	var ids []OutputId
	for it2.Next() {
		ids = append(ids, it2.Output().Id)
	}
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 12 {
		t.Fatalf("expected resume to continue from output 11, got %v", ids)
	}
}

func TestSetAccountStatus(t *testing.T) {
	s := openTestStorage(t)
	addr := addrFor(1)
	seedAccount(t, s, addr, 0)

	if err := s.SetAccountStatus(addr, StatusHidden); err != nil {
		t.Fatalf("SetAccountStatus: %v", err)
	}
	r, err := s.StartRead()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	acct, err := r.GetAccount(addr)
	if err != nil {
		t.Fatal(err)
	}
	if acct.Status != StatusHidden {
		t.Fatalf("expected Hidden status, got %v", acct.Status)
	}
}
