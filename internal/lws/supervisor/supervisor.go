// Package supervisor runs the scanner's epoch loop, grounded on
// original_source's outer run() and check_loop: sync the chain tail,
// load the active account set, shard it across scan workers, and join
// them again as soon as the set drifts or a worker reports a reorg,
// then repeat against the refreshed chain and account state.
package supervisor

import (
	"context"
	"sort"
	"time"

	"github.com/lightningnetwork/lnd/ticker"
	"golang.org/x/sync/errgroup"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/account"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/chainsync"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/moneroutil"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/scan"
)

// activeUserPollInterval is how often a running epoch re-checks the
// active account set for changes (original_source's account_poll_interval
// was 1s against a condition variable; this is the coarser re-check
// against storage, matching original_source's check_loop outer poll).
const activeUserPollInterval = 10 * time.Second

// Supervisor owns one daemon connection and one Storage, and runs
// however many scan workers the active account set needs.
type Supervisor struct {
	storage     *db.Storage
	peer        scan.Peer
	chainPeer   chainsync.Peer
	crypto      moneroutil.Crypto
	decoder     scan.BlockDecoder
	canceller   *peer.Canceller
	running     *lws.Running
	threads     int
	genesisHash [32]byte
}

// New builds a Supervisor. threads is clamped to at least 1. genesisHash,
// if non-zero, is the network's expected block-0 hash; chain sync
// rejects a peer whose reported genesis doesn't match it.
func New(
	storage *db.Storage,
	p scan.Peer,
	chainPeer chainsync.Peer,
	crypto moneroutil.Crypto,
	decoder scan.BlockDecoder,
	canceller *peer.Canceller,
	running *lws.Running,
	threads int,
	genesisHash [32]byte,
) *Supervisor {
	if threads < 1 {
		threads = 1
	}
	return &Supervisor{
		storage: storage, peer: p, chainPeer: chainPeer, crypto: crypto,
		decoder: decoder, canceller: canceller, running: running, threads: threads,
		genesisHash: genesisHash,
	}
}

// Run drives the epoch loop until ctx is done or running is cleared.
func (sup *Supervisor) Run(ctx context.Context) error {
	poll := ticker.New(activeUserPollInterval)
	defer poll.Stop()

	for sup.running.IsRunning() {
		if ctx.Err() != nil {
			return nil
		}

		if _, err := chainsync.Sync(ctx, sup.chainPeer, sup.storage, sup.genesisHash); err != nil {
			log.Warnf("Chain sync failed, retrying next epoch: %v", err)
		}

		users, active, err := sup.loadActiveUsers()
		if err != nil {
			return err
		}

		if len(users) == 0 {
			log.Infof("No active accounts")
			poll.Resume()
			select {
			case <-poll.Ticks():
				poll.Stop()
			case <-ctx.Done():
				return nil
			}
			continue
		}

		if err := sup.runEpoch(ctx, poll, users, active); err != nil {
			return err
		}
	}
	return nil
}

// loadActiveUsers reads every active account and the output ids it
// already owns, returning both the scan-ready Account handles and the
// sorted id list check_loop uses to detect membership drift.
func (sup *Supervisor) loadActiveUsers() ([]*account.Account, []db.AccountId, error) {
	r, err := sup.storage.StartRead()
	if err != nil {
		return nil, nil, lws.NewError(lws.ErrUnknown, "failed to start active-user read", err)
	}
	defer r.Close()

	var users []*account.Account
	var active []db.AccountId

	it := r.GetAccounts(db.StatusActive)
	for it.Next() {
		acct := it.Account()

		var received []db.OutputId
		outs := r.GetOutputs(acct.Id)
		for outs.Next() {
			received = append(received, outs.Output().Id)
		}

		users = append(users, account.New(acct, received))
		active = append(active, acct.Id)
	}
	if it.Err() != nil {
		return nil, nil, lws.NewError(lws.ErrUnknown, "failed to read active accounts", it.Err())
	}

	sort.Slice(active, func(i, j int) bool { return active[i] < active[j] })
	return users, active, nil
}

// runEpoch shards users across sup.threads workers and runs them until
// ctx ends, a worker errors, or the active account poll detects drift
// -- at which point every worker is canceled and joined before
// returning, mirroring check_loop's join_ RAII guard.
func (sup *Supervisor) runEpoch(ctx context.Context, poll ticker.Ticker, users []*account.Account, active []db.AccountId) error {
	sort.Slice(users, func(i, j int) bool { return users[i].ScanHeight() < users[j].ScanHeight() })

	shards := shard(users, sup.threads)
	log.Infof("Starting scan loops on %d thread(s) with %d account(s)", len(shards), len(users))

	cancelCh, unsubscribe := sup.canceller.Subscribe()
	defer unsubscribe()

	epochCtx, cancelEpoch := context.WithCancel(ctx)
	defer cancelEpoch()

	g, gCtx := errgroup.WithContext(epochCtx)
	for _, shardUsers := range shards {
		workerUsers := shardUsers
		w := scan.NewWorker(sup.peer, sup.storage, sup.crypto, sup.decoder, cancelCh, workerUsers)
		g.Go(func() error { return w.Run(gCtx) })
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		sup.watchActiveSet(epochCtx, cancelEpoch, poll, active)
	}()

	err := g.Wait()
	cancelEpoch()
	<-watchDone

	if lws.Is(err, lws.ErrBlockchainReorg) {
		log.Infof("Restarting scan after reorg: %v", err)
		return nil
	}
	if err != nil && !lws.Is(err, lws.ErrAbortScan) {
		return err
	}
	return nil
}

// watchActiveSet polls storage every activeUserPollInterval and calls
// cancelEpoch as soon as the active account set no longer matches
// active, matching check_loop's current_users re-check.
func (sup *Supervisor) watchActiveSet(epochCtx context.Context, cancelEpoch context.CancelFunc, poll ticker.Ticker, active []db.AccountId) {
	for {
		poll.Resume()
		select {
		case <-poll.Ticks():
		case <-epochCtx.Done():
			poll.Stop()
			return
		}

		changed, err := sup.activeSetChanged(active)
		if err != nil {
			log.Warnf("Failed to re-check active accounts, retrying later: %v", err)
			continue
		}
		if changed {
			log.Infof("Change in active user accounts detected")
			poll.Stop()
			cancelEpoch()
			return
		}
	}
}

func (sup *Supervisor) activeSetChanged(active []db.AccountId) (bool, error) {
	r, err := sup.storage.StartRead()
	if err != nil {
		return false, err
	}
	defer r.Close()

	it := r.GetAccounts(db.StatusActive)
	var count int
	for it.Next() {
		id := it.Account().Id
		i := sort.Search(len(active), func(i int) bool { return active[i] >= id })
		if i >= len(active) || active[i] != id {
			return true, nil
		}
		count++
	}
	if it.Err() != nil {
		return false, it.Err()
	}
	return count != len(active), nil
}

// shard splits users (already sorted by ascending scan height) into at
// most threads contiguous slices, matching original_source's per_thread
// = max(1, len(users)/threads) sharding in check_loop.
func shard(users []*account.Account, threads int) [][]*account.Account {
	if len(users) == 0 {
		return nil
	}
	perThread := len(users) / threads
	if perThread < 1 {
		perThread = 1
	}

	var shards [][]*account.Account
	remaining := users
	for len(remaining) > 0 && len(shards) < threads-1 {
		count := perThread
		if count > len(remaining) {
			count = len(remaining)
		}
		shards = append(shards, remaining[:count])
		remaining = remaining[count:]
	}
	if len(remaining) > 0 {
		shards = append(shards, remaining)
	}
	return shards
}
