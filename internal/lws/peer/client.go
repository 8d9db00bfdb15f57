package peer

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
)

// Timeouts for the three request shapes a worker issues: a short
// budget for the cheap hash-locator exchange, a generous one for full
// block bodies, and a short one for the send half of either call.
const (
	SyncTimeout       = 30 * time.Second
	BlockFetchTimeout = 2 * time.Minute
	SendTimeout       = 30 * time.Second
)

// Client is a single daemon connection shared by every scan worker.
// Requests are multiplexed over one websocket connection: an id
// counter, a table of pending calls keyed by that id, and a single
// reader goroutine that dispatches replies to the right caller.
type Client struct {
	conn      *websocket.Conn
	sessionID uuid.UUID

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan response

	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens a websocket connection to a daemon's peer endpoint and
// starts the response-dispatch loop.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, lws.NewError(lws.ErrDaemonConnectionFailure, "failed to dial peer", err)
	}
	c := &Client{
		conn:      conn,
		sessionID: uuid.New(),
		pending:   make(map[uint64]chan response),
		closed:    make(chan struct{}),
	}
	log.Infof("Connected to peer %s, session %s", url, c.sessionID)
	go c.readLoop()
	return c, nil
}

// SessionID identifies this connection instance in logs, distinguishing
// one Dial's log lines from a prior connection's after a reconnect.
func (c *Client) SessionID() uuid.UUID { return c.sessionID }

// Close shuts down the connection and fails every call still pending.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
	}()
	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			log.Debugf("peer read loop exiting: %v", err)
			return
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
			close(ch)
		}
	}
}

// call sends method/params and blocks for the matching response, or
// until ctx is done.
func (c *Client) call(ctx context.Context, method string, params interface{}, sendTimeout time.Duration, out interface{}) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return lws.NewError(lws.ErrUnknown, "failed to encode peer request", err)
	}
	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(sendTimeout))
	if err := c.conn.WriteJSON(envelope{ID: id, Method: method, Params: raw}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return lws.NewError(lws.ErrDaemonConnectionFailure, "failed to send peer request", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return lws.NewError(lws.ErrDaemonConnectionFailure, "peer connection closed mid-request", nil)
		}
		if resp.Error != nil {
			return lws.NewError(lws.ErrDaemonConnectionFailure, resp.Error.Message, nil)
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return lws.NewError(lws.ErrUnknown, "failed to decode peer response", err)
		}
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return lws.NewError(lws.ErrAbortScan, "peer request canceled", ctx.Err())
	case <-c.closed:
		return lws.NewError(lws.ErrDaemonConnectionFailure, "peer connection closed", nil)
	}
}

// GetHashesFast issues the locator request a chainsync step uses to
// find the fork point with the daemon's best chain.
func (c *Client) GetHashesFast(ctx context.Context, params GetHashesFastParams) (*GetHashesFastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, SyncTimeout)
	defer cancel()
	var out GetHashesFastResult
	if err := c.call(ctx, "get_hashes_fast", params, SendTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBlocksFast issues the bulk block-body request a scan worker's
// steady-state loop uses to pull its next batch.
func (c *Client) GetBlocksFast(ctx context.Context, params GetBlocksFastParams) (*GetBlocksFastResult, error) {
	ctx, cancel := context.WithTimeout(ctx, BlockFetchTimeout)
	defer cancel()
	var out GetBlocksFastResult
	if err := c.call(ctx, "get_blocks_fast", params, SendTimeout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
