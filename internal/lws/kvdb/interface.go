// Package kvdb defines the transactional ordered key/value abstraction the
// scanner's storage layer is built on. It is modeled on
// btcwallet/walletdb's Namespace/Tx/Bucket/Cursor split (strict snapshot
// isolation for readers, a single writer, resumable cursors), trimmed to
// the operations internal/lws/db actually needs and backed by
// go.etcd.io/bbolt rather than a custom B+tree -- the low-level storage
// engine itself is not this package's concern.
package kvdb

// Bucket is a named collection of ordered key/value pairs, equivalent to a
// top-level bbolt bucket. Nested buckets are not used by this module; every
// table the storage layer defines is a single flat Bucket.
type Bucket interface {
	// Get returns the value for key, or nil if it does not exist. The
	// returned slice is only valid for the lifetime of the transaction.
	Get(key []byte) []byte

	// Put inserts or overwrites key with value. Returns an error if the
	// transaction is read-only.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// Cursor returns a new cursor over the bucket's key/value pairs in
	// byte order.
	Cursor() Cursor
}

// Cursor iterates a Bucket's key/value pairs in byte order. A Cursor is
// only valid for the lifetime of the transaction that created it, unless
// explicitly Suspended and Resumed on a later transaction (see Reader in
// internal/lws/db), which re-seeks to the last observed key.
type Cursor interface {
	// First positions the cursor at the first key/value pair.
	First() (key, value []byte)
	// Last positions the cursor at the last key/value pair.
	Last() (key, value []byte)
	// Next advances the cursor and returns the new pair, or nil, nil at
	// the end.
	Next() (key, value []byte)
	// Prev moves the cursor backward and returns the new pair, or nil,
	// nil at the beginning.
	Prev() (key, value []byte)
	// Seek positions the cursor at the first key >= seek.
	Seek(seek []byte) (key, value []byte)
}

// Tx is either a read-only or a read-write transaction over every bucket in
// the database. Buckets are fetched by name; a bucket is created lazily on
// first write if it does not already exist.
type Tx interface {
	// Bucket returns the named bucket, or nil if it does not exist (a
	// read-only Tx never creates buckets).
	Bucket(name []byte) Bucket

	// CreateBucketIfNotExists returns the named bucket, creating it first
	// if necessary. Only valid on a read-write Tx.
	CreateBucketIfNotExists(name []byte) (Bucket, error)

	// Commit finalizes a read-write transaction. Calling Commit on a
	// read-only Tx is equivalent to Rollback.
	Commit() error

	// Rollback discards all changes made through this Tx.
	Rollback() error
}

// DB is the top-level handle on the persisted store.
type DB interface {
	// View runs fn inside a read-only, snapshot-isolated transaction.
	// Any error returned by fn is returned from View; the transaction is
	// always rolled back (read-only transactions have nothing to commit).
	View(fn func(Tx) error) error

	// Update runs fn inside the single read-write transaction. If fn
	// returns a non-nil error the transaction is rolled back and the
	// error is returned; otherwise it commits.
	Update(fn func(Tx) error) error

	// BeginRead opens a read-only Tx that the caller must Rollback
	// explicitly. Used by internal/lws/db.Reader to support cursors that
	// stay open across polling intervals (suspend/resume).
	BeginRead() (Tx, error)

	// Close cleanly shuts down the database, flushing any pending data.
	Close() error
}
