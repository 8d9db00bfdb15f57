package kvdb

import (
	"time"

	"go.etcd.io/bbolt"
)

// boltDB adapts go.etcd.io/bbolt to the DB interface. bbolt already gives
// us exactly the semantics the storage layer needs: one writer, many
// snapshot-isolated readers, ordered byte-key iteration -- so this file is
// a thin adapter, not a reimplementation.
type boltDB struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) a bbolt-backed store at path.
func Open(path string) (DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	return &boltDB{db: db}, nil
}

func (b *boltDB) View(fn func(Tx) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (b *boltDB) Update(fn func(Tx) error) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (b *boltDB) BeginRead() (Tx, error) {
	tx, err := b.db.Begin(false)
	if err != nil {
		return nil, err
	}
	return &boltTx{tx: tx, manual: true}, nil
}

func (b *boltDB) Close() error { return b.db.Close() }

type boltTx struct {
	tx     *bbolt.Tx
	manual bool
}

func (t *boltTx) Bucket(name []byte) Bucket {
	bkt := t.tx.Bucket(name)
	if bkt == nil {
		return nil
	}
	return &boltBucket{b: bkt}
}

func (t *boltTx) CreateBucketIfNotExists(name []byte) (Bucket, error) {
	bkt, err := t.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return nil, err
	}
	return &boltBucket{b: bkt}, nil
}

func (t *boltTx) Commit() error {
	if t.manual {
		if !t.tx.Writable() {
			return t.tx.Rollback()
		}
		return t.tx.Commit()
	}
	// Managed transactions (View/Update) commit via bbolt's own fn
	// wrapper; an explicit Commit call here would double-commit, so for
	// symmetry with Rollback we simply no-op. Only BeginRead-produced
	// transactions are ever Commit()/Rollback()'d directly by callers.
	return nil
}

func (t *boltTx) Rollback() error {
	if t.manual {
		return t.tx.Rollback()
	}
	return nil
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (bk *boltBucket) Get(key []byte) []byte           { return bk.b.Get(key) }
func (bk *boltBucket) Put(key, value []byte) error     { return bk.b.Put(key, value) }
func (bk *boltBucket) Delete(key []byte) error         { return bk.b.Delete(key) }
func (bk *boltBucket) Cursor() Cursor                  { return &boltCursor{c: bk.b.Cursor()} }

type boltCursor struct {
	c *bbolt.Cursor
}

func (c *boltCursor) First() ([]byte, []byte)        { return c.c.First() }
func (c *boltCursor) Last() ([]byte, []byte)         { return c.c.Last() }
func (c *boltCursor) Next() ([]byte, []byte)         { return c.c.Next() }
func (c *boltCursor) Prev() ([]byte, []byte)         { return c.c.Prev() }
func (c *boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }
