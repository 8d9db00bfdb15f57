package db

import "encoding/binary"

// Table (bucket) names.
var (
	bucketAccountsByID      = []byte("accounts_by_id")
	bucketAccountsByAddress = []byte("accounts_by_address")
	bucketOutputs           = []byte("outputs")
	bucketSpends            = []byte("spends")
	bucketBlocks            = []byte("blocks")
	bucketRequestsByAddress = []byte("requests_by_address")
)

// Key components use big-endian byte order so that lexicographic byte
// comparison (what every ordered KV cursor gives you) matches numeric
// order -- the same reasoning wtxmgr/db.go documents for its own
// integer keys. Value payloads use little-endian; those bytes are
// never compared, only keys are, so this is not a contradiction (see
// DESIGN.md for the rationale).
var keyOrder = binary.BigEndian
var valueOrder = binary.LittleEndian

// keyAccountID is the accounts_by_id key: the account id alone, so the
// table iterates in Account-by-id order.
func keyAccountID(id AccountId) []byte {
	k := make([]byte, 4)
	keyOrder.PutUint32(k, uint32(id))
	return k
}

// keyAccountAddress is the accounts_by_address secondary-index key.
func keyAccountAddress(addr AccountAddress) []byte {
	k := make([]byte, 64)
	copy(k[:32], addr.SpendPublic[:])
	copy(k[32:], addr.ViewPublic[:])
	return k
}

// keyOutput is the outputs table key: (account, height, id), so a
// prefix scan over account yields outputs in ascending height order.
func keyOutput(account AccountId, height BlockId, id OutputId) []byte {
	k := make([]byte, 4+8+8)
	keyOrder.PutUint32(k[0:4], uint32(account))
	keyOrder.PutUint64(k[4:12], uint64(height))
	keyOrder.PutUint64(k[12:20], uint64(id))
	return k
}

// outputPrefix returns the key prefix matching every output row for
// account, for a prefix-scan cursor.
func outputPrefix(account AccountId) []byte {
	k := make([]byte, 4)
	keyOrder.PutUint32(k, uint32(account))
	return k
}

// keySpend is the spends table key: (output_id, key_image), so a
// prefix scan over output_id yields every spend recorded against it.
func keySpend(output OutputId, keyImage [32]byte) []byte {
	k := make([]byte, 8+32)
	keyOrder.PutUint64(k[0:8], uint64(output))
	copy(k[8:], keyImage[:])
	return k
}

func spendPrefix(output OutputId) []byte {
	k := make([]byte, 8)
	keyOrder.PutUint64(k, uint64(output))
	return k
}

// keyBlock is the blocks table key: the block id alone.
func keyBlock(id BlockId) []byte {
	k := make([]byte, 8)
	keyOrder.PutUint64(k, uint64(id))
	return k
}

// keyRequest is the requests_by_address table key.
func keyRequest(addr AccountAddress) []byte {
	return keyAccountAddress(addr)
}

// --- value (struct) encodings ---

func encodeAccount(a *Account) []byte {
	v := make([]byte, 4+1+4+64+32+8+8+4)
	off := 0
	valueOrder.PutUint32(v[off:], uint32(a.Id))
	off += 4
	v[off] = uint8(a.Status)
	off++
	valueOrder.PutUint32(v[off:], uint32(a.LastAccess))
	off += 4
	copy(v[off:], a.Address.SpendPublic[:])
	off += 32
	copy(v[off:], a.Address.ViewPublic[:])
	off += 32
	copy(v[off:], a.ViewKey[:])
	off += 32
	valueOrder.PutUint64(v[off:], uint64(a.ScanHeight))
	off += 8
	valueOrder.PutUint64(v[off:], uint64(a.StartHeight))
	off += 8
	valueOrder.PutUint32(v[off:], uint32(a.Creation))
	return v
}

func decodeAccount(v []byte) (*Account, bool) {
	const wantLen = 4 + 1 + 4 + 64 + 32 + 8 + 8 + 4
	if len(v) != wantLen {
		return nil, false
	}
	a := &Account{}
	off := 0
	a.Id = AccountId(valueOrder.Uint32(v[off:]))
	off += 4
	a.Status = AccountStatus(v[off])
	off++
	a.LastAccess = AccountTime(valueOrder.Uint32(v[off:]))
	off += 4
	copy(a.Address.SpendPublic[:], v[off:off+32])
	off += 32
	copy(a.Address.ViewPublic[:], v[off:off+32])
	off += 32
	copy(a.ViewKey[:], v[off:off+32])
	off += 32
	a.ScanHeight = BlockId(valueOrder.Uint64(v[off:]))
	off += 8
	a.StartHeight = BlockId(valueOrder.Uint64(v[off:]))
	off += 8
	a.Creation = AccountTime(valueOrder.Uint32(v[off:]))
	return a, true
}

func encodeOutput(o *Output) []byte {
	v := make([]byte, 8+8+8+4+8+4+4+32+32+32+32+1+32)
	off := 0
	valueOrder.PutUint64(v[off:], uint64(o.Height))
	off += 8
	valueOrder.PutUint64(v[off:], uint64(o.Id))
	off += 8
	valueOrder.PutUint64(v[off:], o.Amount)
	off += 8
	valueOrder.PutUint32(v[off:], uint32(o.Timestamp))
	off += 4
	valueOrder.PutUint64(v[off:], o.UnlockTime)
	off += 8
	valueOrder.PutUint32(v[off:], o.MixinCount)
	off += 4
	valueOrder.PutUint32(v[off:], o.IndexInTx)
	off += 4
	copy(v[off:], o.TxHash[:])
	off += 32
	copy(v[off:], o.TxPrefixHash[:])
	off += 32
	copy(v[off:], o.TxPublic[:])
	off += 32
	copy(v[off:], o.RingctMask[:])
	off += 32
	v[off] = o.ExtraFlags
	off++
	copy(v[off:], o.PaymentId[:])
	return v
}

func decodeOutput(v []byte) (*Output, bool) {
	const wantLen = 8 + 8 + 8 + 4 + 8 + 4 + 4 + 32 + 32 + 32 + 32 + 1 + 32
	if len(v) != wantLen {
		return nil, false
	}
	o := &Output{}
	off := 0
	o.Height = BlockId(valueOrder.Uint64(v[off:]))
	off += 8
	o.Id = OutputId(valueOrder.Uint64(v[off:]))
	off += 8
	o.Amount = valueOrder.Uint64(v[off:])
	off += 8
	o.Timestamp = AccountTime(valueOrder.Uint32(v[off:]))
	off += 4
	o.UnlockTime = valueOrder.Uint64(v[off:])
	off += 8
	o.MixinCount = valueOrder.Uint32(v[off:])
	off += 4
	o.IndexInTx = valueOrder.Uint32(v[off:])
	off += 4
	copy(o.TxHash[:], v[off:off+32])
	off += 32
	copy(o.TxPrefixHash[:], v[off:off+32])
	off += 32
	copy(o.TxPublic[:], v[off:off+32])
	off += 32
	copy(o.RingctMask[:], v[off:off+32])
	off += 32
	o.ExtraFlags = v[off]
	off++
	copy(o.PaymentId[:], v[off:off+32])
	return o, true
}

func encodeSpend(s *Spend) []byte {
	v := make([]byte, 32+4)
	copy(v[:32], s.KeyImage[:])
	valueOrder.PutUint32(v[32:], s.MixinCount)
	return v
}

func decodeSpend(v []byte) (*Spend, bool) {
	if len(v) != 32+4 {
		return nil, false
	}
	s := &Spend{}
	copy(s.KeyImage[:], v[:32])
	s.MixinCount = valueOrder.Uint32(v[32:])
	return s, true
}

func encodeBlockInfo(b *BlockInfo) []byte {
	v := make([]byte, 32)
	copy(v, b.Hash[:])
	return v
}

func decodeBlockInfo(id BlockId, v []byte) (*BlockInfo, bool) {
	if len(v) != 32 {
		return nil, false
	}
	b := &BlockInfo{Id: id}
	copy(b.Hash[:], v)
	return b, true
}

func encodeRequest(r *RequestInfo) []byte {
	v := make([]byte, 32+8+4)
	copy(v[:32], r.ViewKey[:])
	valueOrder.PutUint64(v[32:40], uint64(r.StartHeight))
	valueOrder.PutUint32(v[40:44], uint32(r.Creation))
	return v
}

func decodeRequest(addr AccountAddress, v []byte) (*RequestInfo, bool) {
	if len(v) != 32+8+4 {
		return nil, false
	}
	r := &RequestInfo{Address: addr}
	copy(r.ViewKey[:], v[:32])
	r.StartHeight = BlockId(valueOrder.Uint64(v[32:40]))
	r.Creation = AccountTime(valueOrder.Uint32(v[40:44]))
	return r, true
}
