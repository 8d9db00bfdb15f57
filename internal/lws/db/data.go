package db

import "crypto/subtle"

// AccountAddress is the 64-byte public address: a spend public key and a
// view public key, no padding.
type AccountAddress struct {
	SpendPublic [32]byte
	ViewPublic  [32]byte
}

// ViewKey is the 32-byte scalar that both decrypts a holder's outputs and
// authenticates API calls made on their behalf. It is sensitive: callers
// must call Wipe when finished with a value instead of letting it be
// garbage collected.
type ViewKey [32]byte

// Wipe zeroizes the key in place. Call this as soon as a ViewKey is no
// longer needed -- on account-state teardown, after an authentication
// check, or when an Account is dropped.
func (k *ViewKey) Wipe() {
	for i := range k {
		k[i] = 0
	}
}

// Equal performs a constant-time comparison, appropriate for use as a
// bearer-token check: the view-key acts simultaneously as the
// authorization bearer token for API calls.
func (k ViewKey) Equal(other ViewKey) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

// AccountStatus is one of Active, Inactive, or Hidden.
type AccountStatus uint8

const (
	// StatusActive accounts are scanned and visible via the API.
	StatusActive AccountStatus = iota
	// StatusInactive accounts are visible via the API but not scanned.
	StatusInactive
	// StatusHidden accounts are neither scanned nor visible.
	StatusHidden
)

func (s AccountStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusHidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// Account is the persisted per-user row keyed by Id, with a secondary
// index by Address.
type Account struct {
	Id          AccountId
	Status      AccountStatus
	LastAccess  AccountTime
	Address     AccountAddress
	ViewKey     ViewKey
	ScanHeight  BlockId
	StartHeight BlockId
	Creation    AccountTime
}

// BlockInfo is a persisted chain-tail entry used for reorg detection
type BlockInfo struct {
	Id   BlockId
	Hash [32]byte
}

// ExtraVariant is the low-3-bit tag packed into Output.ExtraFlags.
type ExtraVariant uint8

const (
	// ExtraNone: plain (pre-ringCT) output, not a coinbase.
	ExtraNone ExtraVariant = iota
	// ExtraCoinbase: output of a miner (coinbase) transaction.
	ExtraCoinbase
	// ExtraRingct: output with an encoded ringCT amount/mask.
	ExtraRingct
	// ExtraCoinbaseAndRingct: both of the above.
	ExtraCoinbaseAndRingct
)

// PackExtraFlags packs a variant tag (low 3 bits) and a payment-id length
// (high 5 bits, one of 0/8/32) into a single byte.
func PackExtraFlags(variant ExtraVariant, paymentIDLen uint8) uint8 {
	return uint8(variant)&0x07 | (paymentIDLen&0x1F)<<3
}

// UnpackExtraFlags is the inverse of PackExtraFlags.
func UnpackExtraFlags(flags uint8) (variant ExtraVariant, paymentIDLen uint8) {
	return ExtraVariant(flags & 0x07), (flags >> 3) & 0x1F
}

// Output is a single detected output owned by some account.
// PaymentId is a 32-byte buffer reused for the 8- or 32-byte variant; only
// the first PaymentIDLen bytes (via ExtraFlags) are meaningful.
type Output struct {
	Height       BlockId
	Id           OutputId
	Amount       uint64
	Timestamp    AccountTime
	UnlockTime   uint64
	MixinCount   uint32
	IndexInTx    uint32
	TxHash       [32]byte
	TxPrefixHash [32]byte
	TxPublic     [32]byte
	RingctMask   [32]byte // cleartext mask once decrypted; see moneroutil.Crypto.DecryptAmount
	ExtraFlags   uint8
	PaymentId    [32]byte
}

// Variant unpacks the ExtraVariant tag from ExtraFlags.
func (o *Output) Variant() ExtraVariant {
	v, _ := UnpackExtraFlags(o.ExtraFlags)
	return v
}

// PaymentIDLen unpacks the payment-id length from ExtraFlags.
func (o *Output) PaymentIDLen() uint8 {
	_, n := UnpackExtraFlags(o.ExtraFlags)
	return n
}

// Spend is a detected key-image spend of some output, keyed by
// (OutputId, KeyImage).
type Spend struct {
	KeyImage   [32]byte
	MixinCount uint32
}

// RequestInfo is a pending account-creation request, keyed by Address
type RequestInfo struct {
	Address     AccountAddress
	ViewKey     ViewKey
	StartHeight BlockId
	Creation    AccountTime
}
