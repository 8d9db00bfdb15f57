package moneroutil

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
)

// Fake is a deterministic Crypto for tests: every operation is a plain
// hash of its inputs rather than real curve arithmetic, so a test can
// compute the exact bytes scan.Worker should see an output matched
// against without constructing valid Monero keys.
type Fake struct{}

func fakeHash(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// GenerateKeyDerivation always succeeds, returning a hash of its inputs.
func (Fake) GenerateKeyDerivation(txPublic [32]byte, viewKey db.ViewKey) ([32]byte, bool) {
	return fakeHash(txPublic[:], viewKey[:]), true
}

// DerivePublicKey returns a hash of its inputs, so a test builds a
// "matching" output by calling this same function with the recipient's
// real spend key and using the result as the output's public key.
func (Fake) DerivePublicKey(derivation [32]byte, outputIndex uint32, spendPublic [32]byte) ([32]byte, bool) {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], outputIndex)
	return fakeHash(derivation[:], idx[:], spendPublic[:]), true
}

// DecryptAmount XORs against a deterministic keystream; a test recovers
// the cleartext amount the same way FakeEncryptAmount encrypted it.
func (Fake) DecryptAmount(derivation [32]byte, outputIndex uint32, encryptedAmount uint64, encryptedMask [32]byte) (uint64, [32]byte) {
	var idx [4]byte
	binary.LittleEndian.PutUint32(idx[:], outputIndex)
	key := fakeHash([]byte("amount"), derivation[:], idx[:])
	amount := encryptedAmount ^ binary.LittleEndian.Uint64(key[:8])

	maskKey := fakeHash([]byte("mask"), derivation[:], idx[:])
	var mask [32]byte
	for i := range mask {
		mask[i] = encryptedMask[i] ^ maskKey[i]
	}
	return amount, mask
}

// FakeEncryptAmount is the test-side inverse construction helper: it
// produces the "encrypted" amount/mask a fixture output should carry so
// that Fake.DecryptAmount recovers exactly amount/mask.
func FakeEncryptAmount(derivation [32]byte, outputIndex uint32, amount uint64, mask [32]byte) (uint64, [32]byte) {
	f := Fake{}
	// XOR is its own inverse, so encrypting is decrypting.
	return f.DecryptAmount(derivation, outputIndex, amount, mask)
}
