package db

// QueryReader is the read-only surface a query layer (an HTTP API, a
// CLI inspector) would need against a snapshot: look up one account,
// list accounts by status, and walk one account's outputs and a given
// output's spends. It is sized to exactly those four calls rather than
// *Reader's full cursor-suspension surface, which only the scan side
// needs.
type QueryReader interface {
	GetAccount(addr AccountAddress) (*Account, error)
	GetAccounts(status AccountStatus) *AccountIterator
	GetOutputs(account AccountId) *OutputIterator
	GetSpends(output OutputId) *SpendIterator
}

var _ QueryReader = (*Reader)(nil)
