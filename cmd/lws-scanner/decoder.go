package main

import (
	"github.com/isabella232/hostedwallet-server-staging/internal/lws"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/db"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/peer"
	"github.com/isabella232/hostedwallet-server-staging/internal/lws/scan"
)

// unimplementedDecoder is a scan.BlockDecoder placeholder: cryptonote's
// binary block and transaction wire format (portable_storage variant
// encoding, ring signature / ringCT field layouts) is not implemented
// by this module. Wiring a daemon's raw get_blocks_fast response into
// scan.Block needs that decoder; until one exists, the scanner fails
// fast instead of scanning against garbage data.
type unimplementedDecoder struct{}

func (unimplementedDecoder) DecodeBlock(height db.BlockId, entry peer.BlockCompleteEntry) (scan.Block, error) {
	return scan.Block{}, lws.NewError(lws.ErrUnknown, "block decoding is not implemented", nil)
}
