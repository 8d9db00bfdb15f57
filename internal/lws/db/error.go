package db

import "github.com/isabella232/hostedwallet-server-staging/internal/lws"

// storeError builds a *lws.Error for every failure originating in this
// package, keeping the error kind attached at the point of failure.
func storeError(kind lws.ErrorKind, desc string, cause error) error {
	return lws.NewError(kind, desc, cause)
}
