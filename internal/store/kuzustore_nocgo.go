//go:build !cgo

package store

import (
	"errors"
)

// errKuzuNoCGO is returned when the binary was built without CGO, which the
// go-kuzu driver requires.
var errKuzuNoCGO = errors.New("kuzu: store requires a cgo-enabled build")

// KuzuStore is unavailable in non-cgo builds.
type KuzuStore struct {
	MemStore
}

// NewKuzuStore always fails in non-cgo builds.
func NewKuzuStore() (*KuzuStore, error) {
	return nil, errKuzuNoCGO
}

// NewKuzuFileStore always fails in non-cgo builds.
func NewKuzuFileStore(string) (*KuzuStore, error) {
	return nil, errKuzuNoCGO
}
