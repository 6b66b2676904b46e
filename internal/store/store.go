// Package store holds the two typed store adapters the reconciliation layer
// orchestrates: the document store (mobile-authoritative, Redis) and the
// relational store (admin-authoritative, PostgreSQL). Services only depend on
// the interfaces so they can be unit-tested with fakes.
package store

import "errors"

// ErrNotFound is returned when a record the caller named does not exist in
// the targeted store. Connectivity failures are returned verbatim so callers
// can tell "absent" from "unreachable".
var ErrNotFound = errors.New("store: record not found")
