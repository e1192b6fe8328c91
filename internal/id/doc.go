// Package id generates identifiers for collected requests and runs.
//
// Request IDs are UUIDv7 values: they embed a millisecond timestamp so that
// IDs generated later sort after earlier ones, which keeps request journals
// readable when they are written out in ID order.
package id
