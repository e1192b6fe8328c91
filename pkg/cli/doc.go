// Package cli implements the mockharness command line: run, validate, init and
// version.
package cli
