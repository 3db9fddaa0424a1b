// Package core holds the session domain: the canonical types, the Failure
// taxonomy every error is normalized into, configuration, and the Store that
// owns session state. Transport and identity provider adapters depend on
// this package; core depends on neither.
package core
