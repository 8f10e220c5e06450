// Package types defines the Store and WriteTxn interfaces, the Signature and
// Block entities, the BlockID encoding, and the standard errors shared by the
// migration engine, the SQLite store, and the bundle codec.
package types
