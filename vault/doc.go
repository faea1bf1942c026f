// Package vault orchestrates entry lifecycle operations: it owns the
// session key, coordinates the fixed encrypt / publish / commit order
// across the blob store and the on-chain registry, and mirrors committed
// revisions into a local append-only sqlite store for listing and history.
package vault
