// Package prover talks to proof backends. The production path is an HTTP
// client with bounded retries; a development backend and a local
// pre-verifier ship alongside it for integration testing without real
// proving infrastructure.
package prover
