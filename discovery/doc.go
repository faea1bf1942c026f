// Package discovery resolves the engine's collaborator endpoints (proof
// backends, blob gateways) from DNS SRV records, so deployments can move
// collaborators without reconfiguring every client.
package discovery
