// Command vaultctl manages vault entries from the command line: storing,
// updating, listing, soft-deleting, and recovering entries with full
// integrity verification, plus splitting the session key into an offline
// recovery kit.
package main
