// Package dispatch glues the dispatch layer together. For one asset it asks
// the credential pool for eligible credentials, attempts the provider call
// through each until one succeeds, records observed credential failures back
// into the pool, and wraps the whole rotation in the retry engine. For a
// batch it hands that per-asset worker to the scheduler.
package dispatch
