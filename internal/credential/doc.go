// Package credential owns the per-provider pools of API credentials: their
// validation against live endpoints, their status tracking as calls succeed
// or fail, and the preference ordering used when the dispatch layer rotates
// through them. All pool state is in-memory and guarded by a single mutex;
// persistence of credential lists belongs to the presentation layer.
package credential
