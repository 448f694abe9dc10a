// Package scheduler drives an ordered batch of items through a worker
// function with bounded concurrency. Results are always index-aligned with
// the submitted items regardless of completion order, one failing item never
// aborts the rest of the batch, and cancellation is cooperative: it stops
// new items from being claimed while letting in-flight workers finish.
package scheduler
