// Package retry implements a generic resilience wrapper around a single
// fallible operation: exponential backoff with jitter, pluggable error
// classification, and an amplified cooldown for rate-limit signals. The loop
// is iterative, so large retry budgets keep stack usage flat, and every sleep
// is context-aware.
package retry
