// Package retry wraps fallible provider calls with bounded exponential backoff.
//
// A Policy names how many caught attempts a call site tolerates and the base wait.
// Bulk enumeration typically uses fewer attempts than single-item lookups, since a
// missed item is cheap to retry aggressively while a full listing is not.
//
// After the caught attempts are spent the operation runs once more and its error is
// returned to the caller as-is:
//
//	res, err := retry.Do(ctx, retry.Policy{MaxAttempts: 3, BackoffFactor: 2 * time.Second},
//	    func(ctx context.Context) (ingest.RawResource, error) {
//	        return fetcher.FetchOne(ctx, id)
//	    })
package retry
