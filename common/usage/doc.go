// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

/*
Package usage records billable usage events.

One UsageRecord is written per completed, non-replayed logical request. The
Meter prices token counts through the cost package and persists the result;
it performs no deduplication of its own, so callers must only invoke it after
the idempotency cache reported a miss.

Records can be read back per tenant and time window for billing and
analytics:

	records, err := meter.ListUsage(ctx, usage.UsageQuery{
		TenantID: "tenant-1",
		From:     start,
		To:       end,
	})
	summary := usage.Summarize(records)
*/
package usage
