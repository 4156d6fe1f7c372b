package models

import (
	"time"

	"github.com/mailvault/mailvault/internal/enum"
)

// StorageEstimate is the platform-reported usage and quota, in bytes.
type StorageEstimate struct {
	UsageBytes int64 `json:"usageBytes"`
	QuotaBytes int64 `json:"quotaBytes"`
}

// QuotaState is the monitor's snapshot of storage health. It is
// recomputed fresh on every poll and never merged with prior state.
type QuotaState struct {
	UsageBytes  int64                `json:"usageBytes"`
	QuotaBytes  int64                `json:"quotaBytes"`
	Percentage  float64              `json:"percentage"`
	Status      enum.ThresholdStatus `json:"status"`
	LastChecked time.Time            `json:"lastChecked"`
}

// AccountBreakdown aggregates storage for one account.
type AccountBreakdown struct {
	AccountID     string `json:"accountId"`
	EmailCount    int64  `json:"emailCount"`
	EstimatedSize int64  `json:"estimatedSize"`
}

// AgeBucketBreakdown aggregates storage for one age range.
type AgeBucketBreakdown struct {
	Bucket        enum.AgeBucket `json:"bucket"`
	EmailCount    int64          `json:"emailCount"`
	EstimatedSize int64          `json:"estimatedSize"`
	OldestTs      int64          `json:"oldestTimestamp"`
	NewestTs      int64          `json:"newestTimestamp"`
}

// SizeBucketBreakdown aggregates storage for one size range.
type SizeBucketBreakdown struct {
	Bucket     enum.SizeBucket `json:"bucket"`
	EmailCount int64           `json:"emailCount"`
	TotalSize  int64           `json:"totalSize"`
}

// StorageBreakdown is the combined aggregation with grand totals.
type StorageBreakdown struct {
	ByAccount          []AccountBreakdown    `json:"byAccount"`
	ByAge              []AgeBucketBreakdown  `json:"byAge"`
	BySize             []SizeBucketBreakdown `json:"bySize"`
	TotalEmails        int64                 `json:"totalEmails"`
	TotalEstimatedSize int64                 `json:"totalEstimatedSize"`
	GeneratedAt        time.Time             `json:"generatedAt"`
}

// CleanupCriteria are optional AND-combined filters selecting emails
// for removal.
type CleanupCriteria struct {
	AccountIDs    []string `json:"accountIds,omitempty"`
	OlderThanDays *int     `json:"olderThanDays,omitempty"`
	MinSizeBytes  *int64   `json:"minSizeBytes,omitempty"`
}

// Selector translates the criteria into store-level predicates, with
// nowMillis anchoring the age cutoff. The minimum-size criterion stays
// client-side: size is derived, not indexable.
func (c CleanupCriteria) Selector(nowMillis int64) EmailSelector {
	selector := EmailSelector{}
	if len(c.AccountIDs) > 0 {
		selector.AccountIDs = c.AccountIDs
	}
	if c.OlderThanDays != nil {
		cutoff := nowMillis - int64(*c.OlderThanDays)*24*int64(time.Hour/time.Millisecond)
		selector.TimestampBefore = &cutoff
	}
	return selector
}

// ReductionEstimate previews what a cleanup with the same criteria
// would remove.
type ReductionEstimate struct {
	EmailCount       int64    `json:"emailCount"`
	EstimatedSize    int64    `json:"estimatedSize"`
	AffectedAccounts []string `json:"affectedAccounts"`
}

// CleanupResult summarizes one finished cleanup run.
type CleanupResult struct {
	DeletedCount     int64    `json:"deletedCount"`
	FreedBytes       int64    `json:"freedBytes"`
	AccountsAffected []string `json:"accountsAffected"`
	DurationMs       int64    `json:"durationMs"`
}

// CleanupProgress is streamed to the caller during a cleanup run.
type CleanupProgress struct {
	Phase        enum.CleanupPhase `json:"phase"`
	Current      int64             `json:"current"`
	Total        int64             `json:"total"`
	DeletedCount int64             `json:"deletedCount"`
	FreedBytes   int64             `json:"freedBytes"`
}

// EmailSelector is the closed set of store-level predicates: account
// equality, account set membership and a timestamp upper bound. All
// set fields AND-combine.
type EmailSelector struct {
	AccountID       *string
	AccountIDs      []string
	TimestampBefore *int64
}

// IsZero reports whether the selector has no predicates, i.e. matches
// every email.
func (s EmailSelector) IsZero() bool {
	return s.AccountID == nil && len(s.AccountIDs) == 0 && s.TimestampBefore == nil
}
