package model

import "time"

// VerifyCache is a cached third-party verification result, one row per
// identifier, stored in `gst_cache` (keyed by GSTIN) or `pan_cache` (keyed
// by PAN). The cache is an optimization only: rows older than 24 hours are
// treated as stale and refreshed from the provider.
type VerifyCache struct {
	ID         string    // gst_cache.gstin / pan_cache.pan
	Payload    string    // raw provider payload JSON
	Status     *string   // provider registration status (nullable)
	HolderName *string   // pan_cache.holder_name, nil for GST rows
	FetchedAt  time.Time // when the payload was fetched
}
