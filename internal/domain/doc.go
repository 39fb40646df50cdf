// Package domain holds the pure types and transforms of the outage notice
// pipeline: announcements, extracted schedules, the PSGC reference tree,
// recency filtering, and location normalization. It has no I/O; adapters
// live under internal/adapter.
package domain
