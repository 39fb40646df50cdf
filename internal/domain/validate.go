package domain

import (
	"time"
)

// noticeDateLayout is the human date format the notices (and the model
// responses) use, e.g. "August 27, 2025".
const noticeDateLayout = "January 2, 2006"

// ValidateSchedules filters raw schedules by recency against the cutoff
// date and normalizes their location names against the reference tree.
// Output order matches input order; candidates are never merged. A zero
// cutoff means "today" from the active clock.
func ValidateSchedules(raw []RawSchedule, ref ReferenceTree, cutoff time.Time) []ScheduleCandidate {
	if cutoff.IsZero() {
		cutoff = Today()
	}

	out := make([]ScheduleCandidate, 0, len(raw))
	for _, sched := range raw {
		if !hasDateOnOrAfter(sched.Dates, cutoff) {
			continue
		}
		out = append(out, ScheduleCandidate{
			Dates:         sched.Dates,
			Times:         sched.Times,
			DurationHours: sched.DurationHours,
			Locations:     normalizeLocations(sched.Locations, ref),
			Reason:        sched.Reason,
		})
	}
	return out
}

// hasDateOnOrAfter reports whether at least one date string parses under
// the notice layout to a date on or after cutoff. Unparsable strings are
// skipped, not treated as failures.
func hasDateOnOrAfter(dates []string, cutoff time.Time) bool {
	for _, d := range dates {
		parsed, err := time.Parse(noticeDateLayout, d)
		if err != nil {
			continue
		}
		if !parsed.Before(cutoff) {
			return true
		}
	}
	return false
}

// normalizeLocations resolves municipality and barangay names to canonical
// PSGC codes. Names that fail the exact case-insensitive match are carried
// through uppercased with a nil code rather than dropped.
func normalizeLocations(locs []RawLocation, ref ReferenceTree) []LocationAssignment {
	out := make([]LocationAssignment, 0, len(locs))
	for _, loc := range locs {
		muni := ref.FindMunicipality(loc.Municipality)
		if muni == nil {
			out = append(out, LocationAssignment{
				Municipality: CodedName{Name: CanonicalName(loc.Municipality)},
				Barangays:    unmatchedBarangays(loc.Barangays),
			})
			continue
		}

		barangays := make([]CodedName, 0, len(loc.Barangays))
		for _, bname := range loc.Barangays {
			if b := muni.FindBarangay(bname); b != nil {
				code := b.Code
				barangays = append(barangays, CodedName{Code: &code, Name: b.Name})
			} else {
				barangays = append(barangays, CodedName{Name: CanonicalName(bname)})
			}
		}

		code := muni.Code
		out = append(out, LocationAssignment{
			Municipality: CodedName{Code: &code, Name: muni.Name},
			Barangays:    barangays,
		})
	}
	return out
}

func unmatchedBarangays(names []string) []CodedName {
	out := make([]CodedName, 0, len(names))
	for _, n := range names {
		out = append(out, CodedName{Name: CanonicalName(n)})
	}
	return out
}
