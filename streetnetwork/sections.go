package streetnetwork

import (
	"cmp"
	"slices"

	"github.com/kbukum/mobilitykit/wire"
)

// SortSections orders sections by begin time, then end time. Equal sections
// keep their relative order.
func SortSections(sections []wire.Section) {
	slices.SortStableFunc(sections, func(a, b wire.Section) int {
		if c := cmp.Compare(a.BeginDateTime, b.BeginDateTime); c != 0 {
			return c
		}
		return cmp.Compare(a.EndDateTime, b.EndDateTime)
	})
}

// reverseJourneys turns journeys computed from destination to origin back
// into the requested direction. Each leg's endpoints are swapped and legs are
// retimed backwards from the journey arrival using their durations.
func reverseJourneys(resp *wire.Response) {
	for i := range resp.Journeys {
		j := &resp.Journeys[i]
		if len(j.Sections) == 0 {
			continue
		}
		previousBegin := j.ArrivalDateTime
		for k := range j.Sections {
			s := &j.Sections[k]
			s.Origin, s.Destination = s.Destination, s.Origin
			s.EndDateTime = previousBegin
			s.BeginDateTime = s.EndDateTime - int64(s.Duration)
			previousBegin = s.BeginDateTime
		}
		SortSections(j.Sections)
	}
}
