package roster

import (
	"sort"

	"github.com/google/uuid"

	"staffplan/internal/model"
)

// buildSegments slices one shift into lunch, breaks, and work blocks.
// Lunch is centered in the plan's lunch window; breaks are spread evenly
// across the break window and pushed off the lunch when they collide. The
// remaining time becomes work blocks. Window offsets in the plan are
// minutes from shift start; segments never overlap and never leave the
// shift bounds.
func buildSegments(shiftID string, shiftStart, shiftEnd int, tmpl model.ShiftTemplate, plan model.SchedulePlan) []model.ShiftSegment {
	placed := []model.ShiftSegment{}

	if tmpl.UnpaidMinutes > 0 {
		lo, hi := window(shiftStart, shiftEnd, plan.LunchWindowStart, plan.LunchWindowEnd, tmpl.UnpaidMinutes)
		start := clamp((lo+hi)/2-tmpl.UnpaidMinutes/2, shiftStart, shiftEnd-tmpl.UnpaidMinutes)
		placed = append(placed, model.ShiftSegment{
			ID:          uuid.New().String(),
			ShiftID:     shiftID,
			Type:        model.SegmentLunch,
			StartMinute: start,
			EndMinute:   start + tmpl.UnpaidMinutes,
		})
	}

	if tmpl.BreakCount > 0 && tmpl.BreakMinutes > 0 {
		lo, hi := window(shiftStart, shiftEnd, plan.BreakWindowStart, plan.BreakWindowEnd, tmpl.BreakMinutes)
		span := hi - lo
		for k := 1; k <= tmpl.BreakCount; k++ {
			start := lo + span*k/(tmpl.BreakCount+1) - tmpl.BreakMinutes/2
			start = clamp(start, shiftStart, shiftEnd-tmpl.BreakMinutes)
			start = resolve(placed, start, tmpl.BreakMinutes, shiftStart, shiftEnd)
			if start < 0 {
				continue
			}
			placed = append(placed, model.ShiftSegment{
				ID:          uuid.New().String(),
				ShiftID:     shiftID,
				Type:        model.SegmentBreak,
				StartMinute: start,
				EndMinute:   start + tmpl.BreakMinutes,
				Paid:        true,
			})
		}
	}

	sort.Slice(placed, func(i, j int) bool { return placed[i].StartMinute < placed[j].StartMinute })

	out := make([]model.ShiftSegment, 0, len(placed)*2+1)
	cur := shiftStart
	for _, p := range placed {
		if p.StartMinute > cur {
			out = append(out, workSegment(shiftID, cur, p.StartMinute))
		}
		out = append(out, p)
		cur = p.EndMinute
	}
	if cur < shiftEnd {
		out = append(out, workSegment(shiftID, cur, shiftEnd))
	}
	return out
}

func workSegment(shiftID string, start, end int) model.ShiftSegment {
	return model.ShiftSegment{
		ID:          uuid.New().String(),
		ShiftID:     shiftID,
		Type:        model.SegmentWork,
		StartMinute: start,
		EndMinute:   end,
		Paid:        true,
	}
}

// window maps a relative window onto the shift. Windows too small for the
// segment fall back to the whole shift.
func window(shiftStart, shiftEnd, relLo, relHi, dur int) (int, int) {
	lo := shiftStart + relLo
	hi := shiftStart + relHi
	if lo < shiftStart {
		lo = shiftStart
	}
	if hi > shiftEnd {
		hi = shiftEnd
	}
	if hi-lo < dur {
		return shiftStart, shiftEnd
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fits(placed []model.ShiftSegment, start, end, lo, hi int) bool {
	if start < lo || end > hi {
		return false
	}
	for _, p := range placed {
		if start < p.EndMinute && p.StartMinute < end {
			return false
		}
	}
	return true
}

func firstConflict(placed []model.ShiftSegment, start, end int) *model.ShiftSegment {
	for i := range placed {
		if start < placed[i].EndMinute && placed[i].StartMinute < end {
			return &placed[i]
		}
	}
	return nil
}

// resolve finds a collision-free start for a segment of length dur, pushing
// it right past conflicts first, then left, inside [lo, hi]. Returns -1
// when the shift is too packed to place it.
func resolve(placed []model.ShiftSegment, start, dur, lo, hi int) int {
	if fits(placed, start, start+dur, lo, hi) {
		return start
	}
	s := start
	for range placed {
		c := firstConflict(placed, s, s+dur)
		if c == nil {
			break
		}
		s = c.EndMinute
	}
	if fits(placed, s, s+dur, lo, hi) {
		return s
	}
	s = start
	for range placed {
		c := firstConflict(placed, s, s+dur)
		if c == nil {
			break
		}
		s = c.StartMinute - dur
	}
	if fits(placed, s, s+dur, lo, hi) {
		return s
	}
	return -1
}
