package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffplan/internal/model"
)

func segmentPlan() model.SchedulePlan {
	return model.SchedulePlan{
		BreakWindowStart: 60,
		BreakWindowEnd:   420,
		LunchWindowStart: 180,
		LunchWindowEnd:   300,
	}
}

func assertTiled(t *testing.T, segs []model.ShiftSegment, shiftStart, shiftEnd int) {
	t.Helper()
	require.NotEmpty(t, segs)
	assert.Equal(t, shiftStart, segs[0].StartMinute, "segments start at shift start")
	for i, s := range segs {
		assert.Less(t, s.StartMinute, s.EndMinute, "segment %d is non-empty", i)
		if i > 0 {
			assert.Equal(t, segs[i-1].EndMinute, s.StartMinute, "segment %d leaves a hole", i)
		}
	}
	assert.Equal(t, shiftEnd, segs[len(segs)-1].EndMinute, "segments end at shift end")
}

func TestBuildSegmentsStandardDay(t *testing.T) {
	tmpl := model.ShiftTemplate{ID: "tmpl-day", PaidMinutes: 480, UnpaidMinutes: 60, BreakCount: 2, BreakMinutes: 15}

	segs := buildSegments("sh1", 480, 1020, tmpl, segmentPlan())
	assertTiled(t, segs, 480, 1020)

	var lunches, breaks, workMinutes, breakMinutes int
	for _, s := range segs {
		switch s.Type {
		case model.SegmentLunch:
			lunches++
			assert.False(t, s.Paid)
			assert.Equal(t, 60, s.EndMinute-s.StartMinute)
			// Centered in the 180..300 window relative to shift start.
			assert.Equal(t, 690, s.StartMinute)
		case model.SegmentBreak:
			breaks++
			assert.True(t, s.Paid)
			breakMinutes += s.EndMinute - s.StartMinute
		case model.SegmentWork:
			assert.True(t, s.Paid)
			workMinutes += s.EndMinute - s.StartMinute
		}
	}
	assert.Equal(t, 1, lunches)
	assert.Equal(t, 2, breaks)
	assert.Equal(t, 30, breakMinutes)
	// Paid time minus breaks is on the phones.
	assert.Equal(t, 450, workMinutes)
}

func TestBuildSegmentsNoBreaksNoLunch(t *testing.T) {
	tmpl := model.ShiftTemplate{ID: "tmpl-half", PaidMinutes: 240}

	segs := buildSegments("sh1", 480, 720, tmpl, segmentPlan())
	require.Len(t, segs, 1)
	assert.Equal(t, model.SegmentWork, segs[0].Type)
	assert.Equal(t, 480, segs[0].StartMinute)
	assert.Equal(t, 720, segs[0].EndMinute)
}

func TestBuildSegmentsBreaksAvoidLunch(t *testing.T) {
	// Break and lunch windows coincide, forcing collisions.
	plan := model.SchedulePlan{
		BreakWindowStart: 180,
		BreakWindowEnd:   300,
		LunchWindowStart: 180,
		LunchWindowEnd:   300,
	}
	tmpl := model.ShiftTemplate{ID: "tmpl-day", PaidMinutes: 480, UnpaidMinutes: 60, BreakCount: 2, BreakMinutes: 15}

	segs := buildSegments("sh1", 480, 1020, tmpl, plan)
	assertTiled(t, segs, 480, 1020)

	var lunch *model.ShiftSegment
	var breaks []model.ShiftSegment
	for i, s := range segs {
		switch s.Type {
		case model.SegmentLunch:
			lunch = &segs[i]
		case model.SegmentBreak:
			breaks = append(breaks, s)
		}
	}
	require.NotNil(t, lunch)
	require.Len(t, breaks, 2)
	for _, b := range breaks {
		overlap := b.StartMinute < lunch.EndMinute && lunch.StartMinute < b.EndMinute
		assert.False(t, overlap, "break %d..%d overlaps lunch %d..%d", b.StartMinute, b.EndMinute, lunch.StartMinute, lunch.EndMinute)
	}
}

func TestBuildSegmentsLunchClampedToShift(t *testing.T) {
	// Lunch window reaches past the end of the shift; the lunch must stay
	// inside the shift regardless.
	plan := model.SchedulePlan{
		LunchWindowStart: 500,
		LunchWindowEnd:   600,
	}
	tmpl := model.ShiftTemplate{ID: "tmpl-day", PaidMinutes: 480, UnpaidMinutes: 60}

	segs := buildSegments("sh1", 480, 1020, tmpl, plan)
	assertTiled(t, segs, 480, 1020)
	for _, s := range segs {
		assert.GreaterOrEqual(t, s.StartMinute, 480)
		assert.LessOrEqual(t, s.EndMinute, 1020)
	}
}
