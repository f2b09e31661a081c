package roster

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"staffplan/internal/model"
)

// demand is the coverage requirement set bucketed for assignment: interval
// grids per date plus the peak concurrent requirement per (date, skill).
type demand struct {
	dates    []string
	starts   map[string][]int                  // date -> sorted interval starts
	interval int                               // minutes per interval
	required map[string]map[int]map[string]int // date -> start -> skillId -> agents
	peak     map[string]map[string]int         // date -> skillId -> max concurrent agents
}

func buildDemand(plan model.SchedulePlan, rows []model.CoverageRequirement) demand {
	dm := demand{
		starts:   map[string][]int{},
		required: map[string]map[int]map[string]int{},
		peak:     map[string]map[string]int{},
		interval: plan.IntervalMinutes,
	}
	if dm.interval <= 0 && len(rows) > 0 {
		dm.interval = rows[0].EndMinute - rows[0].StartMinute
	}
	if dm.interval <= 0 {
		dm.interval = 30
	}

	seenStart := map[string]map[int]bool{}
	for _, r := range rows {
		if dm.required[r.Date] == nil {
			dm.dates = append(dm.dates, r.Date)
			dm.required[r.Date] = map[int]map[string]int{}
			dm.peak[r.Date] = map[string]int{}
			seenStart[r.Date] = map[int]bool{}
		}
		if !seenStart[r.Date][r.StartMinute] {
			seenStart[r.Date][r.StartMinute] = true
			dm.starts[r.Date] = append(dm.starts[r.Date], r.StartMinute)
		}
		if dm.required[r.Date][r.StartMinute] == nil {
			dm.required[r.Date][r.StartMinute] = map[string]int{}
		}
		dm.required[r.Date][r.StartMinute][r.SkillID] = r.RequiredAgents
		if r.RequiredAgents > dm.peak[r.Date][r.SkillID] {
			dm.peak[r.Date][r.SkillID] = r.RequiredAgents
		}
	}
	sort.Strings(dm.dates)
	for d := range dm.starts {
		sort.Ints(dm.starts[d])
	}
	return dm
}

type weekKey struct{ year, week int }

func weekOf(date string) weekKey {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return weekKey{}
	}
	y, w := t.ISOWeek()
	return weekKey{y, w}
}

func dateAt(date string, minute int) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}
	}
	return t.Add(time.Duration(minute) * time.Minute)
}

// assignment carries the mutable state of one run: produced shifts and
// segments, the coverage bookkeeping, and the per-staff rest and weekly
// hour trackers.
type assignment struct {
	run    model.ScheduleRun
	plan   model.SchedulePlan
	tmpl   model.ShiftTemplate
	method model.OptimizationMethod
	dm     demand
	pool   []candidate
	policy RankPolicy
	log    zerolog.Logger

	shifts     []model.Shift
	segments   []model.ShiftSegment
	violations []model.ScheduleViolation
	covered    map[string]map[int]map[string]int // date -> start -> skillId -> minutes
	weeklyPaid map[string]map[weekKey]int        // staffId -> ISO week -> paid minutes
	lastEnd    map[string]time.Time              // staffId -> last shift end
	totalPaid  int
}

func newAssignment(run model.ScheduleRun, plan model.SchedulePlan, tmpl model.ShiftTemplate,
	method model.OptimizationMethod, dm demand, pool []candidate, lg zerolog.Logger) *assignment {
	policy := PreferSpecialists
	if plan.AllowSkillSwitch {
		policy = PreferGeneralists
	}
	return &assignment{
		run:        run,
		plan:       plan,
		tmpl:       tmpl,
		method:     method,
		dm:         dm,
		pool:       pool,
		policy:     policy,
		log:        lg,
		violations: []model.ScheduleViolation{},
		covered:    map[string]map[int]map[string]int{},
		weeklyPaid: map[string]map[weekKey]int{},
		lastEnd:    map[string]time.Time{},
	}
}

// assignAll walks the plan dates in order. Per date, skills are served by
// descending peak requirement; each opening takes ranked candidates until
// the peak headcount is reached or the pool runs dry. A staff member works
// at most one shift per date.
func (a *assignment) assignAll() {
	for _, date := range a.dm.dates {
		starts := a.dm.starts[date]
		if len(starts) == 0 {
			continue
		}
		shiftStart := starts[0]
		shiftEnd := shiftStart + a.tmpl.PaidMinutes + a.tmpl.UnpaidMinutes
		startAt := dateAt(date, shiftStart)
		endAt := dateAt(date, shiftEnd)
		taken := map[string]bool{}

		for _, skillID := range a.skillOrder(date) {
			target := a.dm.peak[date][skillID]
			if target <= 0 {
				continue
			}
			cands := candidatesFor(a.pool, skillID, taken)
			rankCandidates(cands, a.policy)
			assigned := 0
			for _, c := range cands {
				if assigned >= target {
					break
				}
				if a.tryAssign(c, skillID, date, shiftStart, shiftEnd, startAt, endAt, taken) {
					assigned++
				}
			}
		}
	}
}

// skillOrder sorts a date's demanded skills by descending peak need, skill
// id ascending on ties.
func (a *assignment) skillOrder(date string) []string {
	peaks := a.dm.peak[date]
	out := make([]string, 0, len(peaks))
	for skill := range peaks {
		out = append(out, skill)
	}
	sort.Slice(out, func(i, j int) bool {
		if peaks[out[i]] != peaks[out[j]] {
			return peaks[out[i]] > peaks[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func (a *assignment) tryAssign(c candidate, skillID, date string, shiftStart, shiftEnd int, startAt, endAt time.Time, taken map[string]bool) bool {
	wk := weekOf(date)
	projected := a.weeklyPaid[c.staffID][wk] + a.tmpl.PaidMinutes
	maxWeekly := int(a.plan.MaxWeeklyHours * 60)
	weeklyOK := maxWeekly <= 0 || projected <= maxWeekly

	restOK := true
	restGap := 0.0
	if last, ok := a.lastEnd[c.staffID]; ok {
		restGap = startAt.Sub(last).Hours()
		restOK = restGap >= a.plan.MinRestHours
	}

	if a.method.EnforceConstraints && (!restOK || !weeklyOK) {
		a.log.Debug().Str("staffId", c.staffID).Str("date", date).
			Bool("restOk", restOK).Bool("weeklyOk", weeklyOK).
			Msg("candidate skipped by constraints")
		return false
	}
	if !restOK {
		a.violations = append(a.violations, model.ScheduleViolation{
			RunID:   a.run.ID,
			StaffID: c.staffID,
			Date:    date,
			Type:    model.ViolationRest,
			Details: fmt.Sprintf("rest gap %.1fh below minimum %.1fh", restGap, a.plan.MinRestHours),
		})
	}
	if !weeklyOK {
		a.violations = append(a.violations, model.ScheduleViolation{
			RunID:   a.run.ID,
			StaffID: c.staffID,
			Date:    date,
			Type:    model.ViolationWeeklyHours,
			Details: fmt.Sprintf("projected %d paid minutes exceeds weekly cap %d", projected, maxWeekly),
		})
	}

	shift := model.Shift{
		ID:          uuid.New().String(),
		RunID:       a.run.ID,
		StaffID:     c.staffID,
		TemplateID:  a.tmpl.ID,
		Date:        date,
		StartMinute: shiftStart,
		EndMinute:   shiftEnd,
	}
	segs := buildSegments(shift.ID, shiftStart, shiftEnd, a.tmpl, a.plan)
	segs = a.attributeWork(segs, c, skillID, date)

	a.shifts = append(a.shifts, shift)
	a.segments = append(a.segments, segs...)
	if a.weeklyPaid[c.staffID] == nil {
		a.weeklyPaid[c.staffID] = map[weekKey]int{}
	}
	a.weeklyPaid[c.staffID][wk] = projected
	a.lastEnd[c.staffID] = endAt
	a.totalPaid += a.tmpl.PaidMinutes
	taken[c.staffID] = true
	return true
}

// attributeWork fills in skill ids on the shift's work blocks and books the
// covered minutes. With skill switching the blocks are sliced at interval
// boundaries and each slice goes to the candidate's skill with the largest
// remaining shortfall; otherwise whole blocks carry the primary skill.
func (a *assignment) attributeWork(segs []model.ShiftSegment, c candidate, primary, date string) []model.ShiftSegment {
	out := make([]model.ShiftSegment, 0, len(segs))
	for _, seg := range segs {
		if seg.Type != model.SegmentWork {
			out = append(out, seg)
			continue
		}
		if !a.plan.AllowSkillSwitch {
			seg.SkillID = primary
			a.addCovered(date, seg.StartMinute, seg.EndMinute, primary)
			out = append(out, seg)
			continue
		}
		out = append(out, a.sliceWork(seg, c, primary, date)...)
	}
	return out
}

// sliceWork splits a work block at interval boundaries, choosing a skill
// per slice. Consecutive slices with the same skill merge back into one
// segment.
func (a *assignment) sliceWork(seg model.ShiftSegment, c candidate, primary, date string) []model.ShiftSegment {
	interval := a.dm.interval
	base := a.dm.starts[date][0]
	out := []model.ShiftSegment{}
	cur := seg.StartMinute
	for cur < seg.EndMinute {
		next := base + ((cur-base)/interval+1)*interval
		if next > seg.EndMinute {
			next = seg.EndMinute
		}
		skill := a.pickSkill(c, primary, date, cur)
		a.addCovered(date, cur, next, skill)
		if n := len(out); n > 0 && out[n-1].SkillID == skill && out[n-1].EndMinute == cur {
			out[n-1].EndMinute = next
		} else {
			out = append(out, model.ShiftSegment{
				ID:          uuid.New().String(),
				ShiftID:     seg.ShiftID,
				Type:        model.SegmentWork,
				StartMinute: cur,
				EndMinute:   next,
				SkillID:     skill,
				Paid:        true,
			})
		}
		cur = next
	}
	return out
}

// pickSkill returns the candidate's skill with the largest positive
// shortfall in the interval containing minute, defaulting to the primary
// skill. Candidate skills are sorted, so ties resolve deterministically.
func (a *assignment) pickSkill(c candidate, primary, date string, minute int) string {
	start := a.intervalStart(date, minute)
	best := primary
	bestShort := a.shortfall(date, start, primary)
	for _, skill := range c.skills {
		if skill == primary {
			continue
		}
		if _, demanded := a.dm.required[date][start][skill]; !demanded {
			continue
		}
		if sh := a.shortfall(date, start, skill); sh > bestShort {
			best, bestShort = skill, sh
		}
	}
	if bestShort <= 0 {
		return primary
	}
	return best
}

func (a *assignment) intervalStart(date string, minute int) int {
	base := a.dm.starts[date][0]
	if minute < base {
		return base
	}
	return base + (minute-base)/a.dm.interval*a.dm.interval
}

func (a *assignment) shortfall(date string, start int, skill string) int {
	req := a.dm.required[date][start][skill] * a.dm.interval
	return req - a.covered[date][start][skill]
}

// addCovered books worked minutes against every demand interval the span
// overlaps. Minutes outside the demand grid do not count toward coverage.
func (a *assignment) addCovered(date string, from, to int, skill string) {
	interval := a.dm.interval
	for _, st := range a.dm.starts[date] {
		lo := max(from, st)
		hi := min(to, st+interval)
		if hi <= lo {
			continue
		}
		if a.covered[date] == nil {
			a.covered[date] = map[int]map[string]int{}
		}
		if a.covered[date][st] == nil {
			a.covered[date][st] = map[string]int{}
		}
		a.covered[date][st][skill] += hi - lo
	}
}
