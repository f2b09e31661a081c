package coverage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffplan/internal/model"
	"staffplan/internal/store"
)

func baseRequest() model.CalcRequest {
	return model.CalcRequest{
		Workload:    model.WorkloadInput{Volume: 100, AHTSeconds: 210, IntervalMinutes: 30},
		Constraints: model.ServiceConstraints{TargetSLPercent: 80, ThresholdSeconds: 20, MaxOccupancy: 85},
		Behavior:    model.BehaviorParams{ShrinkagePercent: 30},
	}
}

func TestWeightCurve(t *testing.T) {
	w := weightCurve(24)
	require.Len(t, w, 24)

	sum := 0.0
	peak := 0
	for i, v := range w {
		assert.Greater(t, v, 0.0)
		sum += v
		if v > w[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// The morning peak sits around 30% of the day.
	assert.GreaterOrEqual(t, peak, 5)
	assert.LessOrEqual(t, peak, 9)
	assert.Greater(t, w[peak], w[0])
	assert.Greater(t, w[peak], w[23])

	assert.Nil(t, weightCurve(0))
}

func TestGenerateDemoPlan(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	g := NewGenerator(m)

	rows, err := g.Generate(context.Background(), "plan-demo", baseRequest())
	require.NoError(t, err)

	// 5 dates x 24 intervals x 2 voice skills.
	assert.Len(t, rows, 240)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.StartMinute, 480)
		assert.LessOrEqual(t, r.EndMinute, 1200)
		assert.Equal(t, 30, r.EndMinute-r.StartMinute)
		assert.Contains(t, []string{"skill-sales", "skill-support"}, r.SkillID)
		assert.NotEmpty(t, r.SourceForecastID, "every demo date has a forecast")
		assert.GreaterOrEqual(t, r.RequiredAgents, 1)
	}

	stored, err := m.GetCoverageRequirements(context.Background(), "plan-demo")
	require.NoError(t, err)
	assert.Len(t, stored, 240)
}

func TestGenerateIdempotent(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	g := NewGenerator(m)
	ctx := context.Background()

	first, err := g.Generate(ctx, "plan-demo", baseRequest())
	require.NoError(t, err)
	second, err := g.Generate(ctx, "plan-demo", baseRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second, "same inputs must produce the same rows")
	stored, _ := m.GetCoverageRequirements(ctx, "plan-demo")
	assert.Len(t, stored, len(first), "regeneration replaces, never accumulates")
}

func TestGenerateReplacesOnVolumeChange(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	g := NewGenerator(m)
	ctx := context.Background()

	req := baseRequest()
	_, err := g.Generate(ctx, "plan-demo", req)
	require.NoError(t, err)
	before, _ := m.GetCoverageRequirements(ctx, "plan-demo")

	// Forecast volumes win over the base volume, so shrink the base AHT
	// instead to move the numbers.
	req.Workload.AHTSeconds = 60
	_, err = g.Generate(ctx, "plan-demo", req)
	require.NoError(t, err)
	after, _ := m.GetCoverageRequirements(ctx, "plan-demo")

	require.Len(t, after, len(before))
	lighter := 0
	for i := range after {
		if after[i].RequiredAgents < before[i].RequiredAgents {
			lighter++
		}
	}
	assert.Greater(t, lighter, 0, "shorter handle time must lower requirements somewhere")
}

func TestGenerateFallbackWithoutForecasts(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	m.AddCampaign(model.Campaign{ID: "camp-plain", Name: "No Forecast", ChannelType: "chat"})
	m.AddSchedulePlan(model.SchedulePlan{
		ID: "plan-plain", CampaignID: "camp-plain", StartDate: "2025-06-02", EndDate: "2025-06-03",
		IntervalMinutes: 30, DayStartMinute: 480, DayEndMinute: 1200, ShiftTemplateID: "tmpl-day",
		MaxWeeklyHours: 40, MinRestHours: 11,
	})
	g := NewGenerator(m)

	rows, err := g.Generate(context.Background(), "plan-plain", baseRequest())
	require.NoError(t, err)

	// 2 dates x 24 intervals x 1 chat skill.
	assert.Len(t, rows, 48)
	for _, r := range rows {
		assert.Equal(t, "skill-chat", r.SkillID)
		assert.Empty(t, r.SourceForecastID)
		assert.GreaterOrEqual(t, r.RequiredAgents, 1)
	}
}

func TestGenerateZeroVolume(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	m.AddCampaign(model.Campaign{ID: "camp-idle", Name: "Idle", ChannelType: "chat"})
	m.AddSchedulePlan(model.SchedulePlan{
		ID: "plan-idle", CampaignID: "camp-idle", StartDate: "2025-06-02", EndDate: "2025-06-02",
		IntervalMinutes: 30, DayStartMinute: 480, DayEndMinute: 1200,
	})
	g := NewGenerator(m)

	req := baseRequest()
	req.Workload.Volume = 0
	rows, err := g.Generate(context.Background(), "plan-idle", req)
	require.NoError(t, err)
	require.Len(t, rows, 24)
	for _, r := range rows {
		assert.Equal(t, 0, r.RequiredAgents, "no volume means no coverage floor")
	}
}

func TestGenerateUnknownPlan(t *testing.T) {
	m := store.NewMemory()
	g := NewGenerator(m)

	_, err := g.Generate(context.Background(), "nope", baseRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGenerateBadInputs(t *testing.T) {
	m := store.NewMemory()
	m.SeedDemo()
	g := NewGenerator(m)

	req := baseRequest()
	req.Constraints.ThresholdSeconds = 0
	_, err := g.Generate(context.Background(), "plan-demo", req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thresholdSeconds")
}

func TestDateRange(t *testing.T) {
	dates, err := dateRange("2025-06-02", "2025-06-06")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05", "2025-06-06"}, dates)

	_, err = dateRange("2025-06-06", "2025-06-02")
	assert.Error(t, err)

	_, err = dateRange("2025-01-01", "2025-12-31")
	assert.Error(t, err, "ranges beyond the cap are rejected")

	_, err = dateRange("junk", "2025-06-02")
	assert.Error(t, err)
}
