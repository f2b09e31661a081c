// Package coverage expands a schedule plan into per-interval, per-skill
// agent requirements by running the staffing engine over a distributed
// daily volume.
package coverage

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staffplan/internal/model"
	"staffplan/internal/staffing"
	"staffplan/internal/store"
)

const maxPlanDays = 92

type Generator struct {
	store store.Store
	log   zerolog.Logger
}

func NewGenerator(st store.Store) *Generator {
	return &Generator{store: st, log: log.With().Str("component", "coverage").Logger()}
}

// Generate replaces the plan's coverage requirements. Daily volume comes
// from the campaign scenario's forecast when one exists for the date;
// otherwise the base workload volume is scaled to a full day. The base
// request's constraints and behavior apply to every interval.
func (g *Generator) Generate(ctx context.Context, planID string, base model.CalcRequest) ([]model.CoverageRequirement, error) {
	plan, err := g.store.GetSchedulePlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", planID, err)
	}
	campaign, err := g.store.GetCampaign(ctx, plan.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign %s: %w", plan.CampaignID, err)
	}

	interval := plan.IntervalMinutes
	if interval <= 0 {
		interval = 30
	}
	span := plan.DayEndMinute - plan.DayStartMinute
	intervals := span / interval
	if intervals <= 0 {
		return nil, fmt.Errorf("plan %s has no schedulable interval window", planID)
	}

	dates, err := dateRange(plan.StartDate, plan.EndDate)
	if err != nil {
		return nil, err
	}

	skills, err := g.matchedSkills(ctx, campaign)
	if err != nil {
		return nil, err
	}

	forecasts := map[string]model.Forecast{}
	if campaign.ScenarioID != "" {
		fs, err := g.store.GetForecasts(ctx, campaign.ScenarioID, plan.StartDate, plan.EndDate)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			forecasts[f.Date] = f
		}
	}

	if campaign.Model != "" {
		base.Model = campaign.Model
	}
	base.Workload.IntervalMinutes = interval

	weights := weightCurve(intervals)
	rows := make([]model.CoverageRequirement, 0, len(dates)*intervals*len(skills))
	for _, date := range dates {
		daily := base.Workload.Volume * float64(intervals)
		aht := base.Workload.AHTSeconds
		sourceID := ""
		if f, ok := forecasts[date]; ok {
			daily = f.Volume
			if f.AHTSeconds > 0 {
				aht = f.AHTSeconds
			}
			sourceID = f.ID
		}
		for i := 0; i < intervals; i++ {
			req := base
			req.Workload.Volume = daily * weights[i] / float64(len(skills))
			req.Workload.AHTSeconds = aht
			res := staffing.Calculate(req)
			if len(res.Errors) > 0 {
				return nil, fmt.Errorf("staffing inputs: %s: %s", res.Errors[0].Field, res.Errors[0].Message)
			}
			agents := 0
			if res.Required.TotalFTE > 0 {
				agents = int(math.Ceil(res.Required.TotalFTE))
				if agents < 1 {
					agents = 1
				}
			}
			start := plan.DayStartMinute + i*interval
			for _, sk := range skills {
				rows = append(rows, model.CoverageRequirement{
					PlanID:           planID,
					Date:             date,
					StartMinute:      start,
					EndMinute:        start + interval,
					SkillID:          sk.ID,
					RequiredAgents:   agents,
					SourceForecastID: sourceID,
				})
			}
		}
	}

	if err := g.store.ReplaceCoverageRequirements(ctx, planID, rows); err != nil {
		return nil, err
	}
	g.log.Info().Str("planId", planID).Int("dates", len(dates)).Int("skills", len(skills)).
		Int("rows", len(rows)).Msg("coverage requirements replaced")
	return rows, nil
}

// matchedSkills returns the skills whose type matches the campaign channel,
// falling back to all skills when nothing matches.
func (g *Generator) matchedSkills(ctx context.Context, campaign model.Campaign) ([]model.Skill, error) {
	skills, err := g.store.GetSkills(ctx)
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return nil, fmt.Errorf("no skills configured")
	}
	if campaign.ChannelType == "" {
		return skills, nil
	}
	matched := []model.Skill{}
	for _, s := range skills {
		if s.Type == campaign.ChannelType {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return skills, nil
	}
	return matched, nil
}

func dateRange(startDate, endDate string) ([]string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", endDate, startDate)
	}
	if end.Sub(start) > maxPlanDays*24*time.Hour {
		return nil, fmt.Errorf("plan range exceeds %d days", maxPlanDays)
	}
	dates := []string{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}
