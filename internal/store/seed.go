package store

import "staffplan/internal/model"

// SeedDemo loads a small demo dataset: one voice campaign with a week-long
// plan, a mixed-skill staff pool, and both optimization methods. Enabled by
// default for the memory store so the API is usable out of the box.
func (m *Memory) SeedDemo() {
	m.AddSkill(model.Skill{ID: "skill-sales", Name: "Outbound Sales", Type: "voice"})
	m.AddSkill(model.Skill{ID: "skill-support", Name: "Customer Support", Type: "voice"})
	m.AddSkill(model.Skill{ID: "skill-chat", Name: "Live Chat", Type: "chat"})

	m.AddCampaign(model.Campaign{
		ID:          "camp-demo",
		Name:        "Summer Voice Campaign",
		ChannelType: "voice",
		ScenarioID:  "scen-demo",
	})

	m.AddShiftTemplate(model.ShiftTemplate{
		ID:            "tmpl-day",
		Name:          "Standard Day",
		PaidMinutes:   480,
		UnpaidMinutes: 60,
		BreakCount:    2,
		BreakMinutes:  15,
	})

	m.AddSchedulePlan(model.SchedulePlan{
		ID:               "plan-demo",
		CampaignID:       "camp-demo",
		Name:             "Demo Week",
		StartDate:        "2025-06-02",
		EndDate:          "2025-06-06",
		IntervalMinutes:  30,
		DayStartMinute:   480,
		DayEndMinute:     1200,
		ShiftTemplateID:  "tmpl-day",
		MaxWeeklyHours:   40,
		MinRestHours:     11,
		AllowSkillSwitch: true,
		BreakWindowStart: 60,
		BreakWindowEnd:   420,
		LunchWindowStart: 180,
		LunchWindowEnd:   300,
		HourlyCost:       22.5,
	})

	m.AddOptimizationMethod(model.OptimizationMethod{ID: "method-greedy", Name: "Greedy Coverage", EnforceConstraints: false})
	m.AddOptimizationMethod(model.OptimizationMethod{ID: "method-constrained", Name: "Constraint Guard", EnforceConstraints: true})

	staff := []model.Staff{
		{ID: "staff-01", Name: "Ana Flores"},
		{ID: "staff-02", Name: "Ben Ortiz"},
		{ID: "staff-03", Name: "Carla Stone"},
		{ID: "staff-04", Name: "Dev Patel"},
		{ID: "staff-05", Name: "Elena Brooks"},
		{ID: "staff-06", Name: "Femi Ade"},
		{ID: "staff-07", Name: "Grace Lin"},
		{ID: "staff-08", Name: "Hugo Meyer"},
	}
	for _, s := range staff {
		m.AddStaff(s)
	}
	links := []model.StaffSkill{
		{StaffID: "staff-01", SkillID: "skill-sales"},
		{StaffID: "staff-02", SkillID: "skill-sales"},
		{StaffID: "staff-03", SkillID: "skill-support"},
		{StaffID: "staff-04", SkillID: "skill-support"},
		{StaffID: "staff-05", SkillID: "skill-sales"},
		{StaffID: "staff-05", SkillID: "skill-support"},
		{StaffID: "staff-06", SkillID: "skill-sales"},
		{StaffID: "staff-06", SkillID: "skill-support"},
		{StaffID: "staff-06", SkillID: "skill-chat"},
		{StaffID: "staff-07", SkillID: "skill-chat"},
		{StaffID: "staff-08", SkillID: "skill-support"},
		{StaffID: "staff-08", SkillID: "skill-chat"},
	}
	for _, l := range links {
		m.AddStaffSkill(l)
	}

	volumes := map[string]float64{
		"2025-06-02": 1800,
		"2025-06-03": 2100,
		"2025-06-04": 1950,
		"2025-06-05": 2250,
		"2025-06-06": 1700,
	}
	for date, vol := range volumes {
		m.AddForecast(model.Forecast{
			ID:         "fc-demo-" + date,
			ScenarioID: "scen-demo",
			Date:       date,
			Volume:     vol,
			AHTSeconds: 210,
		})
	}
}
