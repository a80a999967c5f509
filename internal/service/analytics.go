package service

import (
	"math"

	"github.com/telivi-ai/knowledge-assistant/internal/model"
)

// Analytics serves the usage dashboard from a fixed dataset.
type Analytics struct {
	daily   []model.DailyUsage
	users   []model.UserUsage
	sources []model.Share
	queries []model.Share
}

// NewAnalytics returns analytics over the demo dataset.
func NewAnalytics() *Analytics {
	return &Analytics{
		daily:   usageData,
		users:   userUsageData,
		sources: knowledgeSourceData,
		queries: queryTypeData,
	}
}

// RangeDays returns how many trailing days r covers. Unknown ranges mean
// a week.
func RangeDays(r model.TimeRange) int {
	switch r {
	case model.RangeDay:
		return 1
	case model.RangeMonth:
		return 30
	case model.RangeYear:
		return 365
	default:
		return 7
	}
}

// Summary aggregates the last days of usage covered by r.
func (a *Analytics) Summary(r model.TimeRange) model.AnalyticsSummary {
	switch r {
	case model.RangeDay, model.RangeWeek, model.RangeMonth, model.RangeYear:
	default:
		r = model.RangeWeek
	}

	n := RangeDays(r)
	if n > len(a.daily) {
		n = len(a.daily)
	}
	days := make([]model.DailyUsage, n)
	copy(days, a.daily[len(a.daily)-n:])

	var tokens, queries int
	for _, d := range days {
		tokens += d.Tokens
		queries += d.Queries
	}

	avg := 0
	if queries > 0 {
		avg = int(math.Round(float64(tokens) / float64(queries)))
	}

	return model.AnalyticsSummary{
		Range:             r,
		Days:              days,
		TotalTokens:       tokens,
		TotalQueries:      queries,
		AvgTokensPerQuery: avg,
		Users:             append([]model.UserUsage(nil), a.users...),
		KnowledgeSources:  append([]model.Share(nil), a.sources...),
		QueryTypes:        append([]model.Share(nil), a.queries...),
	}
}

var usageData = []model.DailyUsage{
	{Date: "2023-05-01", Tokens: 2500, Queries: 120},
	{Date: "2023-05-02", Tokens: 3200, Queries: 145},
	{Date: "2023-05-03", Tokens: 2800, Queries: 130},
	{Date: "2023-05-04", Tokens: 3600, Queries: 160},
	{Date: "2023-05-05", Tokens: 4100, Queries: 180},
	{Date: "2023-05-06", Tokens: 3800, Queries: 170},
	{Date: "2023-05-07", Tokens: 2900, Queries: 135},
	{Date: "2023-05-08", Tokens: 3500, Queries: 155},
	{Date: "2023-05-09", Tokens: 4300, Queries: 190},
	{Date: "2023-05-10", Tokens: 4000, Queries: 175},
	{Date: "2023-05-11", Tokens: 3700, Queries: 165},
	{Date: "2023-05-12", Tokens: 4200, Queries: 185},
	{Date: "2023-05-13", Tokens: 3900, Queries: 172},
	{Date: "2023-05-14", Tokens: 3100, Queries: 140},
}

var userUsageData = []model.UserUsage{
	{Name: "John Doe", Tokens: 12500, Queries: 520},
	{Name: "Jane Smith", Tokens: 9800, Queries: 410},
	{Name: "Michael Brown", Tokens: 15300, Queries: 620},
	{Name: "Sarah Johnson", Tokens: 7200, Queries: 310},
	{Name: "Mark Wilson", Tokens: 5400, Queries: 240},
}

var knowledgeSourceData = []model.Share{
	{Name: "Confluence", Value: 45},
	{Name: "Jira", Value: 25},
	{Name: "SharePoint", Value: 20},
	{Name: "GitHub", Value: 10},
}

var queryTypeData = []model.Share{
	{Name: "Technical Documentation", Value: 35},
	{Name: "Project Management", Value: 25},
	{Name: "HR Policies", Value: 15},
	{Name: "Sales Materials", Value: 15},
	{Name: "Other", Value: 10},
}
