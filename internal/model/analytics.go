package model

// TimeRange selects how many days of usage to summarize.
type TimeRange string

const (
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// DailyUsage is the usage of one day.
type DailyUsage struct {
	Date    string `json:"date"`
	Tokens  int    `json:"tokens"`
	Queries int    `json:"queries"`
}

// UserUsage is the usage attributed to one user.
type UserUsage struct {
	Name    string `json:"name"`
	Tokens  int    `json:"tokens"`
	Queries int    `json:"queries"`
}

// Share is a named percentage slice.
type Share struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// AnalyticsSummary is the dashboard view for a time range.
type AnalyticsSummary struct {
	Range             TimeRange    `json:"range"`
	Days              []DailyUsage `json:"days"`
	TotalTokens       int          `json:"total_tokens"`
	TotalQueries      int          `json:"total_queries"`
	AvgTokensPerQuery int          `json:"avg_tokens_per_query"`
	Users             []UserUsage  `json:"users"`
	KnowledgeSources  []Share      `json:"knowledge_sources"`
	QueryTypes        []Share      `json:"query_types"`
}
