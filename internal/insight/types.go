package insight

// Type tags the kind of report an insight concerns. The table below is the
// closed set of known types; unknown tags fall back to the generic prompt
// and an empty source list.
type Type string

const (
	TypeDashboard     Type = "dashboard"
	TypeSessions      Type = "sessions"
	TypeUsers         Type = "users"
	TypePageviews     Type = "pageviews"
	TypeConversions   Type = "conversions"
	TypeTraffic       Type = "traffic"
	TypeUTMCohort     Type = "utm-cohort"
	TypeKeywordCohort Type = "keyword-cohort"
	TypeUserJourney   Type = "user-journey"
	TypeWeeklyReport  Type = "weekly-report"
	TypeMonthlyReport Type = "monthly-report"
	TypePrediction    Type = "prediction"
	TypeSimulation    Type = "simulation"
	TypeComprehensive Type = "comprehensive"
)

// Upstream data source categories cited in an insight's dataSourceTypes.
const (
	SourceAnalytics     = "ga4"
	SourceSearchConsole = "gsc"
	SourceTagManager    = "gtm"
	SourceUTM           = "utm"
)

const genericPrompt = "Generate insights based on the key data provided."

type typeInfo struct {
	defaultPrompt string
	sources       []string
}

var typeTable = map[Type]typeInfo{
	TypeDashboard: {
		defaultPrompt: "The following is the main dashboard data. Based on the key metrics, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceTagManager, SourceSearchConsole},
	},
	TypeSessions: {
		defaultPrompt: "The following is session analysis data. Based on total sessions, average session duration, pages per session, bounce rate, sessions by hour, device and region, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypeUsers: {
		defaultPrompt: "The following is user analysis data. Based on total users, new users, returning users, new user ratio, acquisition channels, new vs returning trends, engagement and segmentation, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypePageviews: {
		defaultPrompt: "The following is pageview analysis data. Based on total pageviews, unique pageviews, average time on page, per-page conversion rate, top pages, views by category and page flow, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypeConversions: {
		defaultPrompt: "The following is conversion analysis data. Based on total conversions, conversion rate, conversion value, average order value, performance by conversion event and by traffic source, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceTagManager},
	},
	TypeTraffic: {
		defaultPrompt: "The following is traffic source analysis data. Based on sessions and conversions by source, medium and campaign, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceUTM},
	},
	TypeUTMCohort: {
		defaultPrompt: "The following is UTM cohort analysis data. Based on retention, conversion and LTV metrics, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceUTM},
	},
	TypeKeywordCohort: {
		defaultPrompt: "The following is keyword cohort analysis data. Based on impressions, clicks, conversions and retention per search term, summarize 3 insights and 2 improvement suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceSearchConsole},
	},
	TypeUserJourney: {
		defaultPrompt: "The following is user journey analysis data. Based on page transitions, dwell time, scroll depth, revisit rate, behavior patterns, entry paths and exit/conversion goals, summarize 3 key insights and 2 UX optimization suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypeWeeklyReport: {
		defaultPrompt: "The following is weekly report data. Write a weekly report covering the performance summary, key insights, areas to improve and what to watch next week.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceSearchConsole, SourceTagManager},
	},
	TypeMonthlyReport: {
		defaultPrompt: "The following is monthly report data. Write a monthly report covering the performance summary, main growth areas, areas to improve and next month's strategy.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics, SourceSearchConsole, SourceTagManager},
	},
	TypePrediction: {
		defaultPrompt: "The following is historical data. Predict upcoming trends from it and summarize 3 insights about the expected changes.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypeSimulation: {
		defaultPrompt: "The following is simulation data. Analyze the expected outcome of the given variable changes and summarize 3 simulation insights and 2 strategic suggestions.\n\nData: {weeklyData}",
		sources:       []string{SourceAnalytics},
	},
	TypeComprehensive: {
		defaultPrompt: "The following are previously generated insights per analysis area, each with its weekly trend where available. Synthesize them into one executive summary: overall performance, cross-cutting findings, and the 3 most important actions.\n\nInsights: {weeklyData}",
		sources:       nil,
	},
}

// defaultComprehensiveSources is the set of single-source types a
// comprehensive run aggregates when the caller does not narrow it.
var defaultComprehensiveSources = []string{
	string(TypeDashboard),
	string(TypeSessions),
	string(TypeUsers),
	string(TypePageviews),
	string(TypeConversions),
	string(TypeTraffic),
}

func defaultPrompt(t Type) string {
	if info, ok := typeTable[t]; ok {
		return info.defaultPrompt
	}
	return genericPrompt
}

// sourcesFor returns the upstream categories a single-source insight of this
// type always cites. Comprehensive insights derive theirs from the insights
// they aggregate instead.
func sourcesFor(t Type) []string {
	if info, ok := typeTable[t]; ok {
		return append([]string(nil), info.sources...)
	}
	return nil
}
