package mcp

import (
	"context"
	"log/slog"

	"github.com/claude/healthdash/internal/aggregate"
	"github.com/claude/healthdash/internal/query"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("HealthDash", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("HealthDash personal health data server. Query workout activity series, sleep, steps, heart rate, summary statistics, and personal records computed from an Apple Health export. All data is read-only."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListActivities, Handler: h.listActivities},
		server.ServerTool{Tool: toolGetActivitySeries, Handler: h.getActivitySeries},
		server.ServerTool{Tool: toolGetSleepSeries, Handler: h.getSleepSeries},
		server.ServerTool{Tool: toolGetStepsSeries, Handler: h.getStepsSeries},
		server.ServerTool{Tool: toolGetHeartRateSeries, Handler: h.getHeartRateSeries},
		server.ServerTool{Tool: toolGetSummaryStats, Handler: h.getSummaryStats},
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resActivityCatalog, Handler: h.activityCatalog},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// toolRange reads the optional start_date/end_date arguments. Missing or
// unparseable values mean unbounded, matching the REST API.
func toolRange(req mcp.CallToolRequest) query.DateRange {
	return query.ParseDateRange(req.GetString("start_date", ""), req.GetString("end_date", ""))
}

func toolGranularity(req mcp.CallToolRequest) aggregate.Granularity {
	return aggregate.ParseGranularity(req.GetString("granularity", ""))
}

// --- Tool definitions ---

var toolListActivities = mcp.NewTool("list_activities",
	mcp.WithDescription("List all workout activity types present in the processed export (e.g. Running, Cycling). Continuous signals like sleep and steps have their own tools."),
)

var toolGetActivitySeries = mcp.NewTool("get_activity_series",
	mcp.WithDescription("Aggregated time series for one activity, or 'Total' for all activities combined. Returns per-year labels with count, duration (minutes), energy (kcal), and distance datasets."),
	mcp.WithString("activity", mcp.Required(), mcp.Description("Activity name from list_activities, or 'Total'")),
	mcp.WithString("granularity", mcp.Description("Bucket size. Defaults to monthly."), mcp.Enum("monthly", "daily")),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD). Defaults to unbounded.")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD). Defaults to unbounded.")),
	mcp.WithBoolean("group_by_category", mcp.Description("Split datasets into Strength Training vs Cardio groups alongside the total")),
)

var toolGetSleepSeries = mcp.NewTool("get_sleep_series",
	mcp.WithDescription("Sleep time series with asleep, in_bed, and awake minutes per bucket."),
	mcp.WithString("granularity", mcp.Description("Bucket size. Defaults to monthly."), mcp.Enum("monthly", "daily")),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD)")),
)

var toolGetStepsSeries = mcp.NewTool("get_steps_series",
	mcp.WithDescription("Step count time series with steps and count datasets per bucket."),
	mcp.WithString("granularity", mcp.Description("Bucket size. Defaults to monthly."), mcp.Enum("monthly", "daily")),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD)")),
)

var toolGetHeartRateSeries = mcp.NewTool("get_heart_rate_series",
	mcp.WithDescription("Heart rate time series with avg, min, and max BPM per bucket."),
	mcp.WithString("granularity", mcp.Description("Bucket size. Defaults to monthly."), mcp.Enum("monthly", "daily")),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD)")),
)

var toolGetSummaryStats = mcp.NewTool("get_summary_stats",
	mcp.WithDescription("Overall workout totals: count, total/average duration, energy, distance, and workouts per week/month over the observed span."),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD)")),
)

var toolGetPersonalRecords = mcp.NewTool("get_personal_records",
	mcp.WithDescription("Personal records: longest workout, most active month, and longest/current daily workout streaks. Streaks always consider the full history."),
	mcp.WithString("start_date", mcp.Description("Inclusive start date for the bests (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date for the bests (YYYY-MM-DD)")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("Paginated individual workouts, newest first, with activity, date, duration, energy, and distance."),
	mcp.WithString("activity", mcp.Description("Filter to one activity. Defaults to all.")),
	mcp.WithString("start_date", mcp.Description("Inclusive start date (YYYY-MM-DD)")),
	mcp.WithString("end_date", mcp.Description("Inclusive end date (YYYY-MM-DD)")),
	mcp.WithNumber("page", mcp.Description("Page number, starting at 1")),
	mcp.WithNumber("per_page", mcp.Description("Workouts per page. Defaults to 50.")),
)

// --- Tool handlers ---

func (h *handlers) listActivities(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	activities, err := h.ds.Activities()
	if err != nil {
		h.log.Error("mcp list_activities", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if activities == nil {
		activities = []string{}
	}

	result, err := mcp.NewToolResultJSON(activities)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getActivitySeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	activity, err := req.RequireString("activity")
	if err != nil {
		return mcp.NewToolResultError("activity parameter is required"), nil
	}

	series, err := h.ds.Series(query.SeriesQuery{
		Activity:        activity,
		Range:           toolRange(req),
		Granularity:     toolGranularity(req),
		GroupByCategory: req.GetBool("group_by_category", false),
	})
	if err != nil {
		h.log.Error("mcp get_activity_series", "activity", activity, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSleepSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	series, err := h.ds.Sleep(toolRange(req), toolGranularity(req))
	if err != nil {
		h.log.Error("mcp get_sleep_series", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getStepsSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	series, err := h.ds.Steps(toolRange(req), toolGranularity(req))
	if err != nil {
		h.log.Error("mcp get_steps_series", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getHeartRateSeries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	series, err := h.ds.HeartRate(toolRange(req), toolGranularity(req))
	if err != nil {
		h.log.Error("mcp get_heart_rate_series", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(series)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSummaryStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summary, err := h.ds.Summary(toolRange(req))
	if err != nil {
		h.log.Error("mcp get_summary_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getPersonalRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := h.ds.Records(toolRange(req))
	if err != nil {
		h.log.Error("mcp get_personal_records", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(records)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	perPage := req.GetInt("per_page", query.DefaultPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = query.DefaultPerPage
	}

	workouts, err := h.ds.Workouts(req.GetString("activity", ""), toolRange(req), page, perPage)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(workouts)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
