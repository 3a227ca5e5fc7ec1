package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

func newReportFixture(t *testing.T) (*ReportService, *fakeReportRepo, *model.Survey) {
	t.Helper()
	survey := msrSurvey()
	resolver := NewSurveyResolver(&fakeSurveyRepo{surveys: []*model.Survey{survey}}, nil)
	repo := &fakeReportRepo{}
	return NewReportService(repo, resolver, "Asia/Kolkata"), repo, survey
}

func TestParseWindow(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	w, err := ParseWindow("", "", ist)
	require.NoError(t, err)
	assert.Nil(t, w.Start)
	assert.Nil(t, w.End)

	w, err = ParseWindow("2025-01-01", "2025-01-31", ist)
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, ist)))
	assert.True(t, w.End.Equal(time.Date(2025, 1, 31, 23, 59, 59, 999000000, ist)))

	w, err = ParseWindow("2025-01-01T00:00:00Z", "", ist)
	require.NoError(t, err)
	assert.True(t, w.Start.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = ParseWindow("01/02/2025", "", ist)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseWindow("2025-02-01", "2025-01-01", ist)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportDimension(t *testing.T) {
	s := msrSurvey()
	resolved := resolvedFor(s)

	assert.Equal(t, repository.Dimension{Field: "parliament"}, ReportDimension(resolved, "parliament"))
	assert.Equal(t, repository.Dimension{Field: "village_or_street"}, ReportDimension(resolved, "village_or_street"))

	d := ReportDimension(resolved, "Q_SUPPORT")
	assert.Equal(t, []string{s.Questions[6].ID.Hex(), "q_support", "q7"}, d.QuestionIDs)

	d = ReportDimension(resolved, s.Questions[7].ID.Hex())
	assert.Equal(t, []string{s.Questions[7].ID.Hex(), "q8"}, d.QuestionIDs)

	d = ReportDimension(resolved, "retired_question")
	assert.Equal(t, []string{"retired_question"}, d.QuestionIDs)
}

func TestCrosstabDefaultsGroupBy(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	repo.crosstab = []model.CrosstabRow{{
		Group:               "Guntur",
		Answers:             []model.AnswerCount{{Answer: "A", Count: 2}},
		TotalGroupResponses: 2,
	}}

	report, err := svc.Crosstab(context.Background(), ReportQuery{
		SurveyID:   survey.ID.Hex(),
		QuestionID: "q_support",
		EndDate:    "2025-01-31",
	})
	require.NoError(t, err)
	assert.Equal(t, "parliament", report.GroupBy)
	assert.Equal(t, survey.ID.Hex(), report.SurveyID)
	assert.Len(t, report.Rows, 1)
	assert.Equal(t, repository.Dimension{Field: "parliament"}, repo.lastGroup)
	assert.Contains(t, repo.lastTarget.QuestionIDs, "q_support")
	assert.NotNil(t, repo.lastWindow.End)
}

func TestReportErrors(t *testing.T) {
	svc, _, survey := newReportFixture(t)
	ctx := context.Background()

	_, err := svc.Crosstab(ctx, ReportQuery{SurveyID: survey.Slug})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Analytics(ctx, ReportQuery{SurveyID: "unknown", QuestionID: "q1"})
	assert.ErrorIs(t, err, ErrSurveyNotFound)

	_, err = svc.Daily(ctx, ReportQuery{SurveyID: survey.Slug, StartDate: "yesterday"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Spatial(ctx, ReportQuery{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnalyticsReport(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	repo.distribution = []model.DistributionEntry{{Option: "Tenali", Count: 3}, {Option: "Ponnur", Count: 1}}
	repo.total = 4

	report, err := svc.Analytics(context.Background(), ReportQuery{SurveyID: survey.Slug, QuestionID: "assembly"})
	require.NoError(t, err)
	assert.Equal(t, 4, report.TotalResponses)
	assert.Equal(t, "assembly", report.QuestionID)
	assert.Len(t, report.Distribution, 2)
	assert.Equal(t, "assembly", repo.lastTarget.Field)
}

func TestBuildDailyReport(t *testing.T) {
	u1, u2 := "u1", "u2"
	entries := []repository.DailyEntry{
		{Date: "2025-01-02", UserID: &u1, UserName: "Ravi", Count: 3},
		{Date: "2025-01-01", UserID: &u1, UserName: "Ravi", Count: 2},
		{Date: "2025-01-01", UserID: &u2, UserName: "Sita", Count: 4},
		{Date: "2025-01-03", UserName: "", Count: 1},
	}

	report := BuildDailyReport(entries)
	assert.Equal(t, 10, report.Summary.TotalResponses)
	assert.Equal(t, 3, report.Summary.ActiveDays)
	assert.Equal(t, 3.3, report.Summary.AvgPerDay)
	require.NotNil(t, report.Summary.TopContributor)
	assert.Equal(t, model.ContributorCount{UserID: "u1", UserName: "Ravi", Count: 5}, *report.Summary.TopContributor)

	require.Len(t, report.Days, 3)
	assert.Equal(t, "2025-01-01", report.Days[0].Date)
	assert.Equal(t, 6, report.Days[0].Total)
	assert.Equal(t, "Sita", report.Days[0].Users[0].UserName)
	assert.Equal(t, "Anonymous", report.Days[2].Users[0].UserName)
}

func TestBuildDailyReportEmpty(t *testing.T) {
	report := BuildDailyReport(nil)
	assert.Equal(t, 0, report.Summary.TotalResponses)
	assert.Equal(t, 0.0, report.Summary.AvgPerDay)
	assert.Nil(t, report.Summary.TopContributor)
	assert.NotNil(t, report.Days)
}

func TestDailyUsesTimezone(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	_, err := svc.Daily(context.Background(), ReportQuery{SurveyID: survey.Slug})
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", repo.lastTZ)
}

func TestSummaryFollowsSurveyOrder(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	repo.total = 2
	repo.summary = []model.QuestionSummary{
		{QuestionID: "legacy", Label: "Old", TotalAnswers: 1},
		{QuestionID: survey.Questions[6].ID.Hex(), TotalAnswers: 2},
		{QuestionID: "constituency", Label: "Parliament Constituency", TotalAnswers: 2},
	}

	report, err := svc.Summary(context.Background(), ReportQuery{SurveyID: survey.Slug})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalResponses)
	require.Len(t, report.Questions, 3)
	assert.Equal(t, "constituency", report.Questions[0].QuestionID)
	assert.Equal(t, survey.Questions[6].ID.Hex(), report.Questions[1].QuestionID)
	assert.Equal(t, "Which party do you support?", report.Questions[1].Label)
	assert.Equal(t, "legacy", report.Questions[2].QuestionID)
}

func TestSpatialReport(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	repo.spatial = []model.SpatialPoint{{ID: "a", Lat: 16.3, Lng: 80.4}, {ID: "b", Lat: 16.5, Lng: 80.6}}

	report, err := svc.Spatial(context.Background(), ReportQuery{SurveyID: survey.Slug})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, survey.ID.Hex(), report.SurveyID)
}

func TestReportsAreCached(t *testing.T) {
	svc, repo, survey := newReportFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	svc.SetCache(cache.NewReportCache(client, 30*time.Second))

	repo.spatial = []model.SpatialPoint{{ID: "a", Lat: 1, Lng: 2}}
	q := ReportQuery{SurveyID: survey.Slug}
	ctx := context.Background()

	first, err := svc.Spatial(ctx, q)
	require.NoError(t, err)
	second, err := svc.Spatial(ctx, q)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Points[0].ID, second.Points[0].ID)

	// Different window, different entry
	q.StartDate = "2025-01-01"
	_, err = svc.Spatial(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
