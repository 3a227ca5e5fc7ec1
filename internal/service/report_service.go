package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/metrics"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

// Report kinds, used for cache keys and metric labels
const (
	ReportCrosstab  = "crosstab"
	ReportAnalytics = "analytics"
	ReportDaily     = "daily"
	ReportSummary   = "summary"
	ReportSpatial   = "spatial"
)

// DefaultGroupBy is the crosstab grouping when none is given
const DefaultGroupBy = "parliament"

// Top-level response fields reports may group or count by
var reportFields = map[string]bool{
	"parliament":        true,
	"assembly":          true,
	"mandal":            true,
	"userName":          true,
	"respondentName":    true,
	"village_or_street": true,
}

// ReportQuery carries the raw report parameters from a request
type ReportQuery struct {
	SurveyID   string
	QuestionID string
	GroupBy    string
	StartDate  string
	EndDate    string
}

func (q ReportQuery) cacheParams() []string {
	return []string{q.QuestionID, q.GroupBy, q.StartDate, q.EndDate}
}

// ReportService runs the read-only reports over stored responses
type ReportService struct {
	reportRepo repository.ReportRepo
	resolver   *SurveyResolver
	cache      cache.ReportCache
	metrics    *metrics.Collector
	timezone   string
	loc        *time.Location
}

// NewReportService creates a new report service. Dates are bucketed and
// date-only bounds are read in timezone; an unknown zone falls back to UTC.
func NewReportService(reportRepo repository.ReportRepo, resolver *SurveyResolver, timezone string) *ReportService {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Warnf("unknown report timezone %q, using UTC", timezone)
		loc, timezone = time.UTC, "UTC"
	}
	return &ReportService{
		reportRepo: reportRepo,
		resolver:   resolver,
		timezone:   timezone,
		loc:        loc,
	}
}

func (s *ReportService) SetCache(c cache.ReportCache) {
	s.cache = c
}

func (s *ReportService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Crosstab counts a question's answers within each group of groupBy
func (s *ReportService) Crosstab(ctx context.Context, q ReportQuery) (*model.CrosstabReport, error) {
	if strings.TrimSpace(q.QuestionID) == "" {
		return nil, validationErrorf("questionId is required")
	}
	if strings.TrimSpace(q.GroupBy) == "" {
		q.GroupBy = DefaultGroupBy
	}
	resolved, window, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	target := ReportDimension(resolved, q.QuestionID)
	groupBy := ReportDimension(resolved, q.GroupBy)

	report := &model.CrosstabReport{}
	err = s.cached(ctx, resolved.ID, ReportCrosstab, q.cacheParams(), report, func() error {
		rows, err := s.reportRepo.Crosstab(ctx, resolved.ID, window, target, groupBy)
		if err != nil {
			return err
		}
		*report = model.CrosstabReport{
			SurveyID:   resolved.ID,
			QuestionID: q.QuestionID,
			GroupBy:    q.GroupBy,
			Rows:       rows,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Analytics returns the value distribution of a field or question
func (s *ReportService) Analytics(ctx context.Context, q ReportQuery) (*model.AnalyticsReport, error) {
	if strings.TrimSpace(q.QuestionID) == "" {
		return nil, validationErrorf("questionId is required")
	}
	resolved, window, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	target := ReportDimension(resolved, q.QuestionID)

	report := &model.AnalyticsReport{}
	err = s.cached(ctx, resolved.ID, ReportAnalytics, q.cacheParams(), report, func() error {
		dist, total, err := s.reportRepo.Distribution(ctx, resolved.ID, window, target)
		if err != nil {
			return err
		}
		*report = model.AnalyticsReport{
			SurveyID:       resolved.ID,
			QuestionID:     q.QuestionID,
			Distribution:   dist,
			TotalResponses: total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Daily groups responses per local date and submitter
func (s *ReportService) Daily(ctx context.Context, q ReportQuery) (*model.DailyReport, error) {
	resolved, window, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &model.DailyReport{}
	err = s.cached(ctx, resolved.ID, ReportDaily, q.cacheParams(), report, func() error {
		entries, err := s.reportRepo.Daily(ctx, resolved.ID, window, s.timezone)
		if err != nil {
			return err
		}
		*report = BuildDailyReport(entries)
		report.SurveyID = resolved.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Summary histograms every question's answers in survey order
func (s *ReportService) Summary(ctx context.Context, q ReportQuery) (*model.SummaryReport, error) {
	resolved, window, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &model.SummaryReport{}
	err = s.cached(ctx, resolved.ID, ReportSummary, q.cacheParams(), report, func() error {
		questions, total, err := s.reportRepo.Summary(ctx, resolved.ID, window)
		if err != nil {
			return err
		}
		*report = model.SummaryReport{
			SurveyID:       resolved.ID,
			TotalResponses: total,
			Questions:      OrderQuestionSummaries(resolved.Survey, questions),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Spatial lists located responses, newest first
func (s *ReportService) Spatial(ctx context.Context, q ReportQuery) (*model.SpatialReport, error) {
	resolved, window, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &model.SpatialReport{}
	err = s.cached(ctx, resolved.ID, ReportSpatial, q.cacheParams(), report, func() error {
		points, err := s.reportRepo.Spatial(ctx, resolved.ID, window)
		if err != nil {
			return err
		}
		*report = model.SpatialReport{
			SurveyID: resolved.ID,
			Points:   points,
			Total:    len(points),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) prepare(ctx context.Context, q ReportQuery) (*model.ResolvedSurvey, model.ReportWindow, error) {
	window, err := ParseWindow(q.StartDate, q.EndDate, s.loc)
	if err != nil {
		return nil, window, err
	}
	resolved, err := s.resolver.Resolve(ctx, q.SurveyID)
	if err != nil {
		return nil, window, err
	}
	return resolved, window, nil
}

// cached serves kind from the report cache, or runs build and stores the result
func (s *ReportService) cached(ctx context.Context, surveyID, kind string, params []string, out interface{}, build func() error) error {
	if s.cache != nil {
		found, err := s.cache.Get(ctx, surveyID, kind, params, out)
		if err != nil {
			log.Warnf("report cache read failed (%s %s): %v", kind, surveyID, err)
		} else if found {
			s.metrics.RecordReportCacheHit(kind)
			return nil
		}
	}

	start := time.Now()
	if err := build(); err != nil {
		return err
	}
	s.metrics.RecordReport(kind, time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, surveyID, kind, params, out); err != nil {
			log.Warnf("report cache write failed (%s %s): %v", kind, surveyID, err)
		}
	}
	return nil
}

// ReportDimension maps a groupBy or questionId parameter to what the
// aggregation reads. Unknown question references are matched verbatim so
// answers stored under retired ids still count.
func ReportDimension(resolved *model.ResolvedSurvey, ref string) repository.Dimension {
	ref = strings.TrimSpace(ref)
	if reportFields[ref] {
		return repository.Dimension{Field: ref}
	}

	lower := strings.ToLower(ref)
	key, ok := resolved.QuestionMap[lower]
	if !ok && qKeyPattern.MatchString(lower) {
		key, ok = lower, true
	}
	if !ok || !resolved.Found() {
		return repository.Dimension{QuestionIDs: []string{ref}}
	}

	for i := range resolved.Survey.Questions {
		if questionKey(i) != key {
			continue
		}
		q := resolved.Survey.Questions[i]
		ids := []string{}
		if !q.ID.IsZero() {
			ids = append(ids, q.ID.Hex())
		}
		if q.Alias != "" {
			ids = append(ids, q.Alias)
		}
		ids = append(ids, key)
		return repository.Dimension{QuestionIDs: ids}
	}
	return repository.Dimension{QuestionIDs: []string{ref}}
}

// ParseWindow reads YYYY-MM-DD or RFC3339 bounds. Date-only bounds are local
// to loc and a date-only end covers that whole day.
func ParseWindow(startDate, endDate string, loc *time.Location) (model.ReportWindow, error) {
	var window model.ReportWindow
	var err error
	if window.Start, err = parseBound(startDate, false, loc); err != nil {
		return window, validationErrorf("invalid startDate %q", startDate)
	}
	if window.End, err = parseBound(endDate, true, loc); err != nil {
		return window, validationErrorf("invalid endDate %q", endDate)
	}
	if window.Start != nil && window.End != nil && window.Start.After(*window.End) {
		return window, validationErrorf("startDate is after endDate")
	}
	return window, nil
}

func parseBound(s string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// BuildDailyReport folds (date, submitter) buckets into per-day rows and the
// window summary
func BuildDailyReport(entries []repository.DailyEntry) model.DailyReport {
	report := model.DailyReport{Days: []model.DailyRow{}}

	type contributor struct {
		model.ContributorCount
		order int
	}
	totals := map[string]*contributor{}
	dayIndex := map[string]int{}

	for _, e := range entries {
		name := e.UserName
		if name == "" {
			name = "Anonymous"
		}
		c := model.ContributorCount{UserName: name, Count: e.Count}
		key := "name:" + name
		if e.UserID != nil {
			c.UserID = *e.UserID
			key = "id:" + *e.UserID
		}

		i, ok := dayIndex[e.Date]
		if !ok {
			i = len(report.Days)
			dayIndex[e.Date] = i
			report.Days = append(report.Days, model.DailyRow{Date: e.Date, Users: []model.ContributorCount{}})
		}
		report.Days[i].Total += e.Count
		report.Days[i].Users = append(report.Days[i].Users, c)
		report.Summary.TotalResponses += e.Count

		if t, ok := totals[key]; ok {
			t.Count += e.Count
		} else {
			totals[key] = &contributor{ContributorCount: c, order: len(totals)}
		}
	}

	sort.SliceStable(report.Days, func(a, b int) bool { return report.Days[a].Date < report.Days[b].Date })
	for i := range report.Days {
		users := report.Days[i].Users
		sort.SliceStable(users, func(a, b int) bool {
			if users[a].Count != users[b].Count {
				return users[a].Count > users[b].Count
			}
			return users[a].UserName < users[b].UserName
		})
	}

	report.Summary.ActiveDays = len(report.Days)
	if report.Summary.ActiveDays > 0 {
		avg := float64(report.Summary.TotalResponses) / float64(report.Summary.ActiveDays)
		report.Summary.AvgPerDay = math.Round(avg*10) / 10
	}

	var top *contributor
	for _, c := range totals {
		if top == nil || c.Count > top.Count ||
			(c.Count == top.Count && c.UserName < top.UserName) ||
			(c.Count == top.Count && c.UserName == top.UserName && c.order < top.order) {
			top = c
		}
	}
	if top != nil {
		tc := top.ContributorCount
		report.Summary.TopContributor = &tc
	}
	return report
}

// OrderQuestionSummaries sorts summaries by the survey's question order.
// Answers under ids the survey no longer has go last, by id.
func OrderQuestionSummaries(survey *model.Survey, questions []model.QuestionSummary) []model.QuestionSummary {
	rank := map[string]int{}
	if survey != nil {
		for i := range survey.Questions {
			q := survey.Questions[i]
			for _, id := range append(q.Identifiers(), questionKey(i)) {
				if _, taken := rank[id]; !taken {
					rank[id] = i
				}
			}
		}
	}
	position := func(id string) int {
		if r, ok := rank[strings.ToLower(id)]; ok {
			return r
		}
		return math.MaxInt32
	}

	out := make([]model.QuestionSummary, len(questions))
	copy(out, questions)
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := position(out[a].QuestionID), position(out[b].QuestionID)
		if pa != pb {
			return pa < pb
		}
		return out[a].QuestionID < out[b].QuestionID
	})

	// Fill labels for answers stored without one
	if survey != nil {
		for i := range out {
			if p := position(out[i].QuestionID); out[i].Label == "" && p < len(survey.Questions) {
				out[i].Label = survey.Questions[p].DisplayLabel()
			}
		}
	}
	return out
}
