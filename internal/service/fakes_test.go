package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

type fakeSurveyRepo struct {
	surveys []*model.Survey // newest first
	calls   int
}

func (f *fakeSurveyRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Survey, error) {
	f.calls++
	for _, s := range f.surveys {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSurveyRepo) GetBySlug(_ context.Context, slug string) (*model.Survey, error) {
	f.calls++
	for _, s := range f.surveys {
		if s.Slug != "" && s.Slug == slug {
			return s, nil
		}
	}
	return nil, nil
}

// FindNewestByTitle does a plain case-insensitive substring match, which is
// enough for the literal patterns used in tests
func (f *fakeSurveyRepo) FindNewestByTitle(_ context.Context, pattern string) (*model.Survey, error) {
	f.calls++
	p := strings.ToLower(pattern)
	for _, s := range f.surveys {
		if strings.Contains(strings.ToLower(s.Title), p) || strings.Contains(strings.ToLower(s.Name), p) {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSurveyRepo) GetNthNewest(_ context.Context, n int) (*model.Survey, error) {
	f.calls++
	if n < 1 || n > len(f.surveys) {
		return nil, nil
	}
	return f.surveys[n-1], nil
}

func (f *fakeSurveyRepo) Create(_ context.Context, survey *model.Survey) (string, error) {
	survey.ID = primitive.NewObjectID()
	f.surveys = append([]*model.Survey{survey}, f.surveys...)
	return survey.ID.Hex(), nil
}

func (f *fakeSurveyRepo) EnsureIndexes(context.Context) {}

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses []*model.Response
	createErr error
	listed    []repository.ResponseFilter
}

func (f *fakeResponseRepo) Create(_ context.Context, r *model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	r.ID = primitive.NewObjectID()
	f.responses = append(f.responses, r)
	return nil
}

func (f *fakeResponseRepo) GetByID(_ context.Context, id primitive.ObjectID) (*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.responses {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeResponseRepo) FindLatestSince(_ context.Context, key repository.SubmitterKey, since time.Time) (*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Response
	for _, r := range f.responses {
		if r.SurveyID != key.SurveyID || r.CreatedAt.Before(since) {
			continue
		}
		if (key.UserID == nil) != (r.UserID == nil) {
			continue
		}
		if key.UserID != nil && *key.UserID != *r.UserID {
			continue
		}
		if key.IPAddress != "" && r.Metadata.IPAddress != key.IPAddress {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest, nil
}

func (f *fakeResponseRepo) matching(filter repository.ResponseFilter) []*model.Response {
	var out []*model.Response
	for _, r := range f.responses {
		if filter.SurveyID != "" && r.SurveyID != filter.SurveyID {
			continue
		}
		if filter.UserName != "" && !strings.Contains(strings.ToLower(r.UserName), strings.ToLower(filter.UserName)) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (f *fakeResponseRepo) List(_ context.Context, filter repository.ResponseFilter, page, limit int) ([]*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, filter)
	all := f.matching(filter)
	start := (page - 1) * limit
	if start >= len(all) {
		return []*model.Response{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeResponseRepo) Count(_ context.Context, filter repository.ResponseFilter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.matching(filter))), nil
}

func (f *fakeResponseRepo) ForEach(_ context.Context, surveyID string, fn func(*model.Response) error) error {
	for _, r := range f.matching(repository.ResponseFilter{SurveyID: surveyID}) {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeResponseRepo) EnsureIndexes(context.Context) {}

type fakeReportRepo struct {
	crosstab     []model.CrosstabRow
	distribution []model.DistributionEntry
	total        int
	daily        []repository.DailyEntry
	summary      []model.QuestionSummary
	spatial      []model.SpatialPoint

	calls      int
	lastWindow model.ReportWindow
	lastTarget repository.Dimension
	lastGroup  repository.Dimension
	lastTZ     string
}

func (f *fakeReportRepo) Crosstab(_ context.Context, _ string, w model.ReportWindow, target, groupBy repository.Dimension) ([]model.CrosstabRow, error) {
	f.calls++
	f.lastWindow, f.lastTarget, f.lastGroup = w, target, groupBy
	return f.crosstab, nil
}

func (f *fakeReportRepo) Distribution(_ context.Context, _ string, w model.ReportWindow, target repository.Dimension) ([]model.DistributionEntry, int, error) {
	f.calls++
	f.lastWindow, f.lastTarget = w, target
	return f.distribution, f.total, nil
}

func (f *fakeReportRepo) Daily(_ context.Context, _ string, w model.ReportWindow, tz string) ([]repository.DailyEntry, error) {
	f.calls++
	f.lastWindow, f.lastTZ = w, tz
	return f.daily, nil
}

func (f *fakeReportRepo) Summary(_ context.Context, _ string, w model.ReportWindow) ([]model.QuestionSummary, int, error) {
	f.calls++
	f.lastWindow = w
	return f.summary, f.total, nil
}

func (f *fakeReportRepo) Spatial(_ context.Context, _ string, w model.ReportWindow) ([]model.SpatialPoint, error) {
	f.calls++
	f.lastWindow = w
	return f.spatial, nil
}

type broadcast struct {
	surveyID string
	msgType  string
	payload  interface{}
}

type fakeBroadcaster struct {
	sent []broadcast
}

func (f *fakeBroadcaster) BroadcastToSurvey(surveyID, msgType string, payload interface{}) {
	f.sent = append(f.sent, broadcast{surveyID, msgType, payload})
}

// msrSurvey mirrors the field survey layout: a composite constituency
// question followed by assembly, mandal and respondent questions
func msrSurvey() *model.Survey {
	return &model.Survey{
		ID:        primitive.NewObjectID(),
		Title:     "MSR Survey 2025",
		Slug:      "msr-2025",
		CreatedAt: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Questions: []model.Question{
			{ID: primitive.NewObjectID(), Alias: "constituency", Label: "Parliament Constituency", Type: "hierarchy"},
			{ID: primitive.NewObjectID(), Label: "Assembly", Type: "multiple_choice"},
			{ID: primitive.NewObjectID(), Label: "Mandal / Ward", Type: "multiple_choice"},
			{ID: primitive.NewObjectID(), Label: "Respondent Name", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Mobile Number", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Village or Street", Type: "text"},
			{ID: primitive.NewObjectID(), Alias: "q_support", Label: "Which party do you support?", Type: "multiple_choice"},
			{ID: primitive.NewObjectID(), Label: "Issues", Type: "checkbox"},
		},
	}
}

func resolvedFor(s *model.Survey) *model.ResolvedSurvey {
	return &model.ResolvedSurvey{
		ID:          s.ID.Hex(),
		Survey:      s,
		QuestionMap: BuildQuestionMap(s),
		FieldMap:    BuildFieldMap(s),
	}
}
