package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/metrics"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// SubmitRequest is a decoded submission
type SubmitRequest struct {
	SurveyID    string
	UserName    string
	UserPhone   string
	Location    *model.Location
	SubmittedAt *time.Time
	Answers     []RawAnswer
	Flat        FlatFields
	UserAgent   string
	IPAddress   string
	// User is set when the request carried a valid token
	User *model.UserClaims
}

// SubmitResult is the stored response, or the earlier one it duplicates
type SubmitResult struct {
	Response  *model.Response
	Duplicate bool
}

// ListQuery pages through stored responses
type ListQuery struct {
	SurveyID string
	UserName string
	Page     int
	Limit    int
}

// Pagination describes a listed page
type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	GlobalTotal int64 `json:"globalTotal"`
	Pages       int   `json:"pages"`
}

// ListResult is one page of responses
type ListResult struct {
	Data       []*model.Response `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// ResponseService ingests and lists survey responses
type ResponseService struct {
	responseRepo repository.ResponseRepo
	resolver     *SurveyResolver
	dedup        *DuplicateSuppressor
	reportCache  cache.ReportCache
	broadcaster  Broadcaster
	metrics      *metrics.Collector
	anonByIP     bool
	now          func() time.Time
}

// NewResponseService creates a new response service
func NewResponseService(
	responseRepo repository.ResponseRepo,
	resolver *SurveyResolver,
	dedup *DuplicateSuppressor,
	anonScope string,
) *ResponseService {
	return &ResponseService{
		responseRepo: responseRepo,
		resolver:     resolver,
		dedup:        dedup,
		anonByIP:     anonScope == "ip",
		now:          time.Now,
	}
}

// SetBroadcaster sets the live feed broadcaster (called after hub is created)
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetReportCache lets new responses drop the survey's cached reports
func (s *ResponseService) SetReportCache(c cache.ReportCache) {
	s.reportCache = c
}

func (s *ResponseService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Submit validates, normalizes and stores a response unless it duplicates a
// recent one from the same submitter
func (s *ResponseService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	result, err := s.submit(ctx, req)
	switch {
	case err == nil && result.Duplicate:
		s.metrics.RecordSubmission(metrics.OutcomeDuplicate)
	case err == nil:
		s.metrics.RecordSubmission(metrics.OutcomeCreated)
	case errors.Is(err, ErrDuplicateInFlight):
		s.metrics.RecordSubmission(metrics.OutcomeInFlight)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSurveyNotFound):
		s.metrics.RecordSubmission(metrics.OutcomeRejected)
	default:
		s.metrics.RecordSubmission(metrics.OutcomeFailed)
	}
	return result, err
}

func (s *ResponseService) submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	resolved, err := s.resolver.Resolve(ctx, req.SurveyID)
	if err != nil {
		return nil, err
	}

	answers, fields := Normalize(resolved, req.Answers, req.Flat)

	response := &model.Response{
		SurveyID:           resolved.ID,
		UserName:           strings.TrimSpace(req.UserName),
		UserPhone:          strings.TrimSpace(req.UserPhone),
		DenormalizedFields: fields,
		Answers:            answers,
		Metadata: model.Metadata{
			UserAgent: req.UserAgent,
			IPAddress: req.IPAddress,
		},
	}
	if req.User != nil {
		uid := req.User.UserID
		response.UserID = &uid
		if req.User.Name != "" {
			response.UserName = req.User.Name
		}
		if req.User.Phone != "" {
			response.UserPhone = req.User.Phone
		}
	}
	if !req.Location.IsZero() {
		response.Location = req.Location
		response.GoogleMapsLink = req.Location.MapsLink()
	}

	key := repository.SubmitterKey{SurveyID: resolved.ID, UserID: response.UserID}
	if response.UserID == nil && s.anonByIP {
		key.IPAddress = req.IPAddress
	}

	check, err := s.dedup.Check(ctx, key, answers)
	if err != nil {
		return nil, err
	}
	if check.Existing != nil {
		log.WithFields(log.Fields{
			"surveyId":   resolved.ID,
			"responseId": check.Existing.ID.Hex(),
		}).Info("duplicate submission suppressed")
		return &SubmitResult{Response: check.Existing, Duplicate: true}, nil
	}

	response.CreatedAt = s.now().UTC()
	response.SubmittedAt = response.CreatedAt
	if req.SubmittedAt != nil && !req.SubmittedAt.IsZero() {
		response.SubmittedAt = req.SubmittedAt.UTC()
	}

	if err := s.responseRepo.Create(ctx, response); err != nil {
		s.dedup.Abort(ctx, check)
		return nil, err
	}
	s.dedup.Commit(ctx, check, response.ID.Hex())

	if s.reportCache != nil {
		if err := s.reportCache.Invalidate(ctx, resolved.ID); err != nil {
			log.Warnf("report cache invalidation failed for %s: %v", resolved.ID, err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSurvey(resolved.ID, "response_created", response.FeedEvent())
	}

	return &SubmitResult{Response: response}, nil
}

func validateSubmission(req SubmitRequest) error {
	if strings.TrimSpace(req.SurveyID) == "" {
		return validationErrorf("surveyId is required")
	}
	if req.Answers == nil {
		return validationErrorf("answers must be an array")
	}
	if loc := req.Location; loc != nil {
		if math.IsNaN(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
			return validationErrorf("latitude out of range")
		}
		if math.IsNaN(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
			return validationErrorf("longitude out of range")
		}
	}
	return nil
}

// List returns a page of responses, newest first. An unknown survey lists nothing.
func (s *ResponseService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	var scope repository.ResponseFilter
	if strings.TrimSpace(q.SurveyID) != "" {
		resolved, err := s.resolver.Resolve(ctx, q.SurveyID)
		if err != nil && !errors.Is(err, ErrSurveyNotFound) {
			return nil, err
		}
		scope.SurveyID = resolved.ID
	}

	filter := scope
	filter.UserName = strings.TrimSpace(q.UserName)

	data, err := s.responseRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.responseRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	globalTotal := total
	if filter.UserName != "" {
		if globalTotal, err = s.responseRepo.Count(ctx, scope); err != nil {
			return nil, err
		}
	}

	return &ListResult{
		Data: data,
		Pagination: Pagination{
			Page:        page,
			Limit:       limit,
			Total:       total,
			GlobalTotal: globalTotal,
			Pages:       int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}
