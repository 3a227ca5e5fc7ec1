package service

import (
	"context"
	"fmt"
	"strings"

	"fieldsurvey/internal/cache"
	"fieldsurvey/internal/config"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

// SurveyResolver turns the survey references clients send (numeric aliases,
// ObjectIDs, slugs) into the canonical survey
type SurveyResolver struct {
	surveyRepo repository.SurveyRepo
	cache      cache.SurveyCache
	aliases    config.AliasPatterns
}

// NewSurveyResolver creates a new survey resolver
func NewSurveyResolver(surveyRepo repository.SurveyRepo, aliases config.AliasPatterns) *SurveyResolver {
	return &SurveyResolver{
		surveyRepo: surveyRepo,
		aliases:    aliases,
	}
}

// SetCache enables caching of resolutions
func (r *SurveyResolver) SetCache(c cache.SurveyCache) {
	r.cache = c
}

// Resolve looks up the survey for raw. When nothing matches it returns a
// resolution echoing raw with an empty question map, and ErrSurveyNotFound.
func (r *SurveyResolver) Resolve(ctx context.Context, raw string) (*model.ResolvedSurvey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, validationErrorf("surveyId is required")
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, raw)
		if err != nil {
			log.Warnf("survey cache read failed for %q: %v", raw, err)
		} else if cached.Found() {
			return cached, nil
		}
	}

	survey, err := r.lookup(ctx, model.ParseSurveyRef(raw))
	if err != nil {
		return nil, fmt.Errorf("resolve survey %q: %w", raw, err)
	}
	if survey == nil {
		return &model.ResolvedSurvey{ID: raw, QuestionMap: map[string]string{}}, ErrSurveyNotFound
	}

	resolved := &model.ResolvedSurvey{
		ID:          survey.ID.Hex(),
		Survey:      survey,
		QuestionMap: BuildQuestionMap(survey),
		FieldMap:    BuildFieldMap(survey),
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, raw, resolved); err != nil {
			log.Warnf("survey cache write failed for %q: %v", raw, err)
		}
	}
	return resolved, nil
}

func (r *SurveyResolver) lookup(ctx context.Context, ref model.SurveyRef) (*model.Survey, error) {
	switch ref.Kind {
	case model.RefAlias:
		if pattern, ok := r.aliases[ref.Alias]; ok && pattern != "" {
			survey, err := r.surveyRepo.FindNewestByTitle(ctx, pattern)
			if err != nil || survey != nil {
				return survey, err
			}
		}
		return r.surveyRepo.GetNthNewest(ctx, ref.Alias)

	case model.RefObjectID:
		survey, err := r.surveyRepo.GetByID(ctx, ref.ObjectID)
		if err != nil || survey != nil {
			return survey, err
		}
		return r.surveyRepo.GetBySlug(ctx, ref.Raw)

	default:
		return r.surveyRepo.GetBySlug(ctx, ref.Slug)
	}
}

// BuildQuestionMap maps every lowercased question identifier to its "qN" key
func BuildQuestionMap(survey *model.Survey) map[string]string {
	m := make(map[string]string, len(survey.Questions)*2)
	for i := range survey.Questions {
		key := questionKey(i)
		for _, id := range survey.Questions[i].Identifiers() {
			if _, taken := m[id]; !taken {
				m[id] = key
			}
		}
	}
	return m
}

func questionKey(index int) string {
	return fmt.Sprintf("q%d", index+1)
}
