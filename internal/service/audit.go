package service

import (
	"context"
	"fmt"

	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
)

// FieldDrift is one denormalized field whose stored value no longer matches
// the value projected from the response's answers
type FieldDrift struct {
	ResponseID string `json:"responseId"`
	Field      string `json:"field"`
	Stored     string `json:"stored"`
	Projected  string `json:"projected"`
}

// AuditResult summarizes a drift audit of one survey
type AuditResult struct {
	SurveyID string       `json:"surveyId"`
	Scanned  int          `json:"scanned"`
	Drifted  int          `json:"drifted"`
	Samples  []FieldDrift `json:"samples"`
}

// CompareFields lists the fields where stored and projected differ. Location
// fields only count when something was projected, since they also take the
// flat body fallback at write time.
func CompareFields(responseID string, stored, projected model.DenormalizedFields) []FieldDrift {
	var out []FieldDrift
	check := func(field, s, p string, fallback bool) {
		if s == p || (fallback && p == "") {
			return
		}
		out = append(out, FieldDrift{ResponseID: responseID, Field: field, Stored: s, Projected: p})
	}
	check("parliament", stored.Parliament, projected.Parliament, true)
	check("assembly", stored.Assembly, projected.Assembly, true)
	check("mandal", stored.Mandal, projected.Mandal, true)
	check("respondentName", stored.RespondentName, projected.RespondentName, false)
	check("respondentPhone", stored.RespondentPhone, projected.RespondentPhone, false)
	check("village_or_street", stored.VillageOrStreet, projected.VillageOrStreet, false)
	return out
}

// AuditSurvey re-projects the denormalized fields of every stored response and
// reports mismatches. It never writes.
func AuditSurvey(ctx context.Context, resolver *SurveyResolver, responses repository.ResponseRepo, ref string, maxSamples int) (*AuditResult, error) {
	resolved, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	survey := resolved.Survey
	fieldMap := resolved.FieldMap
	if fieldMap == nil {
		fieldMap = BuildFieldMap(survey)
	}

	result := &AuditResult{SurveyID: resolved.ID, Samples: []FieldDrift{}}
	err = responses.ForEach(ctx, resolved.ID, func(r *model.Response) error {
		result.Scanned++
		drift := CompareFields(r.ID.Hex(), r.DenormalizedFields, ProjectFields(survey, fieldMap, r.Answers))
		if len(drift) == 0 {
			return nil
		}
		result.Drifted++
		for _, d := range drift {
			if len(result.Samples) >= maxSamples {
				break
			}
			result.Samples = append(result.Samples, d)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit survey %s: %w", resolved.ID, err)
	}
	return result, nil
}
