package model

// ResolvedSurvey is the outcome of resolving a survey reference. Survey is nil
// when nothing matched, in which case ID echoes the raw reference.
type ResolvedSurvey struct {
	ID     string  `json:"id"`
	Survey *Survey `json:"survey,omitempty"`
	// lower(question _id hex) and lower(alias) -> "qN" (1-based declared order)
	QuestionMap map[string]string `json:"questionMap"`
	// question index -> role it feeds
	FieldMap map[int]FieldRole `json:"fieldMap,omitempty"`
}

// Found reports whether a survey document backs the resolution
func (r *ResolvedSurvey) Found() bool {
	return r != nil && r.Survey != nil
}
