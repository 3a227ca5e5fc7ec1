package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsurvey/internal/model"
)

// RawAnswer is one answer as sent by a client
type RawAnswer struct {
	QuestionID string      `json:"questionId"`
	Value      interface{} `json:"value"`
}

// FlatFields are the top-level body fields older clients send instead of, or
// next to, the matching answers
type FlatFields struct {
	Parliament      string
	Assembly        string
	Municipality    string
	Mandal          string
	WardNum         string
	Ward            string
	RespondentName  string
	RespondentPhone string
	VillageOrStreet string
}

// roleFor returns the legacy value feeding role
func (f FlatFields) roleFor(role model.FieldRole) string {
	switch role {
	case model.RoleParliament:
		return f.Parliament
	case model.RoleAssembly:
		return firstNonEmpty(f.Assembly, f.Municipality)
	case model.RoleMandal:
		return firstNonEmpty(f.Mandal, f.WardNum, f.Ward)
	case model.RoleRespondentName:
		return f.RespondentName
	case model.RoleRespondentPhone:
		return f.RespondentPhone
	case model.RoleVillageOrStreet:
		return f.VillageOrStreet
	}
	return ""
}

// Label keywords per role, checked in order. Earlier roles win so that
// "Village name" is a village and "Assembly constituency" an assembly.
var roleKeywords = []struct {
	role     model.FieldRole
	keywords []string
}{
	{model.RoleRespondentPhone, []string{"phone", "mobile", "ఫోన్", "మొబైల్"}},
	{model.RoleVillageOrStreet, []string{"village", "street", "గ్రామ", "వీధి"}},
	{model.RoleAssembly, []string{"assembly", "municipality", "అసెంబ్లీ", "శాసనసభ", "మున్సిపా"}},
	{model.RoleMandal, []string{"mandal", "ward", "మండల", "వార్డు"}},
	{model.RoleParliament, []string{"parliament", "constituency", "పార్లమెంట్", "లోక్ సభ"}},
	{model.RoleRespondentName, []string{"name", "పేరు"}},
}

// DetectRole sniffs a role from a question label
func DetectRole(label string) (model.FieldRole, bool) {
	lower := strings.ToLower(label)
	for _, rk := range roleKeywords {
		for _, kw := range rk.keywords {
			if strings.Contains(lower, kw) {
				return rk.role, true
			}
		}
	}
	return "", false
}

// BuildFieldMap assigns roles to question indexes. Explicit fieldMapping
// entries win; remaining questions are classified by label.
func BuildFieldMap(survey *model.Survey) map[int]model.FieldRole {
	fm := make(map[int]model.FieldRole)
	if survey == nil {
		return fm
	}

	if len(survey.FieldMapping) > 0 {
		index := make(map[string]int, len(survey.Questions)*3)
		for i := range survey.Questions {
			index[questionKey(i)] = i
			for _, id := range survey.Questions[i].Identifiers() {
				if _, taken := index[id]; !taken {
					index[id] = i
				}
			}
		}
		for role, ref := range survey.FieldMapping {
			if i, ok := index[strings.ToLower(strings.TrimSpace(ref))]; ok {
				fm[i] = role
			}
		}
	}

	for i := range survey.Questions {
		if _, mapped := fm[i]; mapped {
			continue
		}
		if role, ok := DetectRole(survey.Questions[i].DisplayLabel()); ok {
			fm[i] = role
		}
	}
	return fm
}

var qKeyPattern = regexp.MustCompile(`^q([1-9][0-9]*)$`)

// Normalize maps raw answers onto the survey's questions and derives the
// denormalized reporting fields. Questions without a usable value are omitted.
func Normalize(resolved *model.ResolvedSurvey, raw []RawAnswer, flat FlatFields) ([]model.Answer, model.DenormalizedFields) {
	if !resolved.Found() {
		return []model.Answer{}, model.DenormalizedFields{}
	}
	questions := resolved.Survey.Questions

	direct := make(map[string]interface{}, len(raw))
	for _, a := range raw {
		if IsEmptyValue(a.Value) {
			continue
		}
		id := strings.ToLower(strings.TrimSpace(a.QuestionID))
		if key, ok := resolved.QuestionMap[id]; ok {
			direct[key] = a.Value
			continue
		}
		if m := qKeyPattern.FindStringSubmatch(id); m != nil {
			if n, _ := strconv.Atoi(m[1]); n <= len(questions) {
				direct[id] = a.Value
			}
		}
	}

	// A composite first answer is split by position: the first question keeps
	// the parliament level and the next two receive assembly and mandal
	preseed := make(map[int]interface{})
	var levels []string
	if hierarchyApplies(resolved.FieldMap) {
		if levels = splitHierarchy(direct["q1"]); len(levels) >= 2 {
			delete(direct, "q1")
			if levels[0] != "" {
				preseed[0] = levels[0]
			}
			if levels[1] != "" && resolved.FieldMap[1] == model.RoleAssembly {
				preseed[1] = levels[1]
			}
			if len(levels) >= 3 && levels[2] != "" && resolved.FieldMap[2] == model.RoleMandal {
				preseed[2] = levels[2]
			}
		} else {
			levels = nil
		}
	}

	answers := make([]model.Answer, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		key := questionKey(i)

		value, ok := preseed[i]
		if !ok {
			value, ok = direct[key]
		}
		if !ok {
			if legacy := flat.roleFor(resolved.FieldMap[i]); legacy != "" {
				value, ok = legacy, true
			}
		}
		if !ok {
			continue
		}

		id := q.CanonicalID()
		if id == "" {
			id = key
		}
		answers = append(answers, model.Answer{
			QuestionID: id,
			Label:      q.DisplayLabel(),
			Value:      value,
		})
	}

	fields := ProjectFields(resolved.Survey, resolved.FieldMap, answers)
	// Levels with no question of their own still reach the top-level fields
	hierarchy := []*string{&fields.Parliament, &fields.Assembly, &fields.Mandal}
	for i := 0; i < len(levels) && i < len(hierarchy); i++ {
		if *hierarchy[i] == "" {
			*hierarchy[i] = levels[i]
		}
	}
	if fields.Parliament == "" {
		fields.Parliament = flat.roleFor(model.RoleParliament)
	}
	if fields.Assembly == "" {
		fields.Assembly = flat.roleFor(model.RoleAssembly)
	}
	if fields.Mandal == "" {
		fields.Mandal = flat.roleFor(model.RoleMandal)
	}
	return answers, fields
}

// ProjectFields derives the denormalized fields from stored answers alone.
// It is used at write time and to audit stored responses for drift.
func ProjectFields(survey *model.Survey, fieldMap map[int]model.FieldRole, answers []model.Answer) model.DenormalizedFields {
	var fields model.DenormalizedFields
	if survey == nil {
		return fields
	}

	byID := make(map[string]interface{}, len(answers))
	for _, a := range answers {
		id := strings.ToLower(a.QuestionID)
		if _, seen := byID[id]; !seen {
			byID[id] = a.Value
		}
	}
	valueAt := func(i int) interface{} {
		for _, id := range survey.Questions[i].Identifiers() {
			if v, ok := byID[id]; ok {
				return v
			}
		}
		return byID[questionKey(i)]
	}

	if len(survey.Questions) > 0 && hierarchyApplies(fieldMap) {
		levels := splitHierarchy(valueAt(0))
		targets := []*string{&fields.Parliament, &fields.Assembly, &fields.Mandal}
		for i := 0; i < len(levels) && i < len(targets); i++ {
			*targets[i] = levels[i]
		}
	}

	fromRole := func(role model.FieldRole) string {
		for i := range survey.Questions {
			if fieldMap[i] != role {
				continue
			}
			if s := Stringify(valueAt(i)); s != "" {
				return s
			}
		}
		return ""
	}

	if fields.Parliament == "" {
		fields.Parliament = fromRole(model.RoleParliament)
	}
	if fields.Assembly == "" {
		fields.Assembly = fromRole(model.RoleAssembly)
	}
	if fields.Mandal == "" {
		fields.Mandal = fromRole(model.RoleMandal)
	}
	fields.RespondentName = fromRole(model.RoleRespondentName)
	fields.RespondentPhone = fromRole(model.RoleRespondentPhone)
	fields.VillageOrStreet = fromRole(model.RoleVillageOrStreet)
	return fields
}

// hierarchyApplies is true unless the first question is mapped to a
// non-geographic role
func hierarchyApplies(fieldMap map[int]model.FieldRole) bool {
	role, ok := fieldMap[0]
	return !ok || role == model.RoleParliament
}

// splitHierarchy splits a "parliament, assembly, mandal" composite by
// position. A plain scalar yields one level.
func splitHierarchy(v interface{}) []string {
	var parts []string
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []interface{}:
		for _, e := range val {
			parts = append(parts, Stringify(e))
		}
	case primitive.A:
		for _, e := range val {
			parts = append(parts, Stringify(e))
		}
	default:
		parts = []string{Stringify(val)}
	}

	// Blank parts keep their position so later levels do not shift up
	levels := make([]string, len(parts))
	for i, p := range parts {
		levels[i] = strings.TrimSpace(p)
	}
	return levels
}

// IsEmptyValue treats nil, blank strings and empty arrays or documents as unanswered
func IsEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	case primitive.A:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	case primitive.M:
		return len(val) == 0
	case primitive.D:
		return len(val) == 0
	}
	return false
}

// Stringify renders an answer value for a denormalized field. Arrays are
// joined with ","; documents render empty.
func Stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int32, int64, bool:
		return fmt.Sprint(val)
	case []interface{}:
		return joinValues(val)
	case primitive.A:
		return joinValues(val)
	}
	return ""
}

func joinValues(vals []interface{}) string {
	parts := make([]string, 0, len(vals))
	for _, e := range vals {
		if s := Stringify(e); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
