package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsurvey/internal/model"
)

func TestDetectRole(t *testing.T) {
	tests := []struct {
		label string
		role  model.FieldRole
		ok    bool
	}{
		{"Parliament Constituency", model.RoleParliament, true},
		{"Assembly Constituency", model.RoleAssembly, true},
		{"Municipality", model.RoleAssembly, true},
		{"Mandal / Ward", model.RoleMandal, true},
		{"Village name", model.RoleVillageOrStreet, true},
		{"Respondent Name", model.RoleRespondentName, true},
		{"Phone number", model.RoleRespondentPhone, true},
		{"మీ పేరు", model.RoleRespondentName, true},
		{"మండలం", model.RoleMandal, true},
		{"గ్రామం", model.RoleVillageOrStreet, true},
		{"పార్లమెంట్ నియోజకవర్గం", model.RoleParliament, true},
		{"Which party do you support?", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			role, ok := DetectRole(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}
}

func TestBuildFieldMap(t *testing.T) {
	s := msrSurvey()
	fm := BuildFieldMap(s)

	assert.Equal(t, model.RoleParliament, fm[0])
	assert.Equal(t, model.RoleAssembly, fm[1])
	assert.Equal(t, model.RoleMandal, fm[2])
	assert.Equal(t, model.RoleRespondentName, fm[3])
	assert.Equal(t, model.RoleRespondentPhone, fm[4])
	assert.Equal(t, model.RoleVillageOrStreet, fm[5])
	assert.NotContains(t, fm, 6)
}

func TestBuildFieldMapExplicitWins(t *testing.T) {
	s := msrSurvey()
	s.FieldMapping = map[model.FieldRole]string{
		model.RoleRespondentName: "Q_SUPPORT", // by alias, any case
		model.RoleVillageOrStreet: "q8",
	}
	fm := BuildFieldMap(s)

	assert.Equal(t, model.RoleRespondentName, fm[6])
	assert.Equal(t, model.RoleVillageOrStreet, fm[7])
	// Keyword roles still apply to unmapped questions
	assert.Equal(t, model.RoleRespondentName, fm[3])
}

func TestNormalizeHierarchicalFirstQuestion(t *testing.T) {
	s := msrSurvey()
	resolved := resolvedFor(s)

	answers, fields := Normalize(resolved, []RawAnswer{
		{QuestionID: "constituency", Value: []interface{}{"Guntur", "Tenali", "Kollur"}},
		{QuestionID: s.Questions[1].ID.Hex(), Value: "Ponnur"}, // overridden by the split
		{QuestionID: "q4", Value: "Ravi"},
		{QuestionID: s.Questions[6].ID.Hex(), Value: "A"},
		{QuestionID: "Q_SUPPORT", Value: "B"}, // same question by alias, later wins
		{QuestionID: "q8", Value: []interface{}{}},
	}, FlatFields{})

	require.Len(t, answers, 5)
	assert.Equal(t, s.Questions[0].ID.Hex(), answers[0].QuestionID)
	assert.Equal(t, "Guntur", answers[0].Value)
	assert.Equal(t, "Tenali", answers[1].Value)
	assert.Equal(t, "Kollur", answers[2].Value)
	assert.Equal(t, "Respondent Name", answers[3].Label)
	assert.Equal(t, "B", answers[4].Value)

	assert.Equal(t, model.DenormalizedFields{
		Parliament:     "Guntur",
		Assembly:       "Tenali",
		Mandal:         "Kollur",
		RespondentName: "Ravi",
	}, fields)
}

func TestNormalizeCommaSeparatedString(t *testing.T) {
	s := msrSurvey()
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: "Guntur, Tenali"},
	}, FlatFields{})

	require.Len(t, answers, 2)
	assert.Equal(t, "Guntur", answers[0].Value)
	assert.Equal(t, "Tenali", answers[1].Value)
	assert.Equal(t, "Guntur", fields.Parliament)
	assert.Equal(t, "Tenali", fields.Assembly)
	assert.Empty(t, fields.Mandal)
}

func TestNormalizeBlankHierarchyLevelKeepsPosition(t *testing.T) {
	s := msrSurvey()
	for _, v := range []interface{}{"Guntur,,Kollur", []interface{}{"Guntur", "", "Kollur"}, primitive.A{"Guntur", " ", "Kollur"}} {
		answers, fields := Normalize(resolvedFor(s), []RawAnswer{{QuestionID: "q1", Value: v}}, FlatFields{})

		require.Len(t, answers, 2, "%#v", v)
		assert.Equal(t, "Guntur", answers[0].Value)
		assert.Equal(t, s.Questions[2].ID.Hex(), answers[1].QuestionID)
		assert.Equal(t, "Kollur", answers[1].Value)
		assert.Equal(t, model.DenormalizedFields{Parliament: "Guntur", Mandal: "Kollur"}, fields)
	}
}

func TestNormalizeBlankAssemblyLevelUsesDirectAnswer(t *testing.T) {
	s := msrSurvey()
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: "Guntur,,Kollur"},
		{QuestionID: "q2", Value: "Ponnur"},
	}, FlatFields{})

	require.Len(t, answers, 3)
	assert.Equal(t, "Ponnur", answers[1].Value)
	assert.Equal(t, "Ponnur", fields.Assembly)
	assert.Equal(t, "Kollur", fields.Mandal)
}

func TestNormalizeLevelsWithoutMatchingQuestion(t *testing.T) {
	s := &model.Survey{
		ID: primitive.NewObjectID(),
		Questions: []model.Question{
			{ID: primitive.NewObjectID(), Label: "Constituency", Type: "hierarchical"},
			{ID: primitive.NewObjectID(), Label: "Which party do you support?", Type: "multiple_choice"},
		},
	}
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: []interface{}{"Guntur", "Tenali", "Kollur"}},
	}, FlatFields{})

	require.Len(t, answers, 1)
	assert.Equal(t, "Guntur", answers[0].Value)
	assert.Equal(t, model.DenormalizedFields{Parliament: "Guntur", Assembly: "Tenali", Mandal: "Kollur"}, fields)
}

func TestNormalizeScalarSetsParliamentOnly(t *testing.T) {
	s := msrSurvey()
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: "Guntur"},
		{QuestionID: "q3", Value: "Kollur"},
	}, FlatFields{})

	require.Len(t, answers, 2)
	assert.Equal(t, "Guntur", fields.Parliament)
	assert.Empty(t, fields.Assembly)
	assert.Equal(t, "Kollur", fields.Mandal)
}

func TestNormalizeLegacyFlatFields(t *testing.T) {
	s := msrSurvey()
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: "Guntur"},
		{QuestionID: "q9", Value: "out of range"},
		{QuestionID: "unknown", Value: "ignored"},
	}, FlatFields{
		Parliament:      "Ignored",
		Municipality:    "Tenali Municipality",
		WardNum:         "12",
		RespondentPhone: "9999999999",
		VillageOrStreet: "Main road",
	})

	ids := make([]string, 0, len(answers))
	for _, a := range answers {
		ids = append(ids, a.QuestionID)
	}
	assert.Equal(t, []string{
		s.Questions[0].ID.Hex(),
		s.Questions[1].ID.Hex(),
		s.Questions[2].ID.Hex(),
		s.Questions[4].ID.Hex(),
		s.Questions[5].ID.Hex(),
	}, ids)

	assert.Equal(t, "Guntur", fields.Parliament)
	assert.Equal(t, "Tenali Municipality", fields.Assembly)
	assert.Equal(t, "12", fields.Mandal)
	assert.Equal(t, "9999999999", fields.RespondentPhone)
	assert.Equal(t, "Main road", fields.VillageOrStreet)
}

func TestNormalizeFlatFallbackWithoutQuestions(t *testing.T) {
	s := &model.Survey{
		ID: primitive.NewObjectID(),
		Questions: []model.Question{
			{Alias: "opinion", Label: "Your opinion", Type: "text"},
		},
	}
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "opinion", Value: "Good"},
	}, FlatFields{Parliament: "Guntur", Assembly: "Tenali", Ward: "7"})

	require.Len(t, answers, 1)
	assert.Equal(t, "opinion", answers[0].QuestionID)
	// q1 carries no geographic role but has no other role either
	assert.Equal(t, "Good", fields.Parliament)
	assert.Equal(t, "Tenali", fields.Assembly)
	assert.Equal(t, "7", fields.Mandal)
}

func TestNormalizeSkipsHierarchyForNonGeographicFirstQuestion(t *testing.T) {
	s := &model.Survey{
		ID: primitive.NewObjectID(),
		Questions: []model.Question{
			{ID: primitive.NewObjectID(), Label: "Respondent name", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Assembly", Type: "text"},
		},
	}
	answers, fields := Normalize(resolvedFor(s), []RawAnswer{
		{QuestionID: "q1", Value: "Rao, K"},
	}, FlatFields{Parliament: "Guntur"})

	require.Len(t, answers, 1)
	assert.Equal(t, "Rao, K", fields.RespondentName)
	assert.Equal(t, "Guntur", fields.Parliament)
	assert.Empty(t, fields.Assembly)
}

func TestNormalizeUnknownSurvey(t *testing.T) {
	answers, fields := Normalize(&model.ResolvedSurvey{ID: "x", QuestionMap: map[string]string{}},
		[]RawAnswer{{QuestionID: "q1", Value: "a"}}, FlatFields{})
	assert.Empty(t, answers)
	assert.Equal(t, model.DenormalizedFields{}, fields)
}

func TestProjectFieldsOnStoredAnswers(t *testing.T) {
	s := msrSurvey()
	fm := BuildFieldMap(s)

	// Decoded from BSON: arrays arrive as primitive.A, ids may be aliases
	answers := []model.Answer{
		{QuestionID: "constituency", Value: primitive.A{"Guntur", "Tenali"}},
		{QuestionID: s.Questions[2].ID.Hex(), Value: "Kollur"},
		{QuestionID: s.Questions[3].ID.Hex(), Value: primitive.A{"Ravi", "Kumar"}},
		{QuestionID: s.Questions[4].ID.Hex(), Value: float64(9876543210)},
	}
	fields := ProjectFields(s, fm, answers)

	assert.Equal(t, model.DenormalizedFields{
		Parliament:      "Guntur",
		Assembly:        "Tenali",
		Mandal:          "Kollur",
		RespondentName:  "Ravi,Kumar",
		RespondentPhone: "9876543210",
	}, fields)
}

func TestProjectFieldsKeepsBlankLevelPosition(t *testing.T) {
	s := msrSurvey()
	fields := ProjectFields(s, BuildFieldMap(s), []model.Answer{
		{QuestionID: s.Questions[0].ID.Hex(), Value: primitive.A{"Guntur", "", "Kollur"}},
	})
	assert.Equal(t, "Guntur", fields.Parliament)
	assert.Empty(t, fields.Assembly)
	assert.Equal(t, "Kollur", fields.Mandal)
}

func TestIsEmptyValue(t *testing.T) {
	for _, v := range []interface{}{nil, "", "  ", []interface{}{}, primitive.A{}, map[string]interface{}{}, primitive.M{}, primitive.D{}} {
		assert.True(t, IsEmptyValue(v), "%#v", v)
	}
	for _, v := range []interface{}{"x", 0.0, false, []interface{}{"a"}, map[string]interface{}{"r1": "c1"}} {
		assert.False(t, IsEmptyValue(v), "%#v", v)
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "12", Stringify(float64(12)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "7", Stringify(int32(7)))
	assert.Equal(t, "a,b", Stringify([]interface{}{"a", " ", "b"}))
	assert.Equal(t, "", Stringify(map[string]interface{}{"a": 1}))
}
