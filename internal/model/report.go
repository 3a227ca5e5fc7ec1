package model

import "time"

// ReportWindow bounds createdAt; nil ends are open
type ReportWindow struct {
	Start *time.Time `json:"startDate,omitempty"`
	End   *time.Time `json:"endDate,omitempty"`
}

// AnswerCount is one answer value within a crosstab group
type AnswerCount struct {
	Answer interface{} `json:"answer" bson:"answer"`
	Count  int         `json:"count" bson:"count"`
}

// CrosstabRow is one group of a crosstab
type CrosstabRow struct {
	Group               interface{}   `json:"group" bson:"group"`
	Answers             []AnswerCount `json:"answers" bson:"answers"`
	TotalGroupResponses int           `json:"totalGroupResponses" bson:"totalGroupResponses"`
}

// CrosstabReport is the crosstab of one question against a grouping dimension
type CrosstabReport struct {
	SurveyID   string        `json:"surveyId"`
	QuestionID string        `json:"questionId"`
	GroupBy    string        `json:"groupBy"`
	Rows       []CrosstabRow `json:"rows"`
}

// DistributionEntry counts one option
type DistributionEntry struct {
	Option interface{} `json:"option" bson:"option"`
	Count  int         `json:"count" bson:"count"`
}

// AnalyticsReport is a single-dimension distribution
type AnalyticsReport struct {
	SurveyID       string              `json:"surveyId"`
	QuestionID     string              `json:"questionId"`
	Distribution   []DistributionEntry `json:"distribution"`
	TotalResponses int                 `json:"totalResponses"`
}

// ContributorCount is one submitter's count
type ContributorCount struct {
	UserID   string `json:"userId,omitempty" bson:"userId,omitempty"`
	UserName string `json:"userName" bson:"userName"`
	Count    int    `json:"count" bson:"count"`
}

// DailyRow is one day of the daily report
type DailyRow struct {
	Date  string             `json:"date" bson:"date"`
	Total int                `json:"total" bson:"total"`
	Users []ContributorCount `json:"users" bson:"users"`
}

// DailySummary is computed over all days of the window
type DailySummary struct {
	TotalResponses int               `json:"totalResponses"`
	ActiveDays     int               `json:"activeDays"`
	AvgPerDay      float64           `json:"avgPerDay"`
	TopContributor *ContributorCount `json:"topContributor"`
}

// DailyReport groups responses by date and submitter
type DailyReport struct {
	SurveyID string       `json:"surveyId"`
	Summary  DailySummary `json:"summary"`
	Days     []DailyRow   `json:"days"`
}

// ValueCount counts one answer value of a question
type ValueCount struct {
	Value interface{} `json:"value" bson:"value"`
	Count int         `json:"count" bson:"count"`
}

// QuestionSummary is the value histogram of one question
type QuestionSummary struct {
	QuestionID   string       `json:"questionId" bson:"questionId"`
	Label        string       `json:"label" bson:"label"`
	Answers      []ValueCount `json:"answers" bson:"answers"`
	TotalAnswers int          `json:"totalAnswers" bson:"totalAnswers"`
}

// SummaryReport is the per-question histogram of every answer
type SummaryReport struct {
	SurveyID       string            `json:"surveyId"`
	TotalResponses int               `json:"totalResponses"`
	Questions      []QuestionSummary `json:"questions"`
}

// SpatialPoint is one located response for map rendering
type SpatialPoint struct {
	ID         string    `json:"id" bson:"id"`
	Lat        float64   `json:"lat" bson:"lat"`
	Lng        float64   `json:"lng" bson:"lng"`
	UserName   string    `json:"userName" bson:"userName"`
	Parliament string    `json:"parliament" bson:"parliament"`
	Assembly   string    `json:"assembly" bson:"assembly"`
	Mandal     string    `json:"mandal" bson:"mandal"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
}

// SpatialReport lists located responses
type SpatialReport struct {
	SurveyID string         `json:"surveyId"`
	Points   []SpatialPoint `json:"points"`
	Total    int            `json:"total"`
}
