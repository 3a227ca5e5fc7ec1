package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Answer is one normalized answer. Value is a scalar, an array, or a nested
// document for grid questions.
type Answer struct {
	QuestionID string      `json:"questionId" bson:"questionId"`
	Label      string      `json:"label" bson:"label"`
	Value      interface{} `json:"value" bson:"value"`
}

// Location is a GPS fix captured by the field client
type Location struct {
	Latitude  float64  `json:"latitude" bson:"latitude"`
	Longitude float64  `json:"longitude" bson:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
}

// IsZero reports a fix with no coordinates. Clients that lack GPS send an
// empty object or 0,0, neither of which is a real position.
func (l *Location) IsZero() bool {
	return l == nil || (l.Latitude == 0 && l.Longitude == 0)
}

// MapsLink builds the Google Maps URL for the fix
func (l *Location) MapsLink() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", l.Latitude, l.Longitude)
}

// Metadata records where a submission came from
type Metadata struct {
	UserAgent string `json:"userAgent" bson:"userAgent"`
	IPAddress string `json:"ipAddress" bson:"ipAddress"`
}

// DenormalizedFields duplicates a few answers at the top level for reporting.
// They are always derived from the answers, never edited on their own.
type DenormalizedFields struct {
	Parliament      string `json:"parliament" bson:"parliament"`
	Assembly        string `json:"assembly" bson:"assembly"`
	Mandal          string `json:"mandal" bson:"mandal"`
	RespondentName  string `json:"respondentName" bson:"respondentName"`
	RespondentPhone string `json:"respondentPhone" bson:"respondentPhone"`
	VillageOrStreet string `json:"village_or_street" bson:"village_or_street"`
}

// Response is one stored submission
type Response struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SurveyID  string             `json:"surveyId" bson:"surveyId"`
	UserID    *string            `json:"userId" bson:"userId"` // nil for anonymous submissions
	UserName  string             `json:"userName,omitempty" bson:"userName,omitempty"`
	UserPhone string             `json:"userPhone,omitempty" bson:"userPhone,omitempty"`

	DenormalizedFields `bson:",inline"`

	Location       *Location `json:"location,omitempty" bson:"location,omitempty"`
	GoogleMapsLink string    `json:"googleMapsLink,omitempty" bson:"googleMapsLink,omitempty"`

	Answers  []Answer `json:"answers" bson:"answers"`
	Metadata Metadata `json:"metadata" bson:"metadata"`

	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

// FeedEvent is the live-feed summary of a new response
type FeedEvent struct {
	ID         string    `json:"id"`
	SurveyID   string    `json:"surveyId"`
	UserName   string    `json:"userName,omitempty"`
	Parliament string    `json:"parliament,omitempty"`
	Assembly   string    `json:"assembly,omitempty"`
	Mandal     string    `json:"mandal,omitempty"`
	Location   *Location `json:"location,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// FeedEvent summarizes the response for dashboards
func (r *Response) FeedEvent() FeedEvent {
	return FeedEvent{
		ID:         r.ID.Hex(),
		SurveyID:   r.SurveyID,
		UserName:   r.UserName,
		Parliament: r.Parliament,
		Assembly:   r.Assembly,
		Mandal:     r.Mandal,
		Location:   r.Location,
		CreatedAt:  r.CreatedAt,
	}
}
