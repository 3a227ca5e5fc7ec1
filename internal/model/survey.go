package model

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldRole names a denormalized response field a question can feed
type FieldRole string

const (
	RoleParliament      FieldRole = "parliament"
	RoleAssembly        FieldRole = "assembly"
	RoleMandal          FieldRole = "mandal"
	RoleRespondentName  FieldRole = "respondentName"
	RoleRespondentPhone FieldRole = "respondentPhone"
	RoleVillageOrStreet FieldRole = "villageOrStreet"
)

// Survey is owned by the authoring service; this service only reads it
type Survey struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name,omitempty" bson:"name,omitempty"`
	Title       string             `json:"title,omitempty" bson:"title,omitempty"`
	Slug        string             `json:"slug,omitempty" bson:"slug,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Questions   []Question         `json:"questions" bson:"questions"`
	// Explicit role -> question identifier (database id, alias id or "qN").
	// Takes precedence over label keywords.
	FieldMapping map[FieldRole]string `json:"fieldMapping,omitempty" bson:"fieldMapping,omitempty"`
	CreatedAt    time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// DisplayName prefers the title, then the name
func (s *Survey) DisplayName() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// Question is one entry in a survey's ordered question list
type Question struct {
	ID    primitive.ObjectID `json:"_id,omitempty" bson:"_id,omitempty"`
	Alias string             `json:"id,omitempty" bson:"id,omitempty"` // free-text id used by older clients
	Label string             `json:"label,omitempty" bson:"label,omitempty"`
	Text  string             `json:"text,omitempty" bson:"text,omitempty"`
	Type  string             `json:"type" bson:"type"` // multiple_choice, checkbox, text, rating, grid types...
	// Options are stored by the authoring service either as strings or as
	// {label, value} documents, so they are kept untyped.
	Options  []interface{} `json:"options,omitempty" bson:"options,omitempty"`
	Required bool          `json:"required,omitempty" bson:"required,omitempty"`
}

// DisplayLabel returns the label, falling back to the question text
func (q *Question) DisplayLabel() string {
	if q.Label != "" {
		return q.Label
	}
	return q.Text
}

// CanonicalID is the identifier stored on answers: the database id when the
// question has one, otherwise its alias.
func (q *Question) CanonicalID() string {
	if !q.ID.IsZero() {
		return q.ID.Hex()
	}
	return q.Alias
}

// Identifiers returns the lowercased ids a client may use for this question
func (q *Question) Identifiers() []string {
	ids := make([]string, 0, 2)
	if !q.ID.IsZero() {
		ids = append(ids, strings.ToLower(q.ID.Hex()))
	}
	if q.Alias != "" {
		ids = append(ids, strings.ToLower(q.Alias))
	}
	return ids
}
