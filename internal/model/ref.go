package model

import (
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SurveyRefKind tags the variant of a SurveyRef
type SurveyRefKind int

const (
	RefAlias SurveyRefKind = iota + 1
	RefObjectID
	RefSlug
)

func (k SurveyRefKind) String() string {
	switch k {
	case RefAlias:
		return "alias"
	case RefObjectID:
		return "objectId"
	case RefSlug:
		return "slug"
	}
	return "unknown"
}

// SurveyRef is a caller-supplied survey identifier: a small numeric alias,
// a database id, or a slug. Only the field matching Kind is set.
type SurveyRef struct {
	Kind     SurveyRefKind
	Raw      string
	Alias    int
	ObjectID primitive.ObjectID
	Slug     string
}

// ParseSurveyRef classifies raw. Aliases are positive decimal integers.
func ParseSurveyRef(raw string) SurveyRef {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil && n > 0 && !strings.HasPrefix(raw, "+") {
		return SurveyRef{Kind: RefAlias, Raw: raw, Alias: n}
	}
	if oid, err := primitive.ObjectIDFromHex(raw); err == nil {
		return SurveyRef{Kind: RefObjectID, Raw: raw, ObjectID: oid}
	}
	return SurveyRef{Kind: RefSlug, Raw: raw, Slug: raw}
}
