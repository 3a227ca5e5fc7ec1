package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"fieldsurvey/internal/model"
)

// UsersCollection holds field agents; reports join it for display names
const UsersCollection = "users"

// Dimension selects what a report counts or groups by: a top-level response
// field, or the answer to a question matched by any of its stored ids.
type Dimension struct {
	Field       string
	QuestionIDs []string
}

// IsField reports whether the dimension reads a top-level field
func (d Dimension) IsField() bool {
	return d.Field != ""
}

// DailyEntry is one (date, submitter) bucket of the daily report
type DailyEntry struct {
	Date     string  `bson:"date"`
	UserID   *string `bson:"userId"`
	UserName string  `bson:"userName"`
	Count    int     `bson:"count"`
}

// ReportRepo runs the read-only reporting aggregations over responses
type ReportRepo interface {
	Crosstab(ctx context.Context, surveyID string, window model.ReportWindow, target, groupBy Dimension) ([]model.CrosstabRow, error)
	Distribution(ctx context.Context, surveyID string, window model.ReportWindow, target Dimension) ([]model.DistributionEntry, int, error)
	Daily(ctx context.Context, surveyID string, window model.ReportWindow, timezone string) ([]DailyEntry, error)
	Summary(ctx context.Context, surveyID string, window model.ReportWindow) ([]model.QuestionSummary, int, error)
	Spatial(ctx context.Context, surveyID string, window model.ReportWindow) ([]model.SpatialPoint, error)
}

type reportRepo struct {
	responses *mongo.Collection
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *mongo.Database) ReportRepo {
	return &reportRepo{
		responses: db.Collection("responses"),
	}
}

func (r *reportRepo) Crosstab(ctx context.Context, surveyID string, window model.ReportWindow, target, groupBy Dimension) ([]model.CrosstabRow, error) {
	rows := []model.CrosstabRow{}
	if err := r.aggregate(ctx, CrosstabPipeline(surveyID, window, target, groupBy), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *reportRepo) Distribution(ctx context.Context, surveyID string, window model.ReportWindow, target Dimension) ([]model.DistributionEntry, int, error) {
	var facets []struct {
		Distribution []model.DistributionEntry `bson:"distribution"`
		Total        []struct {
			N int `bson:"n"`
		} `bson:"total"`
	}
	if err := r.aggregate(ctx, DistributionPipeline(surveyID, window, target), &facets); err != nil {
		return nil, 0, err
	}

	entries := []model.DistributionEntry{}
	total := 0
	if len(facets) > 0 {
		if facets[0].Distribution != nil {
			entries = facets[0].Distribution
		}
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].N
		}
	}
	return entries, total, nil
}

func (r *reportRepo) Daily(ctx context.Context, surveyID string, window model.ReportWindow, timezone string) ([]DailyEntry, error) {
	entries := []DailyEntry{}
	if err := r.aggregate(ctx, DailyPipeline(surveyID, window, timezone), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *reportRepo) Summary(ctx context.Context, surveyID string, window model.ReportWindow) ([]model.QuestionSummary, int, error) {
	var facets []struct {
		Questions []model.QuestionSummary `bson:"questions"`
		Total     []struct {
			N int `bson:"n"`
		} `bson:"total"`
	}
	if err := r.aggregate(ctx, SummaryPipeline(surveyID, window), &facets); err != nil {
		return nil, 0, err
	}

	questions := []model.QuestionSummary{}
	total := 0
	if len(facets) > 0 {
		if facets[0].Questions != nil {
			questions = facets[0].Questions
		}
		if len(facets[0].Total) > 0 {
			total = facets[0].Total[0].N
		}
	}
	return questions, total, nil
}

func (r *reportRepo) Spatial(ctx context.Context, surveyID string, window model.ReportWindow) ([]model.SpatialPoint, error) {
	points := []model.SpatialPoint{}
	if err := r.aggregate(ctx, SpatialPipeline(surveyID, window), &points); err != nil {
		return nil, err
	}
	return points, nil
}

func (r *reportRepo) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	cursor, err := r.responses.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// MatchStage scopes a pipeline to one survey and the createdAt window
func MatchStage(surveyID string, window model.ReportWindow) bson.D {
	filter := bson.M{"surveyId": surveyID}
	created := bson.M{}
	if window.Start != nil {
		created["$gte"] = *window.Start
	}
	if window.End != nil {
		created["$lte"] = *window.End
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}
	return bson.D{{Key: "$match", Value: filter}}
}

// ValueExpr is the aggregation expression reading a dimension's value
func ValueExpr(d Dimension) interface{} {
	if d.IsField() {
		return "$" + d.Field
	}
	return bson.M{"$let": bson.M{
		"vars": bson.M{"hit": bson.M{"$arrayElemAt": bson.A{
			bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$answers", bson.A{}}},
				"as":    "a",
				"cond":  bson.M{"$in": bson.A{"$$a.questionId", questionIDs(d)}},
			}},
			0,
		}}},
		"in": "$$hit.value",
	}}
}

func questionIDs(d Dimension) bson.A {
	ids := make(bson.A, 0, len(d.QuestionIDs))
	for _, id := range d.QuestionIDs {
		ids = append(ids, id)
	}
	return ids
}

// unwindValues turns field into an array (scalars wrapped) and unwinds it,
// so each element of an array answer counts once.
func unwindValues(field string) []bson.D {
	ref := "$" + field
	return []bson.D{
		{{Key: "$addFields", Value: bson.M{
			field: bson.M{"$cond": bson.A{bson.M{"$isArray": ref}, ref, bson.A{ref}}},
		}}},
		{{Key: "$unwind", Value: ref}},
		{{Key: "$match", Value: bson.M{field: bson.M{"$nin": bson.A{nil, ""}}}}},
	}
}

// CrosstabPipeline counts target values within each group. Missing or empty
// groups collapse into "Unknown".
func CrosstabPipeline(surveyID string, window model.ReportWindow, target, groupBy Dimension) mongo.Pipeline {
	pipeline := mongo.Pipeline{
		MatchStage(surveyID, window),
		{{Key: "$project", Value: bson.M{
			"_group":  ValueExpr(groupBy),
			"_target": ValueExpr(target),
		}}},
		{{Key: "$match", Value: bson.M{"_target": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$addFields", Value: bson.M{
			"_group": bson.M{"$let": bson.M{
				"vars": bson.M{"g": bson.M{"$ifNull": bson.A{"$_group", ""}}},
				"in":   bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$$g", ""}}, "Unknown", "$$g"}},
			}},
		}}},
	}
	pipeline = append(pipeline, unwindValues("_target")...)
	pipeline = append(pipeline,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"group": "$_group", "answer": "$_target"},
			"count": bson.M{"$sum": 1},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id.answer", Value: 1}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":                 "$_id.group",
			"answers":             bson.M{"$push": bson.M{"answer": "$_id.answer", "count": "$count"}},
			"totalGroupResponses": bson.M{"$sum": "$count"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":                 0,
			"group":               "$_id",
			"answers":             1,
			"totalGroupResponses": 1,
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "totalGroupResponses", Value: -1}, {Key: "group", Value: 1}}}},
	)
	return pipeline
}

// DistributionPipeline counts target values and matching responses in one pass
func DistributionPipeline(surveyID string, window model.ReportWindow, target Dimension) mongo.Pipeline {
	distribution := bson.A{
		bson.D{{Key: "$project", Value: bson.M{"_v": ValueExpr(target)}}},
	}
	for _, stage := range unwindValues("_v") {
		distribution = append(distribution, stage)
	}
	distribution = append(distribution,
		bson.D{{Key: "$group", Value: bson.M{"_id": "$_v", "count": bson.M{"$sum": 1}}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		bson.D{{Key: "$project", Value: bson.M{"_id": 0, "option": "$_id", "count": 1}}},
	)

	return mongo.Pipeline{
		MatchStage(surveyID, window),
		{{Key: "$facet", Value: bson.M{
			"distribution": distribution,
			"total":        bson.A{bson.D{{Key: "$count", Value: "n"}}},
		}}},
	}
}

// userNameLookup joins users by the string form of their _id
func userNameLookup(localField string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.M{
		"from": UsersCollection,
		"let":  bson.M{"uid": "$" + localField},
		"pipeline": bson.A{
			bson.D{{Key: "$match", Value: bson.M{"$expr": bson.M{"$and": bson.A{
				bson.M{"$ne": bson.A{"$$uid", nil}},
				bson.M{"$eq": bson.A{bson.M{"$toString": "$_id"}, "$$uid"}},
			}}}}},
			bson.D{{Key: "$project", Value: bson.M{"name": 1}}},
			bson.D{{Key: "$limit", Value: 1}},
		},
		"as": "_user",
	}}}
}

// DailyPipeline buckets responses by local date and by userId, or userName
// for anonymous submitters.
func DailyPipeline(surveyID string, window model.ReportWindow, timezone string) mongo.Pipeline {
	return mongo.Pipeline{
		MatchStage(surveyID, window),
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"day": bson.M{"$dateToString": bson.M{
					"format":   "%Y-%m-%d",
					"date":     "$createdAt",
					"timezone": timezone,
				}},
				"who": bson.M{"$ifNull": bson.A{"$userId", "$userName"}},
			},
			"count":    bson.M{"$sum": 1},
			"userId":   bson.M{"$first": "$userId"},
			"userName": bson.M{"$first": "$userName"},
		}}},
		userNameLookup("userId"),
		{{Key: "$project", Value: bson.M{
			"_id":    0,
			"date":   "$_id.day",
			"userId": 1,
			"count":  1,
			"userName": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$_user.name", 0}},
				bson.M{"$ifNull": bson.A{"$userName", ""}},
			}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "count", Value: -1}, {Key: "userName", Value: 1}}}},
	}
}

// SummaryPipeline histograms every answered value per stored question id
func SummaryPipeline(surveyID string, window model.ReportWindow) mongo.Pipeline {
	questions := bson.A{
		bson.D{{Key: "$unwind", Value: "$answers"}},
		bson.D{{Key: "$project", Value: bson.M{
			"_q":     "$answers.questionId",
			"_label": "$answers.label",
			"_v":     "$answers.value",
		}}},
	}
	for _, stage := range unwindValues("_v") {
		questions = append(questions, stage)
	}
	questions = append(questions,
		bson.D{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"q": "$_q", "v": "$_v"},
			"count": bson.M{"$sum": 1},
			"label": bson.M{"$first": "$_label"},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id.v", Value: 1}}}},
		bson.D{{Key: "$group", Value: bson.M{
			"_id":          "$_id.q",
			"label":        bson.M{"$first": "$label"},
			"answers":      bson.M{"$push": bson.M{"value": "$_id.v", "count": "$count"}},
			"totalAnswers": bson.M{"$sum": "$count"},
		}}},
		bson.D{{Key: "$project", Value: bson.M{
			"_id":          0,
			"questionId":   "$_id",
			"label":        bson.M{"$ifNull": bson.A{"$label", ""}},
			"answers":      1,
			"totalAnswers": 1,
		}}},
	)

	return mongo.Pipeline{
		MatchStage(surveyID, window),
		{{Key: "$facet", Value: bson.M{
			"questions": questions,
			"total":     bson.A{bson.D{{Key: "$count", Value: "n"}}},
		}}},
	}
}

func toDouble(expr interface{}) bson.M {
	return bson.M{"$convert": bson.M{
		"input":   expr,
		"to":      "double",
		"onError": nil,
		"onNull":  nil,
	}}
}

// SpatialPipeline lists located responses, newest first. Coordinates come from
// location or from the legacy top-level latitude/longitude.
func SpatialPipeline(surveyID string, window model.ReportWindow) mongo.Pipeline {
	return mongo.Pipeline{
		MatchStage(surveyID, window),
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"location.latitude": bson.M{"$ne": nil}},
			bson.M{"latitude": bson.M{"$ne": nil}},
		}}}},
		{{Key: "$addFields", Value: bson.M{
			"_lat": toDouble(bson.M{"$ifNull": bson.A{"$location.latitude", "$latitude"}}),
			"_lng": toDouble(bson.M{"$ifNull": bson.A{"$location.longitude", "$longitude"}}),
		}}},
		{{Key: "$match", Value: bson.M{"_lat": bson.M{"$ne": nil}, "_lng": bson.M{"$ne": nil}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		userNameLookup("userId"),
		{{Key: "$project", Value: bson.M{
			"_id": 0,
			"id":  bson.M{"$toString": "$_id"},
			"lat": "$_lat",
			"lng": "$_lng",
			"userName": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$_user.name", 0}},
				bson.M{"$ifNull": bson.A{"$userName", ""}},
			}},
			"parliament": bson.M{"$ifNull": bson.A{"$parliament", ""}},
			"assembly":   bson.M{"$ifNull": bson.A{"$assembly", ""}},
			"mandal":     bson.M{"$ifNull": bson.A{"$mandal", ""}},
			"createdAt":  1,
		}}},
	}
}
