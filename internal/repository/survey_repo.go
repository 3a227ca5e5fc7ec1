package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsurvey/internal/model"
)

// SurveyRepo reads surveys owned by the authoring service
type SurveyRepo interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Survey, error)
	GetBySlug(ctx context.Context, slug string) (*model.Survey, error)
	// FindNewestByTitle matches pattern case-insensitively against name or title
	FindNewestByTitle(ctx context.Context, pattern string) (*model.Survey, error)
	// GetNthNewest returns the nth (1-based) survey by descending creation time
	GetNthNewest(ctx context.Context, n int) (*model.Survey, error)
	Create(ctx context.Context, survey *model.Survey) (string, error)
	EnsureIndexes(ctx context.Context)
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database) SurveyRepo {
	return &surveyRepo{
		collection: db.Collection("surveys"),
	}
}

func (r *surveyRepo) EnsureIndexes(ctx context.Context) {
	createIndex(ctx, r.collection, bson.D{{Key: "slug", Value: 1}}, false)
	createIndex(ctx, r.collection, bson.D{{Key: "createdAt", Value: -1}}, false)
}

func (r *surveyRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Survey, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *surveyRepo) GetBySlug(ctx context.Context, slug string) (*model.Survey, error) {
	if slug == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"slug": slug})
}

func (r *surveyRepo) FindNewestByTitle(ctx context.Context, pattern string) (*model.Survey, error) {
	re := primitive.Regex{Pattern: pattern, Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"title": re},
	}}
	return r.findOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *surveyRepo) GetNthNewest(ctx context.Context, n int) (*model.Survey, error) {
	if n < 1 {
		return nil, nil
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(n - 1))
	return r.findOne(ctx, bson.M{}, opts)
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	if survey.CreatedAt.IsZero() {
		survey.CreatedAt = time.Now()
	}
	survey.UpdatedAt = time.Now()
	for i := range survey.Questions {
		if survey.Questions[i].ID.IsZero() {
			survey.Questions[i].ID = primitive.NewObjectID()
		}
	}

	result, err := r.collection.InsertOne(ctx, survey)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	survey.ID = oid
	return oid.Hex(), nil
}

func (r *surveyRepo) findOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*model.Survey, error) {
	var survey model.Survey
	err := r.collection.FindOne(ctx, filter, opts...).Decode(&survey)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &survey, nil
}
