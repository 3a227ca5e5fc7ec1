package repository

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsurvey/internal/model"
)

// ResponseFilter scopes a response listing. Empty fields do not filter.
type ResponseFilter struct {
	SurveyID string
	UserName string // case-insensitive substring
}

// SubmitterKey identifies whose submissions are compared for duplicates.
// A nil UserID matches anonymous responses only.
type SubmitterKey struct {
	SurveyID  string
	UserID    *string
	IPAddress string // optional, narrows anonymous matching
}

// ResponseRepo persists survey responses
type ResponseRepo interface {
	Create(ctx context.Context, response *model.Response) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Response, error)
	// FindLatestSince returns the newest response by the submitter created at or after since
	FindLatestSince(ctx context.Context, key SubmitterKey, since time.Time) (*model.Response, error)
	List(ctx context.Context, filter ResponseFilter, page, limit int) ([]*model.Response, error)
	Count(ctx context.Context, filter ResponseFilter) (int64, error)
	// ForEach streams every response of a survey, oldest first
	ForEach(ctx context.Context, surveyID string, fn func(*model.Response) error) error
	EnsureIndexes(ctx context.Context)
}

type responseRepo struct {
	collection *mongo.Collection
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database) ResponseRepo {
	return &responseRepo{
		collection: db.Collection("responses"),
	}
}

func (r *responseRepo) EnsureIndexes(ctx context.Context) {
	createIndex(ctx, r.collection, bson.D{
		{Key: "surveyId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	createIndex(ctx, r.collection, bson.D{
		{Key: "surveyId", Value: 1},
		{Key: "userId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	createIndex(ctx, r.collection, bson.D{
		{Key: "surveyId", Value: 1},
		{Key: "parliament", Value: 1},
	}, false)
}

func (r *responseRepo) Create(ctx context.Context, response *model.Response) error {
	if response.CreatedAt.IsZero() {
		response.CreatedAt = time.Now().UTC()
	}
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = response.CreatedAt
	}

	result, err := r.collection.InsertOne(ctx, response)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		response.ID = oid
	}
	return nil
}

func (r *responseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Response, error) {
	var response model.Response
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepo) FindLatestSince(ctx context.Context, key SubmitterKey, since time.Time) (*model.Response, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var response model.Response
	err := r.collection.FindOne(ctx, SubmitterFilter(key, since), opts).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *responseRepo) List(ctx context.Context, filter ResponseFilter, page, limit int) ([]*model.Response, error) {
	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, ListFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := make([]*model.Response, 0, limit)
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, err
	}
	return responses, nil
}

func (r *responseRepo) Count(ctx context.Context, filter ResponseFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, ListFilter(filter))
}

func (r *responseRepo) ForEach(ctx context.Context, surveyID string, fn func(*model.Response) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"surveyId": surveyID}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var response model.Response
		if err := cursor.Decode(&response); err != nil {
			return err
		}
		if err := fn(&response); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// ListFilter builds the find filter for a response listing
func ListFilter(filter ResponseFilter) bson.M {
	query := bson.M{}
	if filter.SurveyID != "" {
		query["surveyId"] = filter.SurveyID
	}
	if filter.UserName != "" {
		query["userName"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.UserName), Options: "i"}
	}
	return query
}

// SubmitterFilter matches a submitter's responses created at or after since.
// userId null also matches documents written without the field.
func SubmitterFilter(key SubmitterKey, since time.Time) bson.M {
	query := bson.M{
		"surveyId":  key.SurveyID,
		"createdAt": bson.M{"$gte": since},
	}
	if key.UserID != nil {
		query["userId"] = *key.UserID
	} else {
		query["userId"] = nil
	}
	if key.IPAddress != "" {
		query["metadata.ipAddress"] = key.IPAddress
	}
	return query
}
