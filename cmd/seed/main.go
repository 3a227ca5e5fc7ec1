package main

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsurvey/internal/config"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/model"
	"fieldsurvey/internal/repository"
	"fieldsurvey/internal/service"
)

const devAgentID = "000000000000000000000001"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)
	surveyRepo := repository.NewSurveyRepo(db)
	repository.NewResponseRepo(db).EnsureIndexes(ctx)
	surveyRepo.EnsureIndexes(ctx)

	now := time.Now().UTC()
	for i, survey := range []*model.Survey{prajabhiprayamSurvey(), msrSurvey()} {
		existing, err := surveyRepo.GetBySlug(ctx, survey.Slug)
		if err != nil {
			log.Fatalf("Failed to look up survey %s: %v", survey.Slug, err)
		}
		if existing != nil {
			log.Printf("Survey %s already present: %s", survey.Slug, existing.ID.Hex())
			continue
		}
		// Alias 1 is the newest survey, so MSR is created last
		survey.CreatedAt = now.Add(time.Duration(i) * time.Second)
		id, err := surveyRepo.Create(ctx, survey)
		if err != nil {
			log.Fatalf("Failed to insert survey %s: %v", survey.Slug, err)
		}
		log.Printf("Inserted survey %s: %s", survey.Slug, id)
	}

	agentID, _ := primitive.ObjectIDFromHex(devAgentID)
	_, err = db.Collection(repository.UsersCollection).UpdateOne(ctx,
		bson.M{"_id": agentID},
		bson.M{"$set": bson.M{"name": "Dev Field Agent", "phone": "9000000000"}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Fatalf("Failed to upsert dev user: %v", err)
	}

	token, err := service.NewAuthService(cfg.JWTSecret).IssueUserToken(devAgentID, "Dev Field Agent", "9000000000", 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to issue dev token: %v", err)
	}
	fmt.Printf("Dev field agent token (24h):\n%s\n", token)
}

func msrSurvey() *model.Survey {
	return &model.Survey{
		Title:       "MSR Survey",
		Slug:        "msr-survey",
		Description: "Constituency-level opinion survey",
		Questions: []model.Question{
			{ID: primitive.NewObjectID(), Alias: "constituency", Label: "Parliament Constituency / పార్లమెంట్ నియోజకవర్గం", Type: "hierarchical", Required: true},
			{ID: primitive.NewObjectID(), Label: "Assembly Constituency / అసెంబ్లీ నియోజకవర్గం", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Mandal / మండలం", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Village / గ్రామం", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Respondent Name / మీ పేరు", Type: "text"},
			{ID: primitive.NewObjectID(), Label: "Phone Number", Type: "text"},
			{ID: primitive.NewObjectID(), Alias: "q_support", Label: "Which party do you support?", Type: "multiple_choice",
				Options: []interface{}{"A", "B", "C", "Undecided"}},
			{ID: primitive.NewObjectID(), Label: "How satisfied are you with local services?", Type: "rating",
				Options: []interface{}{1, 2, 3, 4, 5}},
		},
	}
}

func prajabhiprayamSurvey() *model.Survey {
	return &model.Survey{
		Title: "Prajabhiprayam / ప్రజాభిప్రాయం",
		Slug:  "prajabhiprayam",
		Questions: []model.Question{
			{ID: primitive.NewObjectID(), Alias: "district", Label: "District", Type: "text"},
			{ID: primitive.NewObjectID(), Alias: "mla", Label: "Assembly", Type: "text"},
			{ID: primitive.NewObjectID(), Alias: "ward_no", Label: "Ward number", Type: "text"},
			{ID: primitive.NewObjectID(), Alias: "issues", Label: "Top issues", Type: "checkbox",
				Options: []interface{}{
					map[string]interface{}{"label": "Roads", "value": "roads"},
					map[string]interface{}{"label": "Water", "value": "water"},
					map[string]interface{}{"label": "Jobs", "value": "jobs"},
				}},
			{ID: primitive.NewObjectID(), Alias: "services", Label: "Rate services", Type: "grid"},
		},
		// These labels carry no role keywords
		FieldMapping: map[model.FieldRole]string{
			model.RoleAssembly: "mla",
			model.RoleMandal:   "ward_no",
		},
	}
}
