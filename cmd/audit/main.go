package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsurvey/internal/config"
	"fieldsurvey/internal/log"
	"fieldsurvey/internal/repository"
	"fieldsurvey/internal/service"
)

// audit compares the stored denormalized fields of a survey's responses with
// the values projected from their answers. It only reads.
func main() {
	surveyRef := flag.String("survey", "", "survey id, slug or numeric alias")
	samples := flag.Int("samples", 20, "maximum number of mismatches to print")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall timeout")
	flag.Parse()

	if *surveyRef == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Configure(cfg.LogFormat, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.MongoDatabase)
	resolver := service.NewSurveyResolver(repository.NewSurveyRepo(db), cfg.Aliases)

	result, err := service.AuditSurvey(ctx, resolver, repository.NewResponseRepo(db), *surveyRef, *samples)
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}

	log.Printf("Scanned %d responses of survey %s, %d drifted", result.Scanned, result.SurveyID, result.Drifted)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
	if result.Drifted > 0 {
		os.Exit(1)
	}
}
