// Package main contains a small backfill tool that re-evaluates the week
// completion predicate for every enrollment and adds any weeks that satisfy
// it but are missing from completedWeeks. Useful after course content is
// trimmed, which can leave learners one removed item short of completion.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"academyapp/internal/catalog"
	"academyapp/internal/config"
	"academyapp/internal/models"
	"academyapp/internal/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	var dbURI string
	var dbName string
	var batchSize int
	var dryRun bool
	var maxUsers int

	flag.StringVar(&dbURI, "db", os.Getenv("ACADEMY_DATABASE_URI"), "MongoDB connection URI (or set ACADEMY_DATABASE_URI)")
	flag.StringVar(&dbName, "name", "academy", "Database name")
	flag.IntVar(&batchSize, "batch", 500, "Number of users to process per batch")
	flag.BoolVar(&dryRun, "dry-run", true, "If true, don't write completions; just print what would be written")
	flag.IntVar(&maxUsers, "max", 0, "Maximum number of users to process (0 = no limit)")
	flag.Parse()

	if dbURI == "" {
		log.Fatal("database URI must be provided via -db or ACADEMY_DATABASE_URI")
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	ctx := context.Background()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dbURI))
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer func() {
		if cerr := client.Disconnect(ctx); cerr != nil {
			log.Printf("warning: failed to disconnect: %v", cerr)
		}
	}()

	users := client.Database(dbName).Collection(config.UsersCollection)

	processed := 0
	added := 0
	var lastID interface{}
	for {
		if maxUsers > 0 && processed >= maxUsers {
			log.Printf("reached max %d users, stopping", maxUsers)
			break
		}

		// page by _id so each batch picks up where the previous one ended
		filter := bson.M{"userProgress": bson.M{"$exists": true, "$ne": bson.M{}}}
		if lastID != nil {
			filter["_id"] = bson.M{"$gt": lastID}
		}
		opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}).SetLimit(int64(batchSize))

		cursor, err := users.Find(ctx, filter, opts)
		if err != nil {
			log.Fatalf("failed to query users: %v", err)
		}

		var batch []models.User
		if err := cursor.All(ctx, &batch); err != nil {
			log.Fatalf("decode users: %v", err)
		}

		if len(batch) == 0 {
			log.Println("no more users to process; done")
			break
		}
		lastID = batch[len(batch)-1].ID

		for i := range batch {
			user := &batch[i]
			if maxUsers > 0 && processed >= maxUsers {
				break
			}

			for courseID, progress := range user.UserProgress {
				course, err := cat.Course(courseID)
				if err != nil {
					log.Printf("warning: user %s enrolled in unknown course '%s'; skipping", user.HexID(), courseID)
					continue
				}

				for w := range course.Weeks {
					week := &course.Weeks[w]
					if progress.HasCompletedWeek(week.Number) {
						continue
					}
					if !services.WeekSatisfied(course, week, &progress) {
						continue
					}

					if dryRun {
						log.Printf("[dry-run] would complete: user=%s course=%s week=%d", user.HexID(), courseID, week.Number)
						added++
						continue
					}

					_, err := users.UpdateByID(ctx, user.ID, bson.M{
						"$addToSet": bson.M{"userProgress." + courseID + ".completedWeeks": week.Number},
					})
					if err != nil {
						log.Fatalf("failed to complete week for user %s course %s week %d: %v", user.HexID(), courseID, week.Number, err)
					}
					log.Printf("completed: user=%s course=%s week=%d", user.HexID(), courseID, week.Number)
					added++
				}
			}

			processed++
		}

		// small pause to avoid overwhelming the server
		time.Sleep(200 * time.Millisecond)
	}

	log.Printf("done; processed %d users, %d weeks added", processed, added)
}
