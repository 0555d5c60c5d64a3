package archiveRepo

import (
	"context"
	"errors"
	"time"

	"orchid/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new archived session and returns its ID.
func (r *mongoArchiveRepo) Create(ctx context.Context, record models.ArchivedSession) (string, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = time.Now()

	_, err := r.coll.InsertOne(ctx, record)
	if err != nil {
		return "", err
	}
	return record.ID, nil
}

// GetByID returns an archived session by its ID.
func (r *mongoArchiveRepo) GetByID(ctx context.Context, id string) (*models.ArchivedSession, error) {
	var record models.ArchivedSession
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByKTVID fetches all archived sessions for a technician, newest first.
func (r *mongoArchiveRepo) GetByKTVID(ctx context.Context, ktvID string) ([]models.ArchivedSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "endedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"ktvId": ktvID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.ArchivedSession
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteByID removes an archived session by ID.
func (r *mongoArchiveRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errors.New("archived session not found")
	}
	return nil
}
