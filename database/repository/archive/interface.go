package archiveRepo

import (
	"context"

	"orchid/database"
	"orchid/models"

	"go.mongodb.org/mongo-driver/mongo"
)

type SessionArchiveRepository interface {
	Create(ctx context.Context, record models.ArchivedSession) (string, error)
	GetByID(ctx context.Context, id string) (*models.ArchivedSession, error)
	GetByKTVID(ctx context.Context, ktvID string) ([]models.ArchivedSession, error)
	DeleteByID(ctx context.Context, id string) error
}

type mongoArchiveRepo struct {
	coll *mongo.Collection
}

// NewMongoArchiveRepo returns a new SessionArchiveRepository instance using MongoDB.
func NewMongoArchiveRepo() SessionArchiveRepository {
	db := database.MongoClient.Database("orchid")
	return &mongoArchiveRepo{
		coll: db.Collection("session_archive"),
	}
}
