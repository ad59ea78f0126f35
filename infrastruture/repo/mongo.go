package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	dmn "github.com/beka-birhanu/ohrace/domain"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoEpisodeRepo handles the persistence of episode records in MongoDB.
type MongoEpisodeRepo struct {
	collection *mongo.Collection
}

// NewMongoEpisodeRepo creates a new MongoEpisodeRepo with the given MongoDB client, database name, and collection name.
func NewMongoEpisodeRepo(client *mongo.Client, dbName, collectionName string) *MongoEpisodeRepo {
	collection := client.Database(dbName).Collection(collectionName)
	return &MongoEpisodeRepo{
		collection: collection,
	}
}

// Save inserts or replaces an episode record.
func (r *MongoEpisodeRepo) Save(ctx context.Context, rec sim.EpisodeRecord) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	filter := bson.M{"_id": rec.EpisodeID}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, filter, rec, opts); err != nil {
		return errors.New("unexpected error: " + err.Error())
	}
	return nil
}

// ByID retrieves an episode by its ID.
func (r *MongoEpisodeRepo) ByID(ctx context.Context, id uuid.UUID) (*sim.EpisodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	filter := bson.M{"_id": id}
	var rec sim.EpisodeRecord
	if err := r.collection.FindOne(ctx, filter).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("episode %s: %w", id, dmn.ErrNotFound)
		}
		return nil, errors.New("unexpected error: " + err.Error())
	}
	return &rec, nil
}

// ByAlgorithm lists the newest episodes of an algorithm label.
func (r *MongoEpisodeRepo) ByAlgorithm(ctx context.Context, algorithm string, limit int) ([]sim.EpisodeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	filter := bson.M{"algorithm": algorithm}
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.New("unexpected error: " + err.Error())
	}

	var recs []sim.EpisodeRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, errors.New("unexpected error: " + err.Error())
	}
	return recs, nil
}
