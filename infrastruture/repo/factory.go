package repo

import (
	"context"
	"fmt"

	"github.com/beka-birhanu/ohrace/service/i"
	"go.mongodb.org/mongo-driver/mongo"
)

const episodesCollection = "episodes"

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Settings selects and configures an episode store.
type Settings struct {
	Driver     string // memory, sqlite or mongo
	SQLitePath string
	Mongo      *mongo.Client // required by the mongo driver
	DBName     string
}

// NewEpisodeRepo builds the store named by s.Driver.
func NewEpisodeRepo(ctx context.Context, s Settings) (i.EpisodeRepo, error) {
	switch s.Driver {
	case "", DriverMemory:
		return NewMemoryEpisodeRepo(), nil
	case DriverSQLite:
		r, err := NewSQLiteEpisodeRepo(ctx, s.SQLitePath)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverMongo:
		if s.Mongo == nil {
			return nil, fmt.Errorf("mongo episode store needs a client")
		}
		return NewMongoEpisodeRepo(s.Mongo, s.DBName, episodesCollection), nil
	default:
		return nil, fmt.Errorf("unsupported episode store: %s", s.Driver)
	}
}

// CloseIfSupported closes stores that hold a connection of their own.
func CloseIfSupported(r i.EpisodeRepo) error {
	closer, ok := r.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
