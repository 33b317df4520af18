// Package archive keeps a write-only copy of posted bulletin messages outside the process.
// Archived entries are never read back by the board, groups always start empty.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry - archived copy of single posted message.
type Entry struct {
	Group    string    `bson:"group"`
	Index    int       `bson:"index"`
	Author   string    `bson:"author"`
	Subject  string    `bson:"subject"`
	Body     string    `bson:"body"`
	PostedAt time.Time `bson:"posted_at"`
}

// Archiver - sink for posted messages.
type Archiver interface {
	Archive(ctx context.Context, e Entry) error
}

// Mongo - archiver backed by MongoDB collection.
type Mongo struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ErrNoURI - returns when Mongo archiver is requested without connection string.
var ErrNoURI = errors.New("archive.Mongo: connection URI is empty")

// DialMongo - connects to MongoDB and checks the connection with ping.
func DialMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if uri == "" {
		return nil, ErrNoURI
	}
	if database == "" || collection == "" {
		return nil, fmt.Errorf("archive.DialMongo: database (%q) and collection (%q) are required", database, collection)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("archive.DialMongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("archive.DialMongo: ping: %w", err)
	}
	return &Mongo{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Archive - inserts entry as new document.
func (m *Mongo) Archive(ctx context.Context, e Entry) error {
	if _, err := m.collection.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("archive.Mongo: insert %s#%d: %w", e.Group, e.Index, err)
	}
	return nil
}

// Close - disconnects from MongoDB.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
