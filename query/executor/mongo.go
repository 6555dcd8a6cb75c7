package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/mongogen"
)

// ErrUnknownCommand is returned for command types the executor cannot run.
var ErrUnknownCommand = errors.New("unknown document command")

// MongoOptions configures ConnectMongo.
type MongoOptions struct {
	MaxPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// DocumentExecutor runs compiled commands against one MongoDB database.
type DocumentExecutor struct {
	client   *mongo.Client
	database *mongo.Database
}

// ConnectMongo connects to uri, pings the server and selects database.
func ConnectMongo(ctx context.Context, uri, database string, opts MongoOptions) (*DocumentExecutor, error) {
	clientOptions := options.Client().ApplyURI(uri)
	if opts.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOptions.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &DocumentExecutor{client: client, database: client.Database(database)}, nil
}

// NewDocumentExecutor wraps an already selected database.
func NewDocumentExecutor(db *mongo.Database) *DocumentExecutor {
	return &DocumentExecutor{client: db.Client(), database: db}
}

// Database returns the selected database.
func (e *DocumentExecutor) Database() *mongo.Database {
	return e.database
}

// Close disconnects the client.
func (e *DocumentExecutor) Close(ctx context.Context) error {
	return e.client.Disconnect(ctx)
}

// Run executes cmd. Aggregations return the result documents; inserts
// return the inserted documents with their _id; updates and deletes
// return one row with the affected counts.
func (e *DocumentExecutor) Run(ctx context.Context, cmd *mongogen.Command) ([]map[string]any, error) {
	coll := e.database.Collection(cmd.Collection)
	debug.Debug("exec", "running document command", "type", cmd.Type, "collection", cmd.Collection)

	switch cmd.Type {
	case mongogen.Aggregate:
		cursor, err := coll.Aggregate(ctx, toPipeline(cmd.Pipeline))
		if err != nil {
			return nil, fmt.Errorf("aggregate on %s failed: %w", cmd.Collection, err)
		}
		var docs []bson.M
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("failed to decode documents: %w", err)
		}
		rows := make([]map[string]any, len(docs))
		for i, doc := range docs {
			rows[i] = plainMap(doc)
		}
		return rows, nil

	case mongogen.InsertMany:
		res, err := coll.InsertMany(ctx, cmd.Documents)
		if err != nil {
			return nil, fmt.Errorf("insertMany on %s failed: %w", cmd.Collection, err)
		}
		rows := make([]map[string]any, len(cmd.Documents))
		for i, doc := range cmd.Documents {
			row := documentMap(doc)
			if i < len(res.InsertedIDs) {
				row["_id"] = res.InsertedIDs[i]
			}
			rows[i] = row
		}
		return rows, nil

	case mongogen.UpdateMany:
		res, err := coll.UpdateMany(ctx, cmd.Filter, cmd.Update)
		if err != nil {
			return nil, fmt.Errorf("updateMany on %s failed: %w", cmd.Collection, err)
		}
		return []map[string]any{{
			"matchedCount":  res.MatchedCount,
			"modifiedCount": res.ModifiedCount,
		}}, nil

	case mongogen.DeleteMany:
		res, err := coll.DeleteMany(ctx, cmd.Filter)
		if err != nil {
			return nil, fmt.Errorf("deleteMany on %s failed: %w", cmd.Collection, err)
		}
		return []map[string]any{{"deletedCount": res.DeletedCount}}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
}

func toPipeline(stages []bson.D) mongo.Pipeline {
	p := make(mongo.Pipeline, len(stages))
	copy(p, stages)
	return p
}

func documentMap(doc interface{}) map[string]any {
	switch d := doc.(type) {
	case bson.D:
		m := make(map[string]any, len(d))
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m
	case bson.M:
		return plainMap(d)
	case map[string]any:
		return plainMap(d)
	default:
		return map[string]any{}
	}
}

// plainMap converts decoded documents into plain Go maps and slices.
func plainMap(m map[string]interface{}) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v interface{}) any {
	switch t := v.(type) {
	case bson.M:
		return plainMap(t)
	case bson.D:
		return documentMap(t)
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	default:
		return v
	}
}
