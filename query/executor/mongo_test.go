package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/satishbabariya/strata/query/executor"
	"github.com/satishbabariya/strata/query/mongogen"
)

func TestDocumentExecutorRejectsUnknownCommand(t *testing.T) {
	ctx := context.Background()

	// Connect does not dial; no server is needed until an operation runs.
	client, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	exec := executor.NewDocumentExecutor(client.Database("strata"))
	assert.Equal(t, "strata", exec.Database().Name())

	_, err = exec.Run(ctx, &mongogen.Command{Type: "mapReduce", Collection: "users"})
	assert.ErrorIs(t, err, executor.ErrUnknownCommand)
}
