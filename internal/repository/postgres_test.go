package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"flowbuilder/backend/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("flowbuilder"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	store := NewPostgresStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")
	require.NoError(t, store.Ping(ctx))

	t.Run("flows keep graph and order", func(t *testing.T) {
		require.NoError(t, store.SaveFlow(ctx, sampleFlow("f1", "first")))
		second := sampleFlow("f2", "second")
		second.Graph.Nodes[0].Config = models.NewConfig("z", "1", "a", "2")
		require.NoError(t, store.SaveFlow(ctx, second))

		flows, err := store.ListFlows(ctx)
		require.NoError(t, err)
		require.Len(t, flows, 2)
		assert.Equal(t, "f2", flows[0].ID)
		assert.Equal(t, []string{"z", "a"}, flows[0].Graph.Nodes[0].Config.Keys())
		assert.Equal(t, []string{"1", "2"}, flows[0].Graph.Nodes[0].Config.Values())

		var graphType string
		require.NoError(t, pool.QueryRow(ctx,
			"SELECT data_type FROM information_schema.columns WHERE table_name = 'flows' AND column_name = 'graph'",
		).Scan(&graphType))
		assert.Equal(t, "json", graphType)

		got, err := store.GetFlow(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
		assert.True(t, got.CreatedAt.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)))

		_, err = store.GetFlow(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("results round trip", func(t *testing.T) {
		line := 3
		r := &models.Result{
			ID:        "r1",
			TestName:  "Checkout",
			Status:    models.StatusFailed,
			Timestamp: time.Now().UTC().Truncate(time.Microsecond),
			Duration:  "4.2s",
			Steps:     []models.StepResult{{Name: "Click Element", Status: models.StatusFailed, Duration: "0.2s"}},
			Analysis: &models.Analysis{
				Failed: 1,
				Errors: []models.ErrorDetail{{Keyword: "Click Element", Message: "not found", Line: &line}},
			},
		}
		require.NoError(t, store.SaveResult(ctx, r))
		require.NoError(t, store.SaveResult(ctx, &models.Result{ID: "r2", Status: models.StatusPassed, Timestamp: time.Now()}))

		got, err := store.GetResult(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status)
		assert.Equal(t, r.Steps, got.Steps)
		require.NotNil(t, got.Analysis)
		assert.Equal(t, 3, *got.Analysis.Errors[0].Line)

		results, err := store.ListResults(ctx)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "r2", results[0].ID)
		assert.Nil(t, results[0].Analysis)
		assert.Empty(t, results[0].Steps)

		_, err = store.GetResult(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
