package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pesio-ai/be-brand-navigator/internal/database"
	"github.com/pesio-ai/be-brand-navigator/internal/database/dbtest"
	"github.com/pesio-ai/be-brand-navigator/internal/errors"
	"github.com/pesio-ai/be-brand-navigator/internal/status"
)

// brandStore is the surface shared by the postgres and memory repositories.
type brandStore interface {
	Create(ctx context.Context, brand *Brand, entry *StatusHistoryEntry) error
	GetByID(ctx context.Context, id string) (*Brand, error)
	List(ctx context.Context, filter ListFilter) ([]*Brand, int64, error)
	Transition(ctx context.Context, id string, from, to status.BrandStatus, entry *StatusHistoryEntry) (*Brand, error)
	Delete(ctx context.Context, id string) error
	GetByBrandID(ctx context.Context, brandID string) ([]*StatusHistoryEntry, error)
}

type postgresStore struct {
	*BrandRepository
	history *StatusHistoryRepository
}

func (s postgresStore) GetByBrandID(ctx context.Context, brandID string) ([]*StatusHistoryEntry, error) {
	return s.history.GetByBrandID(ctx, brandID)
}

func createBrand(t *testing.T, ctx context.Context, store brandStore, owner, name string) *Brand {
	t.Helper()

	brand := &Brand{OwnerID: owner, Name: name, CurrentStatus: status.NewBrand}
	entry := &StatusHistoryEntry{Action: ActionCreated, StatusAfter: status.NewBrand, PerformedBy: owner}
	require.NoError(t, store.Create(ctx, brand, entry))
	require.NotEmpty(t, brand.ID)
	return brand
}

func runStoreContract(t *testing.T, store brandStore) {
	ctx := context.Background()
	owner := "owner-" + uuid.NewString()

	t.Run("create and get", func(t *testing.T) {
		brand := createBrand(t, ctx, store, owner, "Acme")

		loaded, err := store.GetByID(ctx, brand.ID)
		require.NoError(t, err)
		assert.Equal(t, "Acme", loaded.Name)
		assert.Equal(t, owner, loaded.OwnerID)
		assert.Equal(t, status.NewBrand, loaded.CurrentStatus)
		assert.False(t, loaded.CreatedAt.IsZero())
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.NewString())
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))

		_, err = store.GetByID(ctx, "not-a-uuid")
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	})

	t.Run("transition records history", func(t *testing.T) {
		brand := createBrand(t, ctx, store, owner, "Globex")

		before := status.NewBrand
		updated, err := store.Transition(ctx, brand.ID, status.NewBrand, status.Questionnaire, &StatusHistoryEntry{
			Action:       ActionProgressed,
			StatusBefore: &before,
			StatusAfter:  status.Questionnaire,
			PerformedBy:  owner,
			Metadata:     map[string]any{"source": "test"},
		})
		require.NoError(t, err)
		assert.Equal(t, status.Questionnaire, updated.CurrentStatus)

		history, err := store.GetByBrandID(ctx, brand.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, ActionCreated, history[0].Action)
		assert.Nil(t, history[0].StatusBefore)
		assert.Equal(t, ActionProgressed, history[1].Action)
		require.NotNil(t, history[1].StatusBefore)
		assert.Equal(t, status.NewBrand, *history[1].StatusBefore)
		assert.Equal(t, status.Questionnaire, history[1].StatusAfter)
		assert.Equal(t, "test", history[1].Metadata["source"])
	})

	t.Run("transition with stale status conflicts", func(t *testing.T) {
		brand := createBrand(t, ctx, store, owner, "Initech")

		_, err := store.Transition(ctx, brand.ID, status.Summary, status.JTBD, &StatusHistoryEntry{
			Action:      ActionProgressed,
			StatusAfter: status.JTBD,
		})
		assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

		_, err = store.Transition(ctx, uuid.NewString(), status.Summary, status.JTBD, &StatusHistoryEntry{
			Action:      ActionProgressed,
			StatusAfter: status.JTBD,
		})
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	})

	t.Run("list filters and paginates", func(t *testing.T) {
		listOwner := "lister-" + uuid.NewString()
		for _, name := range []string{"a", "b", "c"} {
			createBrand(t, ctx, store, listOwner, name)
		}

		brands, total, err := store.List(ctx, ListFilter{OwnerID: listOwner, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, brands, 2)

		rest, _, err := store.List(ctx, ListFilter{OwnerID: listOwner, Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)

		st := status.Questionnaire
		filtered, total, err := store.List(ctx, ListFilter{OwnerID: listOwner, Status: &st, Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, filtered)
	})

	t.Run("delete", func(t *testing.T) {
		brand := createBrand(t, ctx, store, owner, "Umbrella")

		require.NoError(t, store.Delete(ctx, brand.ID))
		_, err := store.GetByID(ctx, brand.ID)
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))

		err = store.Delete(ctx, brand.ID)
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	})
}

func TestMemoryRepository(t *testing.T) {
	t.Parallel()
	runStoreContract(t, NewMemoryRepository())
}

func TestPostgresRepository(t *testing.T) {
	db, cleanup := dbtest.SetupTestContainer(t)
	defer cleanup()

	tracer := database.NoOpTracer()
	runStoreContract(t, postgresStore{
		BrandRepository: NewBrandRepository(db, tracer),
		history:         NewStatusHistoryRepository(db, tracer),
	})
}

func TestPostgresRepository_Spans(t *testing.T) {
	db, cleanup := dbtest.SetupTestContainer(t)
	defer cleanup()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	repo := NewBrandRepository(db, tp.Tracer("brand-navigator/repository"))
	ctx := context.Background()

	brand := &Brand{OwnerID: "owner", Name: "Traced", CurrentStatus: status.NewBrand}
	require.NoError(t, repo.Create(ctx, brand, &StatusHistoryEntry{Action: ActionCreated, StatusAfter: status.NewBrand}))
	_, err := repo.GetByID(ctx, brand.ID)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "postgres.create_brand", spans[0].Name())
	assert.Equal(t, "postgres.get_brand", spans[1].Name())
}

func TestMemoryRepository_ConcurrentTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryRepository()
	brand := createBrand(t, ctx, store, "owner", "Race")

	const goroutines = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Transition(ctx, brand.ID, status.NewBrand, status.Questionnaire, &StatusHistoryEntry{
				Action:      ActionProgressed,
				StatusAfter: status.Questionnaire,
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes, "compare-and-set admits exactly one transition")

	history, err := store.GetByBrandID(ctx, brand.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
