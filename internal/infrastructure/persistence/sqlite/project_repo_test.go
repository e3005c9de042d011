package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/repotest"
)

func TestSavedProjectRepository(t *testing.T) {
	repotest.RunSavedProjectContract(t, func(t *testing.T) repository.SavedProjectRepository {
		client, err := Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Close() })
		return NewSavedProjectRepository(client)
	})
}

func TestReopenFilePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "projects.db")

	client, err := Open(ctx, path)
	require.NoError(t, err)
	p := repotest.Project("p-file", entity.OwnerFingerprint{OwnerIP: "127.0.0.1"}, entity.ContentTypeVideo, time.Now().UTC())
	require.NoError(t, NewSavedProjectRepository(client).Upsert(ctx, p))
	require.NoError(t, client.Close())

	client, err = Open(ctx, path)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.HealthCheck(ctx))

	got, err := NewSavedProjectRepository(client).Get(ctx, "p-file")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.ContentTypeVideo, got.ContentType)
}
