// Package repotest 提供 SavedProjectRepository 各实现共用的契约测试
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

var base = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

// Project 构造测试用项目
func Project(id string, owner entity.OwnerFingerprint, ct entity.ContentType, updated time.Time) *entity.SavedProject {
	doc := &entity.GenerationDocument{
		CharacterBible: entity.CharacterBible{Characters: []entity.CharacterProfile{{Name: "Lira", VisualIdentity: "silver hair"}}},
		Storybook:      entity.Storybook{StoryTitle: "Tide " + id, Scenes: []entity.Scene{{SceneNumber: 1, NarrationAr: "البحر"}}},
	}
	req := entity.GenerationRequest{
		Concept:           "a lighthouse keeper who befriends a sea dragon",
		GenerationOptions: entity.GenerationOptions{ContentType: ct, Style: "Watercolor"},
	}
	p := entity.NewSavedProject(id, req, doc, owner, updated)
	return p
}

// RunSavedProjectContract 对任一实现运行同一组行为断言
func RunSavedProjectContract(t *testing.T, newRepo func(t *testing.T) repository.SavedProjectRepository) {
	alice := entity.OwnerFingerprint{OwnerIP: "10.0.0.1", BrowserID: "ULTRA-AAAAAAAAA"}
	bob := entity.OwnerFingerprint{OwnerIP: "10.0.0.2", BrowserID: "ULTRA-BBBBBBBBB"}

	t.Run("get missing returns nil", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.Get(context.Background(), "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("upsert round trips document", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		p := Project("p-1", alice, entity.ContentTypeStory, base)
		require.NoError(t, repo.Upsert(ctx, p))

		got, err := repo.Get(ctx, "p-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, cmp.Diff(p.Document, got.Document))
		assert.Equal(t, alice, got.Owner)
		assert.Equal(t, []string{"Lira"}, got.CharacterNames)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.Equal(t, "Tide p-1", got.Title)
	})

	t.Run("upsert keeps created_at", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Upsert(ctx, Project("p-1", alice, entity.ContentTypeStory, base)))

		later := Project("p-1", alice, entity.ContentTypeStory, base.Add(time.Hour))
		later.Document.Storybook.Scenes[0].NarrationAr = "العاصفة"
		require.NoError(t, repo.Upsert(ctx, later))
		assert.True(t, base.Equal(later.CreatedAt))

		got, err := repo.Get(ctx, "p-1")
		require.NoError(t, err)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.True(t, base.Add(time.Hour).Equal(got.UpdatedAt))
		assert.Equal(t, "العاصفة", got.Document.Storybook.Scenes[0].NarrationAr)

		page, err := repo.List(ctx, repository.ProjectFilter{}, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.EqualValues(t, 1, page.Total)
	})

	t.Run("list filters and orders by updated_at desc", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		for i := range 5 {
			owner := alice
			ct := entity.ContentTypeStory
			if i%2 == 1 {
				owner = bob
				ct = entity.ContentTypeSong
			}
			require.NoError(t, repo.Upsert(ctx, Project(fmt.Sprintf("p-%d", i), owner, ct, base.Add(time.Duration(i)*time.Minute))))
		}

		page, err := repo.List(ctx, repository.ProjectFilter{OwnerIP: alice.OwnerIP}, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.EqualValues(t, 3, page.Total)
		assert.Equal(t, []string{"p-4", "p-2", "p-0"}, ids(page.Items))

		page, err = repo.List(ctx, repository.ProjectFilter{ContentType: entity.ContentTypeSong}, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.Equal(t, []string{"p-3", "p-1"}, ids(page.Items))

		page, err = repo.List(ctx, repository.ProjectFilter{}, repository.NewPagination(2, 2))
		require.NoError(t, err)
		assert.EqualValues(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, []string{"p-2", "p-1"}, ids(page.Items))
	})

	t.Run("list includes legacy rows without browser id", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		legacy := entity.OwnerFingerprint{OwnerIP: alice.OwnerIP}
		other := entity.OwnerFingerprint{OwnerIP: alice.OwnerIP, BrowserID: "ULTRA-CCCCCCCCC"}
		require.NoError(t, repo.Upsert(ctx, Project("p-own", alice, entity.ContentTypeStory, base)))
		require.NoError(t, repo.Upsert(ctx, Project("p-legacy", legacy, entity.ContentTypeStory, base.Add(time.Minute))))
		require.NoError(t, repo.Upsert(ctx, Project("p-other", other, entity.ContentTypeStory, base.Add(2*time.Minute))))

		filter := repository.ProjectFilter{OwnerIP: alice.OwnerIP, BrowserID: alice.BrowserID}
		page, err := repo.List(ctx, filter, repository.NewPagination(1, 10))
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
		assert.Equal(t, []string{"p-legacy", "p-own"}, ids(page.Items))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Upsert(ctx, Project("p-1", alice, entity.ContentTypeImage, base)))
		require.NoError(t, repo.Delete(ctx, "p-1"))
		require.NoError(t, repo.Delete(ctx, "p-1"))
		got, err := repo.Get(ctx, "p-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func ids(items []*entity.SavedProject) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}
	return out
}
