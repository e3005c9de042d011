package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/domain/repository"
)

func TestListKeyGroupsByOwner(t *testing.T) {
	owner := entity.OwnerFingerprint{OwnerIP: "::1", BrowserID: "ULTRA-AAAAAAAAA"}
	key := ListKey(repository.ProjectFilter{OwnerIP: owner.OwnerIP, BrowserID: owner.BrowserID}, repository.NewPagination(2, 10))

	assert.Equal(t, "projects:list:__1:ULTRA-AAAAAAAAA:_:2:10", key)
	assert.Equal(t, "projects:list:__1:*", ownerPattern(owner))

	all := ListKey(repository.ProjectFilter{ContentType: entity.ContentTypeSong}, repository.NewPagination(1, 20))
	assert.Equal(t, "projects:list:_:_:song:1:20", all)
}

func TestRateLimitKeyEscapesSeparators(t *testing.T) {
	assert.Equal(t, "ratelimit:2001_db8__1", RateLimitKey("2001:db8::1"))
}

func TestSharedLoadOutlivesCancelledCaller(t *testing.T) {
	c := &ProjectListCache{loadTimeout: time.Second}
	started := make(chan struct{})
	release := make(chan struct{})
	var (
		firstErr error
		calls    atomic.Int32
	)
	loader := func(ctx context.Context) (*ProjectPage, error) {
		if calls.Add(1) == 1 {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			firstErr = ctx.Err()
			if firstErr != nil {
				return nil, firstErr
			}
		}
		return &ProjectPage{Total: 3}, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, _, err := c.loadShared(firstCtx, "k", loader)
		firstDone <- err
	}()
	<-started

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	secondDone := make(chan *ProjectPage, 1)
	go func() {
		page, _, err := c.loadShared(context.Background(), "k", loader)
		assert.NoError(t, err)
		secondDone <- page
	}()
	close(release)

	page := <-secondDone
	require.NotNil(t, page)
	assert.EqualValues(t, 3, page.Total)
	assert.NoError(t, firstErr)
}
