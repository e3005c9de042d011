package postgres

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/repotest"
)

func TestRowMappingKeepsOwnerAndNames(t *testing.T) {
	owner := entity.OwnerFingerprint{OwnerIP: "192.168.1.9", BrowserID: "ULTRA-ZZZZZZZZZ"}
	p := repotest.Project("p-9", owner, entity.ContentTypeSong, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))

	row, err := toRow(p)
	require.NoError(t, err)
	assert.Equal(t, "saved_projects", row.TableName())
	assert.Equal(t, "song", row.ContentType)
	assert.Equal(t, []string{"Lira"}, []string(row.CharacterNames))

	back, err := row.toEntity()
	require.NoError(t, err)
	assert.Equal(t, owner, back.Owner)
	assert.Equal(t, entity.UntitledProject, back.Title)
	assert.Empty(t, cmp.Diff(p.Document, back.Document))
}

func TestRowWithCorruptDocument(t *testing.T) {
	_, err := (&savedProjectRow{ID: "bad", Document: []byte("{")}).toEntity()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
