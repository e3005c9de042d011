package edit

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/domain/entity"
)

func fixture() *entity.GenerationDocument {
	return &entity.GenerationDocument{
		CharacterBible: entity.CharacterBible{Characters: []entity.CharacterProfile{
			{Name: "Lira", VisualIdentity: "dark braided hair", VoiceProfile: entity.VoiceProfile{Pitch: "mid"}},
			{Name: "Thalos", VisualIdentity: "emerald scales"},
		}},
		LocationAssets: []entity.LocationAsset{{NameEn: "Lighthouse"}},
		Storybook: entity.Storybook{Scenes: []entity.Scene{
			{SceneNumber: 1, NarrationAr: "أ"},
			{SceneNumber: 2, NarrationAr: "ب"},
			{SceneNumber: 3, NarrationAr: "ج"},
		}},
		Video: entity.Video{Scenes: []entity.VideoScene{
			{Scene: entity.Scene{SceneNumber: 1}, Tracks: entity.VideoTracks{VFX: "rain"}},
		}},
		Song: entity.Song{LyricsStructure: []entity.SongSegment{{SectionType: "verse"}, {SectionType: "chorus"}}},
	}
}

func TestApplyCopyOnWrite(t *testing.T) {
	doc := fixture()
	before := fixture()
	origScenes := doc.Storybook.Scenes

	out, ok := Apply(doc, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 1, Field: "narration_ar"}, Value: "جديد"})
	require.True(t, ok)

	assert.Empty(t, cmp.Diff(before, doc), "input document must not change")
	assert.Equal(t, "ب", origScenes[1].NarrationAr)

	require.Len(t, out.Storybook.Scenes, 3)
	assert.Equal(t, "جديد", out.Storybook.Scenes[1].NarrationAr)
	assert.Equal(t, doc.Storybook.Scenes[0], out.Storybook.Scenes[0])
	assert.Equal(t, doc.Storybook.Scenes[2], out.Storybook.Scenes[2])

	expected := doc.Storybook.Scenes[1]
	expected.NarrationAr = "جديد"
	assert.Equal(t, expected, out.Storybook.Scenes[1], "only the target field differs")

	// 未触及的集合按引用复用
	assert.Same(t, &doc.CharacterBible.Characters[0], &out.CharacterBible.Characters[0])
	assert.Same(t, &doc.LocationAssets[0], &out.LocationAssets[0])
	assert.Same(t, &doc.Song.LyricsStructure[0], &out.Song.LyricsStructure[0])
}

func TestApplyNestedFields(t *testing.T) {
	doc := fixture()

	out, ok := Apply(doc, Edit{FieldRef: FieldRef{Kind: KindCharacter, Index: 0, Field: "voice_profile.pitch"}, Value: "low"})
	require.True(t, ok)
	assert.Equal(t, "low", out.CharacterBible.Characters[0].VoiceProfile.Pitch)
	assert.Equal(t, "Lira", out.CharacterBible.Characters[0].Name)

	out, ok = Apply(doc, Edit{FieldRef: FieldRef{Kind: KindVideoScene, Index: 0, Field: "tracks.vfx"}, Value: "snow"})
	require.True(t, ok)
	assert.Equal(t, "snow", out.Video.Scenes[0].Tracks.VFX)
	assert.Equal(t, 1, out.Video.Scenes[0].SceneNumber)

	out, ok = Apply(doc, Edit{FieldRef: FieldRef{Kind: KindSongSegment, Index: 1, Field: "technical_specs.camera"}, Value: "crane"})
	require.True(t, ok)
	assert.Equal(t, "crane", out.Song.LyricsStructure[1].TechnicalSpecs.Camera)
}

func TestApplySilentNoOp(t *testing.T) {
	doc := fixture()
	tests := []struct {
		name string
		doc  *entity.GenerationDocument
		edit Edit
	}{
		{"no document", nil, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 0, Field: "narration_ar"}}},
		{"index out of range", doc, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 3, Field: "narration_ar"}}},
		{"negative index", doc, Edit{FieldRef: FieldRef{Kind: KindCharacter, Index: -1, Field: "name"}}},
		{"unknown field", doc, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 0, Field: "nope"}}},
		{"non string field", doc, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 0, Field: "scene_number"}}},
		{"object field", doc, Edit{FieldRef: FieldRef{Kind: KindCharacter, Index: 0, Field: "voice_profile"}}},
		{"bad path syntax", doc, Edit{FieldRef: FieldRef{Kind: KindScene, Index: 0, Field: "narration_ar|@reverse"}}},
		{"unknown kind", doc, Edit{FieldRef: FieldRef{Kind: "location", Index: 0, Field: "name_en"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := Apply(tt.doc, tt.edit)
			assert.False(t, ok)
			assert.Same(t, tt.doc, out)
		})
	}
}

func TestFieldValue(t *testing.T) {
	doc := fixture()
	v, ok := FieldValue(doc, FieldRef{Kind: KindCharacter, Index: 1, Field: "visual_identity"})
	require.True(t, ok)
	assert.Equal(t, "emerald scales", v)

	_, ok = FieldValue(doc, FieldRef{Kind: KindCharacter, Index: 2, Field: "visual_identity"})
	assert.False(t, ok)
	_, ok = FieldValue(nil, FieldRef{Kind: KindCharacter, Field: "name"})
	assert.False(t, ok)
}
