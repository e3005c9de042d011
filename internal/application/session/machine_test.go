package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ultra-prompt-ai-api/internal/application/edit"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/workflow/port/porttest"
	apperrors "ultra-prompt-ai-api/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSink struct {
	mu    sync.Mutex
	saved []*entity.SavedProject
	err   error
}

func (s *recordingSink) Save(_ context.Context, p *entity.SavedProject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p)
	return s.err
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for _, p := range s.saved {
		out = append(out, p.ID)
	}
	return out
}

var lighthouseQuestions = []entity.Question{
	{ID: 1, QuestionAr: "ما هو المزاج العام؟", ContextKey: "mood", Options: []string{"هادئ", "مغامر"}},
	{ID: 2, QuestionAr: "ما لون التنين؟", ContextKey: "palette", Options: []string{"أخضر", "أزرق"}},
	{ID: 3, QuestionAr: "كم عمر الحارس؟", ContextKey: "age"},
}

func lighthouseDocument() *entity.GenerationDocument {
	return &entity.GenerationDocument{
		CharacterBible: entity.CharacterBible{Characters: []entity.CharacterProfile{
			{Name: "Lira", VisualIdentity: "dark braided hair"},
		}},
		Storybook: entity.Storybook{
			StoryTitle: "The Lighthouse",
			Scenes:     []entity.Scene{{SceneNumber: 1, NarrationEn: "a storm"}, {SceneNumber: 2, NarrationEn: "the dragon"}},
		},
	}
}

func newTestMachine(fake *porttest.FakeClient, sink ProjectSink) *Machine {
	n := 0
	return NewMachine("s-1", entity.OwnerFingerprint{OwnerIP: "10.0.0.1", BrowserID: "ULTRA-ABCDEFGH1"}, fake, sink, Options{
		ConceptMaxChars: 100,
		MaxImages:       2,
		NewProjectID: func() string {
			n++
			return "p-" + string(rune('0'+n))
		},
	})
}

func storyInputs() Inputs {
	return Inputs{
		Concept: "a lighthouse keeper who befriends a sea dragon",
		Options: entity.GenerationOptions{ContentType: entity.ContentTypeStory},
	}
}

func toReady(t *testing.T, m *Machine) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.SetInputs(storyInputs()))
	require.NoError(t, m.ProposeQuestions(ctx))
	require.NoError(t, m.SetAnswers(map[int]string{1: "هادئ", 2: "أزرق"}))
	require.NoError(t, m.Generate(ctx))
}

func TestFullFlowToDocument(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(_ context.Context, in entity.QuestionsInput) ([]entity.Question, error) {
			assert.Equal(t, entity.ContentTypeStory, in.ContentType)
			return lighthouseQuestions, nil
		},
		GenerateFn: func(_ context.Context, _ entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	sink := &recordingSink{}
	m := newTestMachine(fake, sink)
	ctx := context.Background()

	require.NoError(t, m.SetInputs(storyInputs()))
	require.NoError(t, m.ProposeQuestions(ctx))
	snap := m.Snapshot()
	assert.Equal(t, StageQuestionsReady, snap.Stage)
	assert.Len(t, snap.Questions, 3)

	require.NoError(t, m.SetAnswers(map[int]string{1: "هادئ", 2: "أزرق", 3: "ستون", 99: "ignored"}))
	require.NoError(t, m.Generate(ctx))

	snap = m.Snapshot()
	assert.Equal(t, StageDocumentReady, snap.Stage)
	require.NotNil(t, snap.Document)
	assert.NotEmpty(t, snap.Document.Storybook.Scenes)
	assert.NotEmpty(t, snap.Document.CharacterBible.Characters)
	assert.NotContains(t, snap.Answers, 99)

	req := fake.LastRequest()
	assert.Equal(t, "story", req.AnsweredQuestions["content_type"])
	assert.Equal(t, "أزرق", req.AnsweredQuestions["ما لون التنين؟"])
	assert.Len(t, req.AnsweredQuestions, 4)

	// 精修沿用同一项目 id
	require.NoError(t, m.Refine(ctx, "make it darker", nil))
	assert.Equal(t, []string{"p-1", "p-1"}, sink.ids())
}

func TestUnansweredQuestionsUseSentinel(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
	}
	m := newTestMachine(fake, nil)
	ctx := context.Background()
	require.NoError(t, m.SetInputs(storyInputs()))
	require.NoError(t, m.ProposeQuestions(ctx))
	require.NoError(t, m.Generate(ctx))

	for _, q := range lighthouseQuestions {
		assert.Equal(t, "automatic", fake.LastRequest().AnsweredQuestions[q.QuestionAr])
	}
}

func TestGenerateFailureKeepsAnswers(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return nil, apperrors.UpstreamError("model unavailable", errors.New("503"))
		},
	}
	sink := &recordingSink{}
	m := newTestMachine(fake, sink)
	ctx := context.Background()
	require.NoError(t, m.SetInputs(storyInputs()))
	require.NoError(t, m.ProposeQuestions(ctx))
	require.NoError(t, m.SetAnswers(map[int]string{1: "مغامر", 2: "أخضر"}))

	err := m.Generate(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))

	snap := m.Snapshot()
	assert.Equal(t, StageQuestionsReady, snap.Stage)
	assert.Equal(t, map[int]string{1: "مغامر", 2: "أخضر"}, snap.Answers)
	assert.Nil(t, snap.Document)
	assert.Contains(t, snap.LastError, "model unavailable")
	assert.Empty(t, sink.ids())
}

func TestQuestionsFailureReturnsToIdle(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return nil, apperrors.UpstreamError("timeout", context.DeadlineExceeded)
		},
	}
	m := newTestMachine(fake, nil)
	require.NoError(t, m.SetInputs(storyInputs()))
	require.Error(t, m.ProposeQuestions(context.Background()))

	snap := m.Snapshot()
	assert.Equal(t, StageIdle, snap.Stage)
	assert.Equal(t, storyInputs().Concept, snap.Inputs.Concept)
}

func TestEmptyInputRejectedWithoutCall(t *testing.T) {
	fake := &porttest.FakeClient{}
	m := newTestMachine(fake, nil)
	err := m.ProposeQuestions(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrEmptyInput)
	assert.Equal(t, 0, fake.Calls("questions"))
	assert.Equal(t, StageIdle, m.Stage())
}

func TestSetInputsLimits(t *testing.T) {
	m := newTestMachine(&porttest.FakeClient{}, nil)
	long := Inputs{Concept: string(make([]rune, 101))}
	assert.True(t, apperrors.IsPrecondition(m.SetInputs(long)))

	img := entity.NewReferenceImage("image/png", []byte{1})
	assert.True(t, apperrors.IsPrecondition(m.SetInputs(Inputs{Images: []entity.ReferenceImage{img, img, img}})))
}

func TestSecondTriggerWhileInFlightIsBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			close(started)
			<-release
			return lighthouseQuestions, nil
		},
	}
	m := newTestMachine(fake, nil)
	require.NoError(t, m.SetInputs(storyInputs()))

	done := make(chan error, 1)
	go func() { done <- m.ProposeQuestions(context.Background()) }()
	<-started

	assert.Equal(t, StageAwaitingQuestions, m.Stage())
	assert.ErrorIs(t, m.ProposeQuestions(context.Background()), apperrors.ErrSessionBusy)
	assert.ErrorIs(t, m.SetInputs(storyInputs()), apperrors.ErrSessionBusy)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fake.Calls("questions"))
	assert.Equal(t, StageQuestionsReady, m.Stage())
}

func TestResetDropsStaleResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			close(started)
			<-release
			return lighthouseDocument(), nil
		},
	}
	sink := &recordingSink{}
	m := newTestMachine(fake, sink)
	ctx := context.Background()
	require.NoError(t, m.SetInputs(storyInputs()))
	require.NoError(t, m.ProposeQuestions(ctx))

	done := make(chan error, 1)
	go func() { done <- m.Generate(ctx) }()
	<-started
	m.Reset(ctx)
	close(release)

	assert.ErrorIs(t, <-done, apperrors.ErrStaleResponse)
	snap := m.Snapshot()
	assert.Equal(t, StageIdle, snap.Stage)
	assert.Nil(t, snap.Document)
	assert.Empty(t, snap.Questions)
	assert.Empty(t, sink.ids())
}

func TestRefineClearsImages(t *testing.T) {
	img := entity.NewReferenceImage("image/jpeg", []byte{9, 9})
	for _, fail := range []bool{false, true} {
		fake := &porttest.FakeClient{
			QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
				return lighthouseQuestions, nil
			},
			GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
				return lighthouseDocument(), nil
			},
			RefineFn: func(_ context.Context, doc *entity.GenerationDocument, _ string, _ []entity.ReferenceImage) (*entity.GenerationDocument, error) {
				if fail {
					return nil, apperrors.UpstreamError("quota", nil)
				}
				return doc, nil
			},
		}
		m := newTestMachine(fake, nil)
		toReady(t, m)

		err := m.Refine(context.Background(), "use this palette", []entity.ReferenceImage{img})
		assert.Equal(t, fail, err != nil)
		assert.Equal(t, []entity.ReferenceImage{img}, fake.LastRefineImages())

		snap := m.Snapshot()
		assert.Empty(t, snap.Inputs.Images)
		assert.Equal(t, StageDocumentReady, snap.Stage)
		assert.NotNil(t, snap.Document)
	}
}

func TestRefineBlankInstructionKeepsStage(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	m := newTestMachine(fake, nil)
	toReady(t, m)

	err := m.Refine(context.Background(), "   ", nil)
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Equal(t, 0, fake.Calls("refine"))
	assert.Equal(t, StageDocumentReady, m.Stage())
	assert.Empty(t, m.Snapshot().LastError)
}

func TestRewriteSplicesIntoCurrentDocument(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
		RewriteFn: func(context.Context, string, string) (string, error) {
			return "silver braided hair", nil
		},
	}
	sink := &recordingSink{}
	m := newTestMachine(fake, sink)
	toReady(t, m)
	before := m.Snapshot().Document

	ref := edit.FieldRef{Kind: edit.KindCharacter, Index: 0, Field: "visual_identity"}
	text, err := m.Rewrite(context.Background(), ref, "give her silver hair")
	require.NoError(t, err)
	assert.Equal(t, "silver braided hair", text)

	after := m.Snapshot().Document
	assert.Equal(t, "silver braided hair", after.CharacterBible.Characters[0].VisualIdentity)
	assert.Equal(t, "Lira", after.CharacterBible.Characters[0].Name)
	assert.Equal(t, "dark braided hair", before.CharacterBible.Characters[0].VisualIdentity)
	assert.Len(t, sink.ids(), 2)

	_, err = m.Rewrite(context.Background(), edit.FieldRef{Kind: edit.KindCharacter, Index: 5, Field: "visual_identity"}, "x")
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Equal(t, 1, fake.Calls("rewrite"))
}

func TestApplyEditIsSilentOutsideDocumentReady(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	m := newTestMachine(fake, nil)
	e := edit.Edit{FieldRef: edit.FieldRef{Kind: edit.KindScene, Index: 1, Field: "narration_en"}, Value: "calm seas"}
	assert.False(t, m.ApplyEdit(context.Background(), e))

	toReady(t, m)
	assert.True(t, m.ApplyEdit(context.Background(), e))
	assert.Equal(t, "calm seas", m.Snapshot().Document.Storybook.Scenes[1].NarrationEn)

	e.Index = 7
	assert.False(t, m.ApplyEdit(context.Background(), e))
}

func TestEditInputsAndRegenerateKeepsProjectID(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	sink := &recordingSink{}
	m := newTestMachine(fake, sink)
	toReady(t, m)

	require.NoError(t, m.EditInputs(context.Background()))
	assert.Equal(t, StageQuestionsReady, m.Stage())
	require.NoError(t, m.SetAnswers(map[int]string{3: "سبعون"}))
	require.NoError(t, m.Generate(context.Background()))
	assert.Equal(t, []string{"p-1", "p-1"}, sink.ids())
	assert.Equal(t, "سبعون", fake.LastRequest().AnsweredQuestions["كم عمر الحارس؟"])
}

func TestPersistFailureDoesNotFailGeneration(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	m := newTestMachine(fake, &recordingSink{err: errors.New("db down")})
	toReady(t, m)
	assert.Equal(t, StageDocumentReady, m.Stage())
}

func TestLoadAndForgetProject(t *testing.T) {
	m := newTestMachine(&porttest.FakeClient{}, nil)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := &entity.SavedProject{ID: "saved-1", CreatedAt: created, ContentType: entity.ContentTypeStory, Document: lighthouseDocument()}

	assert.ErrorIs(t, m.LoadProject(ctx, &entity.SavedProject{ID: "x"}), apperrors.ErrProjectNotFound)
	require.NoError(t, m.LoadProject(ctx, p))
	snap := m.Snapshot()
	assert.Equal(t, StageDocumentReady, snap.Stage)
	assert.Equal(t, "saved-1", snap.ProjectID)

	assert.False(t, m.ForgetProject(ctx, "other"))
	assert.True(t, m.ForgetProject(ctx, "saved-1"))
	assert.Equal(t, StageIdle, m.Stage())
}

// gatedSink 在保存指定角色名的文档时阻塞，直到 release 关闭
type gatedSink struct {
	recordingSink
	gateName string
	entered  chan struct{}
	release  chan struct{}
}

func (s *gatedSink) Save(ctx context.Context, p *entity.SavedProject) error {
	if p.Document.CharacterBible.Characters[0].Name == s.gateName {
		close(s.entered)
		<-s.release
	}
	return s.recordingSink.Save(ctx, p)
}

func (s *gatedSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for _, p := range s.saved {
		out = append(out, p.Document.CharacterBible.Characters[0].Name)
	}
	return out
}

func TestSlowSaveDoesNotOverwriteNewerDocument(t *testing.T) {
	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return lighthouseQuestions, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	sink := &gatedSink{gateName: "first", entered: make(chan struct{}), release: make(chan struct{})}
	m := newTestMachine(fake, sink)
	toReady(t, m)
	ctx := context.Background()

	rename := func(name string) edit.Edit {
		return edit.Edit{FieldRef: edit.FieldRef{Kind: edit.KindCharacter, Index: 0, Field: "name"}, Value: name}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.True(t, m.ApplyEdit(ctx, rename("first")))
	}()
	<-sink.entered

	go func() {
		defer wg.Done()
		assert.True(t, m.ApplyEdit(ctx, rename("second")))
	}()
	require.Eventually(t, func() bool {
		return m.Snapshot().Document.CharacterBible.Characters[0].Name == "second"
	}, time.Second, time.Millisecond)

	close(sink.release)
	wg.Wait()

	names := sink.names()
	require.NotEmpty(t, names)
	assert.Equal(t, "second", names[len(names)-1])
	assert.Equal(t, []string{"Lira", "first", "second"}, names)

	// 已写入的 revision 不会再次写入
	m.mu.Lock()
	project, rev := m.projectLocked()
	m.mu.Unlock()
	m.persist(ctx, project, rev-1)
	m.persist(ctx, project, rev)
	assert.Len(t, sink.names(), 3)
}

func TestUseQuestionsSkipsRemoteCall(t *testing.T) {
	fake := &porttest.FakeClient{
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return lighthouseDocument(), nil
		},
	}
	m := newTestMachine(fake, nil)
	ctx := context.Background()

	assert.ErrorIs(t, m.UseQuestions(ctx, lighthouseQuestions), apperrors.ErrEmptyInput)

	require.NoError(t, m.SetInputs(storyInputs()))
	dup := []entity.Question{{ID: 1, QuestionAr: "same"}, {ID: 2, QuestionAr: "same"}}
	assert.True(t, apperrors.IsPrecondition(m.UseQuestions(ctx, dup)))
	assert.Equal(t, StageIdle, m.Stage())

	require.NoError(t, m.UseQuestions(ctx, lighthouseQuestions))
	assert.Equal(t, StageQuestionsReady, m.Stage())
	assert.True(t, apperrors.IsPrecondition(m.UseQuestions(ctx, lighthouseQuestions)))

	require.NoError(t, m.SetAnswers(map[int]string{2: "أخضر"}))
	require.NoError(t, m.Generate(ctx))
	assert.Equal(t, "أخضر", fake.LastRequest().AnsweredQuestions["ما لون التنين؟"])
	assert.Equal(t, 0, fake.Calls("questions"))
	assert.Equal(t, 1, fake.Calls("generate"))
}
