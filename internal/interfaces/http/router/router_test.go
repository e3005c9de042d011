package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultra-prompt-ai-api/internal/application/project"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/config"
	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/infrastructure/persistence/memory"
	"ultra-prompt-ai-api/internal/interfaces/http/handler"
	"ultra-prompt-ai-api/internal/interfaces/http/middleware"
	"ultra-prompt-ai-api/internal/interfaces/http/router"
	"ultra-prompt-ai-api/internal/workflow/port/porttest"
)

const browserID = "ULTRA-ABCDEFGH1"

type stubLimiter struct{ allow bool }

func (l stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allow, nil
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		ErrorCode string `json:"error_code"`
	} `json:"error"`
}

type testServer struct {
	engine   *gin.Engine
	fake     *porttest.FakeClient
	sessions *session.Manager
	health   *handler.HealthHandler
}

func newTestServer(t *testing.T, limiter middleware.RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := &porttest.FakeClient{
		QuestionsFn: func(context.Context, entity.QuestionsInput) ([]entity.Question, error) {
			return []entity.Question{
				{ID: 1, QuestionAr: "ما هو المزاج العام؟", ContextKey: "mood", Options: []string{"هادئ", "مغامر"}},
				{ID: 2, QuestionAr: "كم عمر الحارس؟", ContextKey: "age"},
			}, nil
		},
		GenerateFn: func(context.Context, entity.GenerationRequest) (*entity.GenerationDocument, error) {
			return &entity.GenerationDocument{
				CharacterBible: entity.CharacterBible{Characters: []entity.CharacterProfile{{Name: "Lira"}}},
				Storybook: entity.Storybook{
					StoryTitle: "The Lighthouse",
					Scenes:     []entity.Scene{{SceneNumber: 1, NarrationEn: "a storm"}},
				},
			}, nil
		},
		RewriteFn: func(_ context.Context, _, instruction string) (string, error) {
			return "rewritten: " + instruction, nil
		},
	}

	projects := project.NewService(memory.NewSavedProjectRepository(), nil, nil, project.Options{UpsertTries: 1})
	sessions := session.NewManager(fake, projects, session.Options{ConceptMaxChars: 200, MaxImages: 2}, time.Hour)
	health := handler.NewHealthHandler("test")

	cfg := &config.Config{}
	cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}

	r := router.New(cfg, router.Handlers{
		Health:  health,
		Options: handler.NewOptionsHandler(),
		Session: handler.NewSessionHandler(sessions, projects),
		Project: handler.NewProjectHandler(projects, sessions),
		Rewrite: handler.NewRewriteHandler(refine.NewEngine(fake)),
	}, limiter)

	return &testServer{engine: r.Engine(), fake: fake, sessions: sessions, health: health}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.BrowserIDHeader, browserID)
	req.RemoteAddr = "192.0.2.10:41000"

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type sessionView struct {
	ID        string                     `json:"id"`
	Stage     string                     `json:"stage"`
	Questions []entity.Question          `json:"questions"`
	Document  *entity.GenerationDocument `json:"document"`
	ProjectID string                     `json:"project_id"`
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s.health.Require("db", stubChecker{}).Optional("redis", stubChecker{err: errors.New("down")})
	w, _ = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"degraded"`)

	s.health.Require("db", stubChecker{err: errors.New("down")})
	w, _ = s.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestOptionsCatalog(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodGet, "/v1/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Data)
	assert.Equal(t, browserID, w.Header().Get(middleware.BrowserIDHeader))
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode[sessionView](t, env.Data).ID
	require.NotEmpty(t, sid)
	base := "/v1/sessions/" + sid

	w, _ = s.do(t, http.MethodPut, base+"/inputs", map[string]any{
		"concept": "a lighthouse keeper who befriends a sea dragon",
		"options": map[string]any{"content_type": "story"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, base+"/questions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[sessionView](t, env.Data)
	assert.Equal(t, "questionsReady", view.Stage)
	assert.Len(t, view.Questions, 2)

	w, _ = s.do(t, http.MethodPut, base+"/answers", map[string]any{"answers": map[string]string{"1": "هادئ"}})
	require.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodPost, base+"/generate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[sessionView](t, env.Data)
	assert.Equal(t, "documentReady", view.Stage)
	require.NotEmpty(t, view.ProjectID)

	req := s.fake.LastRequest()
	assert.Equal(t, "هادئ", req.AnsweredQuestions["ما هو المزاج العام؟"])
	assert.Equal(t, "story", req.AnsweredQuestions["content_type"])

	w, env = s.do(t, http.MethodGet, "/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Projects []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"projects"`
	}](t, env.Data)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, view.ProjectID, list.Projects[0].ID)
	assert.Equal(t, "The Lighthouse", list.Projects[0].Title)

	w, env = s.do(t, http.MethodPatch, base+"/document", map[string]any{
		"entity_kind": "scene", "index": 0, "field": "narration_en", "value": "calm seas",
	})
	require.Equal(t, http.StatusOK, w.Code)
	edited := decode[struct {
		Applied bool        `json:"applied"`
		Session sessionView `json:"session"`
	}](t, env.Data)
	assert.True(t, edited.Applied)
	assert.Equal(t, "calm seas", edited.Session.Document.Storybook.Scenes[0].NarrationEn)

	w, env = s.do(t, http.MethodPatch, base+"/document", map[string]any{
		"entity_kind": "scene", "index": 9, "field": "narration_en", "value": "ignored",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[struct {
		Applied bool `json:"applied"`
	}](t, env.Data).Applied)

	w, env = s.do(t, http.MethodPost, base+"/rewrite", map[string]any{
		"entity_kind": "scene", "index": 0, "field": "narration_en", "instruction": "more drama",
	})
	require.Equal(t, http.StatusOK, w.Code)
	rewritten := decode[struct {
		Text    string      `json:"text"`
		Session sessionView `json:"session"`
	}](t, env.Data)
	assert.Equal(t, "rewritten: more drama", rewritten.Text)
	assert.Equal(t, rewritten.Text, rewritten.Session.Document.Storybook.Scenes[0].NarrationEn)

	w, _ = s.do(t, http.MethodDelete, "/v1/projects/"+view.ProjectID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, env = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", decode[sessionView](t, env.Data).Stage)

	w, _ = s.do(t, http.MethodGet, "/v1/projects/"+view.ProjectID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/v1/sessions", nil)
	base := "/v1/sessions/" + decode[sessionView](t, env.Data).ID

	w, env := s.do(t, http.MethodPost, base+"/questions", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "4001", env.Error.ErrorCode)

	w, _ = s.do(t, http.MethodPost, base+"/generate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPut, base+"/inputs", map[string]any{
		"concept": "x",
		"images":  []map[string]string{{"mime_type": "image/png", "data": "%%%"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPut, base+"/inputs", map[string]any{
		"images": []map[string]string{{"mime_type": "text/plain", "data": "aGk="}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/v1/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionIsScopedToOwner(t *testing.T) {
	s := newTestServer(t, nil)

	_, env := s.do(t, http.MethodPost, "/v1/sessions", nil)
	sid := decode[sessionView](t, env.Data).ID

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sid, nil)
	req.Header.Set(middleware.BrowserIDHeader, "ULTRA-ZZZZZZZZZ")
	req.RemoteAddr = "192.0.2.10:41000"
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStandaloneRewrite(t *testing.T) {
	s := newTestServer(t, nil)

	w, env := s.do(t, http.MethodPost, "/v1/rewrite", map[string]string{"current_text": "hello", "instruction": "shout"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rewritten: shout", decode[struct {
		Text string `json:"text"`
	}](t, env.Data).Text)

	w, _ = s.do(t, http.MethodPost, "/v1/rewrite", map[string]string{"current_text": "hello", "instruction": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 1, s.fake.Calls("rewrite"))
}

func TestRateLimitRejects(t *testing.T) {
	s := newTestServer(t, stubLimiter{allow: false})

	w, _ := s.do(t, http.MethodGet, "/v1/options", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w, _ = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
