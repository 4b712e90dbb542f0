package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/model"
	"lsm-digest/internal/pkg/jwtutil"
	"lsm-digest/internal/transport/http/handler"
)

type stubArticles struct {
	articles []model.Article
	category string
}

func (s *stubArticles) FetchForSummary(context.Context, time.Time) ([]model.Article, error) {
	return s.articles, nil
}

func (s *stubArticles) ListByDate(_ context.Context, _ time.Time, category string, _ int64, _ ...string) ([]model.Article, error) {
	s.category = category
	return s.articles, nil
}

type stubSummaries struct {
	stored  *model.DailySummary
	upserts int
}

func (s *stubSummaries) Upsert(context.Context, time.Time, []model.Summary) (*model.UpsertResult, error) {
	s.upserts++
	return &model.UpsertResult{DidUpsert: true, UpsertedID: "6650c0ffee6650c0ffee6650"}, nil
}

func (s *stubSummaries) GetByDate(context.Context, time.Time) (*model.DailySummary, error) {
	return s.stored, nil
}

type stubSessions struct {
	err error
}

func (s *stubSessions) Ensure(_ context.Context, ref ai.SessionRef) (*ai.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Session{ID: ref.SessionID}, nil
}

// stubAgent echoes every correlation id it receives unless text is set.
type stubAgent struct {
	text string
	err  error
}

func (s *stubAgent) Run(_ context.Context, _ ai.SessionRef, content ai.Content) (*ai.RunReply, error) {
	if s.err != nil {
		return nil, s.err
	}
	text := s.text
	if text == "" {
		var refs []string
		for _, p := range content.Parts[1:] {
			var part struct {
				UUID string `json:"uuid"`
			}
			if err := json.Unmarshal([]byte(p.Text), &part); err != nil {
				return nil, err
			}
			refs = append(refs, fmt.Sprintf(`{"uuid":%q,"summary":"S"}`, part.UUID))
		}
		text = `{"summaries":[{"category":"Latvijā","articles":[` + strings.Join(refs, ",") + `]}]}`
	}
	raw, _ := json.Marshal([]map[string]any{{"content": map[string]any{"parts": []map[string]string{{"text": text}}}}})
	return &ai.RunReply{Raw: raw, Events: []ai.Event{{Content: &ai.Content{Parts: []ai.Part{{Text: text}}}}}}, nil
}

type testEnv struct {
	articles  *stubArticles
	summaries *stubSummaries
	sessions  *stubSessions
	agent     *stubAgent
	router    *gin.Engine
}

func newTestEnv(t *testing.T, jwtSecret string, tokenLimit int) *testEnv {
	t.Helper()
	id, err := primitive.ObjectIDFromHex("000000000000000000000a01")
	require.NoError(t, err)

	env := &testEnv{
		articles:  &stubArticles{articles: []model.Article{{ID: id, Title: "T", URL: "U", Category: "Latvijā", Article: "Body"}}},
		summaries: &stubSummaries{},
		sessions:  &stubSessions{},
		agent:     &stubAgent{},
	}
	log := logger.NewNop()
	summarySvc := app.NewSummaryService(app.SummaryServiceDeps{
		Articles:  env.articles,
		Summaries: env.summaries,
		Sessions:  env.sessions,
		Agent:     env.agent,
	}, app.SummaryServiceConfig{
		DefaultAgent:   "lsm_summary_agent",
		SystemIdentity: app.Identity{UserID: "system", SessionID: "daily-summary"},
		TokenLimit:     tokenLimit,
	}, log)

	env.router = newEngine(routes{
		ginMode:   gin.TestMode,
		jwtSecret: jwtSecret,
		log:       log,
		articles:  handler.NewArticleHandler(app.NewArticleService(env.articles, log), log),
		agent:     handler.NewAgentHandler(app.NewChatService(env.sessions, env.agent, nil, log), log),
		summary:   handler.NewSummaryHandler(summarySvc, log),
	})
	return env
}

func (e *testEnv) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRootAndAbout(t *testing.T) {
	env := newTestEnv(t, "", 0)

	rec := env.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/about", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArticleRoutes(t *testing.T) {
	env := newTestEnv(t, "", 0)

	rec := env.do(http.MethodGet, "/api/articles/20240517", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"articles":["Body"]}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/titles/20240517", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"titles":["T"]}`, rec.Body.String())
	assert.Equal(t, "", env.articles.category)

	rec = env.do(http.MethodGet, "/api/titles/c2/20240517", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pasaulē", env.articles.category)

	rec = env.do(http.MethodGet, "/api/articles/2024-05-17", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 40001, decodeError(t, rec).Code)
}

func TestSummaryCreate(t *testing.T) {
	env := newTestEnv(t, "", 0)

	rec := env.do(http.MethodPost, "/api/lsm/summary/daily?date=20240517", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"did_upsert":true,"matched_count":0,"modified_count":0,"upserted_id":"6650c0ffee6650c0ffee6650"}`, rec.Body.String())
	assert.Equal(t, 1, env.summaries.upserts)

	rec = env.do(http.MethodPost, "/api/lsm/summary/daily/other_agent?date=20240517&limit=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSummaryCreateErrors(t *testing.T) {
	cases := []struct {
		name    string
		target  string
		prepare func(env *testEnv)
		status  int
		code    int
	}{
		{name: "bad date", target: "?date=2024", status: http.StatusBadRequest, code: 40001},
		{name: "missing date", target: "", status: http.StatusBadRequest, code: 40001},
		{name: "bad limit", target: "?date=20240517&limit=x", status: http.StatusBadRequest, code: 40000},
		{
			name:    "no articles",
			target:  "?date=20240517",
			prepare: func(env *testEnv) { env.articles.articles = nil },
			status:  http.StatusNotFound,
			code:    40401,
		},
		{
			name:   "session unavailable",
			target: "?date=20240517",
			prepare: func(env *testEnv) {
				env.sessions.err = fmt.Errorf("%w after 5 attempts", ai.ErrSessionUnavailable)
			},
			status: http.StatusServiceUnavailable,
			code:   50300,
		},
		{
			name:   "session probe failed",
			target: "?date=20240517",
			prepare: func(env *testEnv) {
				env.sessions.err = &ai.CallError{Op: "get_session", StatusCode: 500, Body: "oops"}
			},
			status: http.StatusServiceUnavailable,
			code:   50300,
		},
		{
			name:    "agent unreachable",
			target:  "?date=20240517",
			prepare: func(env *testEnv) { env.agent.err = &ai.UnreachableError{Op: "run", Err: context.DeadlineExceeded} },
			status:  http.StatusServiceUnavailable,
			code:    50300,
		},
		{
			name:    "agent rejected",
			target:  "?date=20240517",
			prepare: func(env *testEnv) { env.agent.err = &ai.CallError{Op: "run", StatusCode: 422, Body: "bad"} },
			status:  http.StatusUnprocessableEntity,
			code:    50200,
		},
		{
			name:    "hallucinated uuid",
			target:  "?date=20240517",
			prepare: func(env *testEnv) { env.agent.text = `{"summaries":[{"category":"x","articles":[{"uuid":"ghost","summary":"S"}]}]}` },
			status:  http.StatusInternalServerError,
			code:    50001,
		},
		{
			name:    "malformed reply",
			target:  "?date=20240517",
			prepare: func(env *testEnv) { env.agent.text = `{"summaries":` },
			status:  http.StatusInternalServerError,
			code:    50001,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, "", 0)
			if tc.prepare != nil {
				tc.prepare(env)
			}

			rec := env.do(http.MethodPost, "/api/lsm/summary/daily"+tc.target, "")
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			body := decodeError(t, rec)
			assert.Equal(t, tc.code, body.Code)
			assert.NotContains(t, body.Message, "ghost")
			assert.Zero(t, env.summaries.upserts)
		})
	}
}

func TestSummaryCreatePayloadTooLarge(t *testing.T) {
	env := newTestEnv(t, "", 1)

	rec := env.do(http.MethodPost, "/api/lsm/summary/daily?date=20240517", "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 41300, decodeError(t, rec).Code)
}

func TestSummaryCreateRequiresToken(t *testing.T) {
	env := newTestEnv(t, "s3cret", 0)

	rec := env.do(http.MethodPost, "/api/lsm/summary/daily?date=20240517", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/lsm/summary/daily?date=20240517", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwtutil.GenerateToken("s3cret", time.Hour, "ops")
	require.NoError(t, err)
	rec = env.do(http.MethodPost, "/api/lsm/summary/daily/lsm_summary_agent?date=20240517", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/lsm/summary/daily?date=20240517", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryGet(t *testing.T) {
	env := newTestEnv(t, "", 0)

	rec := env.do(http.MethodGet, "/api/lsm/summary/daily?date=20240517", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40402, decodeError(t, rec).Code)

	day := time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)
	env.summaries.stored = &model.DailySummary{
		Date:      day,
		Summaries: []model.Summary{{Category: "Latvijā", Articles: []model.SummaryArticle{{Title: "T", URL: "U", AISummary: "S"}}}},
		UpdatedAt: day.Add(time.Hour),
	}
	rec = env.do(http.MethodGet, "/api/lsm/summary/daily?date=20240517", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.DailySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, day.Equal(got.Date))
	assert.Equal(t, "S", got.Summaries[0].Articles[0].AISummary)
}

func TestAgentChat(t *testing.T) {
	env := newTestEnv(t, "", 0)
	env.agent.text = "labdien"

	rec := env.do(http.MethodPost, "/api/agent/news_agent?prompt=sveiki&username=anna&sessionId=s-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"content":{"parts":[{"text":"labdien"}]}}]`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/agent/news_agent?prompt=sveiki&username=anna&session_id=s-1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/agent/news_agent?prompt=sveiki", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.agent.err = &ai.CallError{Op: "run", StatusCode: 404, Body: `{"detail":"agent not found"}`}
	rec = env.do(http.MethodPost, "/api/agent/missing?prompt=x&username=anna&sessionId=s-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, float64(404), body.Data["upstream_status"])
	assert.Contains(t, body.Data["upstream_body"], "agent not found")
}
