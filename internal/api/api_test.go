package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/matjip-discussion/internal/auth"
	"github.com/UkralStul/matjip-discussion/internal/discussion"
	"github.com/UkralStul/matjip-discussion/internal/domain"
	"github.com/UkralStul/matjip-discussion/internal/events"
	"github.com/UkralStul/matjip-discussion/internal/ratelimit"
	"github.com/UkralStul/matjip-discussion/internal/storage/inmemory"
)

type testEnv struct {
	srv    *httptest.Server
	tokens map[string]string
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	observer := events.NewCommentObserver()
	svc := discussion.New(inmemory.New(), discussion.WithLogger(log), discussion.WithObserver(observer))
	validator, err := auth.NewValidator("test-secret")
	require.NoError(t, err)

	router := NewRouter(Options{
		Service:      svc,
		Observer:     observer,
		Validator:    validator,
		Limiter:      limiter,
		Logger:       log,
		PingInterval: 50 * time.Millisecond,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	env := &testEnv{srv: srv, tokens: map[string]string{}}
	for _, p := range []*domain.Principal{
		{UserID: "alice", Nickname: "앨리스", Role: domain.RoleUser},
		{UserID: "bob", Nickname: "밥", Role: domain.RoleUser},
		{UserID: "admin", Nickname: "관리자", Role: domain.RoleAdmin},
	} {
		token, err := validator.Sign(p, time.Hour)
		require.NoError(t, err)
		env.tokens[p.UserID] = token
	}
	return env
}

// do отправляет запрос от имени пользователя; пустой user - анонимно.
func (e *testEnv) do(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[user])
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func requireProblem(t *testing.T, resp *http.Response, status int, code domain.Code) Problem {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	p := decode[Problem](t, resp)
	assert.Equal(t, status, p.Status)
	assert.Equal(t, code, p.Code)
	assert.NotEmpty(t, p.TraceID)
	return p
}

func (e *testEnv) createItem(t *testing.T, space, user, title string) *domain.ContentItem {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/"+space+"/items", user, map[string]string{
		"title": title,
		"body":  `{"ops":[{"insert":"국물이 진해요\n"}]}`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[*domain.ContentItem](t, resp)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, resp))
}

func TestItemLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/board/items", "", map[string]string{"title": "맛집", "body": "본문"})
	requireProblem(t, resp, http.StatusUnauthorized, domain.CodeAuthentication)

	resp = env.do(t, http.MethodPost, "/board/items", "alice", map[string]string{"title": "맛", "body": "본문"})
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeValidation)

	resp = env.do(t, http.MethodPost, "/board/items", "alice", map[string]any{"title": "맛집", "body": "본문", "extra": 1})
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeValidation)

	item := env.createItem(t, "board", "alice", "맛집")
	assert.Equal(t, domain.SpaceBoard, item.Space)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/board/items/%d", item.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[domain.ContentItem](t, resp)
	assert.Equal(t, "맛집", got.Title)
	assert.Nil(t, got.Recommended)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/blog/items/%d", item.ID), "", nil)
	requireProblem(t, resp, http.StatusNotFound, domain.CodeNotFound)

	resp = env.do(t, http.MethodGet, "/board/items/abc", "", nil)
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeValidation)

	resp = env.do(t, http.MethodGet, "/forum/items", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	update := map[string]string{"title": "맛집 (수정)", "body": "새 본문"}
	resp = env.do(t, http.MethodPut, fmt.Sprintf("/board/items/%d", item.ID), "bob", update)
	requireProblem(t, resp, http.StatusForbidden, domain.CodePermission)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/board/items/%d", item.ID), "alice", update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "맛집 (수정)", decode[domain.ContentItem](t, resp).Title)

	resp = env.do(t, http.MethodGet, "/board/items?page=0&size=5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[discussion.ItemPage](t, resp)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.Equal(t, 5, page.Size)

	resp = env.do(t, http.MethodGet, "/board/items?size=abc", "", nil)
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeValidation)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/board/items/%d", item.ID), "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/board/items/%d", item.ID), "admin", nil)
	requireProblem(t, resp, http.StatusNotFound, domain.CodeNotFound)
}

func TestInvalidToken(t *testing.T) {
	env := newTestEnv(t, nil)
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/board/items", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	p := requireProblem(t, resp, http.StatusUnauthorized, domain.CodeAuthentication)
	assert.Equal(t, "invalid or expired token", p.Detail)
}

func TestRecommendationToggle(t *testing.T) {
	env := newTestEnv(t, nil)
	item := env.createItem(t, "blog", "bob", "블로그 맛집")
	path := fmt.Sprintf("/blog/items/%d/recommendations", item.ID)

	resp := env.do(t, http.MethodPost, path, "", nil)
	requireProblem(t, resp, http.StatusUnauthorized, domain.CodeAuthentication)

	resp = env.do(t, http.MethodPost, path, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RecommendState{Recommended: true, RecommendCount: 1}, decode[domain.RecommendState](t, resp))

	resp = env.do(t, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.RecommendState](t, resp).Recommended)

	resp = env.do(t, http.MethodPost, path, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.RecommendState{Recommended: false, RecommendCount: 0}, decode[domain.RecommendState](t, resp))
}

func TestCommentsEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	item := env.createItem(t, "board", "alice", "맛집")
	base := fmt.Sprintf("/board/items/%d/comments", item.ID)

	resp := env.do(t, http.MethodPost, base, "alice", map[string]any{"content": "첫 댓글"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c1 := decode[domain.Comment](t, resp)

	resp = env.do(t, http.MethodPost, base, "bob", map[string]any{"content": "답글", "parentId": c1.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c2 := decode[domain.Comment](t, resp)

	resp = env.do(t, http.MethodPost, base, "alice", map[string]any{"content": "답글의 답글", "parentId": c2.ID})
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeInvalidNesting)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/comments/%d", c2.ID), "alice", map[string]string{"content": "남의 답글"})
	requireProblem(t, resp, http.StatusForbidden, domain.CodePermission)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/comments/%d", c1.ID), "alice", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/comments/%d", c1.ID), "alice", map[string]string{"content": "부활"})
	requireProblem(t, resp, http.StatusConflict, domain.CodeConflict)

	resp = env.do(t, http.MethodGet, base+"?sort=latest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	threads := decode[[]domain.CommentThread](t, resp)
	require.Len(t, threads, 1)
	assert.Equal(t, domain.DeletedCommentPlaceholder, threads[0].Content)
	require.Len(t, threads[0].Replies, 1)
	assert.Equal(t, "답글", threads[0].Replies[0].Content)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/comments/%d/reports", c2.ID), "alice", map[string]string{"reason": "욕설"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, domain.TargetComment, decode[domain.Report](t, resp).TargetType)
}

func TestReportModerationScenario(t *testing.T) {
	env := newTestEnv(t, nil)
	item := env.createItem(t, "board", "alice", "맛집")
	reports := fmt.Sprintf("/board/items/%d/reports", item.ID)

	resp := env.do(t, http.MethodPost, reports, "bob", map[string]string{"reason": "스팸"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	report := decode[domain.Report](t, resp)
	assert.Equal(t, domain.ReportPending, report.Status)

	resp = env.do(t, http.MethodPost, reports, "bob", map[string]string{"reason": "스팸"})
	requireProblem(t, resp, http.StatusConflict, domain.CodeConflict)

	resp = env.do(t, http.MethodPost, reports, "alice", map[string]string{"reason": "셀프"})
	requireProblem(t, resp, http.StatusForbidden, domain.CodePermission)

	resp = env.do(t, http.MethodGet, "/admin/reports?status=pending", "bob", nil)
	requireProblem(t, resp, http.StatusForbidden, domain.CodePermission)
	resp = env.do(t, http.MethodGet, "/admin/reports", "", nil)
	requireProblem(t, resp, http.StatusUnauthorized, domain.CodeAuthentication)

	resp = env.do(t, http.MethodGet, "/admin/reports?status=pending", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := decode[discussion.ReportPage](t, resp)
	require.Len(t, pending.Reports, 1)
	assert.Equal(t, report.ID, pending.Reports[0].ID)

	resolve := fmt.Sprintf("/admin/reports/%d", report.ID)
	resp = env.do(t, http.MethodPatch, resolve, "admin", map[string]any{"status": "ACCEPTED", "action": "DELETE_COMMENT"})
	requireProblem(t, resp, http.StatusBadRequest, domain.CodeValidation)

	resp = env.do(t, http.MethodPatch, resolve, "admin", map[string]any{"status": "ACCEPTED", "action": "HIDE_CONTENT", "note": "광고"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resolved := decode[domain.Report](t, resp)
	assert.Equal(t, domain.ReportAccepted, resolved.Status)
	assert.Equal(t, "admin", *resolved.ProcessedBy)

	resp = env.do(t, http.MethodPatch, resolve, "admin", map[string]any{"status": "REJECTED"})
	requireProblem(t, resp, http.StatusConflict, domain.CodeConflict)

	resp = env.do(t, http.MethodGet, resolve, "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.ReportAccepted, decode[domain.Report](t, resp).Status)

	resp = env.do(t, http.MethodGet, "/board/items", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[discussion.ItemPage](t, resp).Contents)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/board/items/%d", item.ID), "bob", nil)
	requireProblem(t, resp, http.StatusNotFound, domain.CodeNotFound)

	resp = env.do(t, http.MethodGet, "/admin/board/items", "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adminPage := decode[discussion.ItemPage](t, resp)
	require.Len(t, adminPage.Contents, 1)
	assert.True(t, adminPage.Contents[0].Hidden)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/admin/board/items/%d/restore", item.ID), "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[domain.ContentItem](t, resp).Hidden)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/admin/board/items/%d/pin", item.ID), "admin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[domain.ContentItem](t, resp).Pinned)

	resp = env.do(t, http.MethodPatch, fmt.Sprintf("/admin/blog/items/%d/hide", item.ID), "admin", nil)
	requireProblem(t, resp, http.StatusNotFound, domain.CodeNotFound)
}

func TestRateLimitedWrites(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewLocal(ratelimit.Policy{RPS: 0.001, Burst: 1}))

	env.createItem(t, "board", "alice", "첫 글")
	resp := env.do(t, http.MethodPost, "/board/items", "alice", map[string]string{"title": "둘째 글", "body": "본문"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	resp = env.do(t, http.MethodPost, "/board/items", "bob", map[string]string{"title": "밥의 글", "body": "본문"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/board/items", "alice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommentStream(t *testing.T) {
	env := newTestEnv(t, nil)
	item := env.createItem(t, "board", "alice", "맛집")

	resp := env.do(t, http.MethodGet, "/board/items/9999/comments/stream", "", nil)
	requireProblem(t, resp, http.StatusNotFound, domain.CodeNotFound)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + fmt.Sprintf("/board/items/%d/comments/stream", item.ID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/board/items/%d/comments", item.ID), "bob", map[string]string{"content": "실시간 댓글"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.CommentEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.CommentCreated, ev.Type)
	require.NotNil(t, ev.Comment)
	assert.Equal(t, "실시간 댓글", ev.Comment.Content)
}
