package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeff-ai/jeff-api/internal/auth"
	"github.com/jeff-ai/jeff-api/internal/core"
	"github.com/jeff-ai/jeff-api/internal/logger"
	"github.com/jeff-ai/jeff-api/internal/store"
	"github.com/jeff-ai/jeff-api/internal/validation"
)

// headerAuthenticator treats "Bearer <id>" as a verified identity with that id.
type headerAuthenticator struct{}

func (headerAuthenticator) Authenticate(_ http.ResponseWriter, r *http.Request) (*auth.Identity, error) {
	id, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || id == "" {
		return nil, auth.ErrUnauthenticated
	}
	return &auth.Identity{ID: id, GivenName: "Test", FamilyName: "User", Email: id + "@example.com"}, nil
}

type testServer struct {
	router http.Handler
	store  *store.Store
}

func stubGateway() *core.Gateway {
	return &core.Gateway{
		Embedder:    core.StubEmbedder{},
		Completer:   core.StubCompleter{},
		Transcriber: core.StubTranscriber{},
		Weather:     core.StubWeather{},
	}
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithGateway(t, stubGateway())
}

func setupTestServerWithGateway(t *testing.T, gateway *core.Gateway) *testServer {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := store.Open(dsn, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Seed(ctx))

	session := auth.NewSessionFlow(auth.SessionConfig{
		IssuerBaseURL: "https://issuer.example.com",
		ClientID:      "client",
		ClientSecret:  "secret",
		RedirectURL:   "http://localhost:8080/api/auth/callback",
		SiteURL:       "http://localhost:3000",
	})
	handler := NewAPIHandler(db, gateway, headerAuthenticator{}, session, logger.Nop())
	return &testServer{router: NewRouter(handler), store: db}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(encoded)
		}
		reader = strings.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		req.Header.Set("Authorization", "Bearer "+caller)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type validationBody struct {
	Success bool `json:"success"`
	Error   struct {
		Issues []validation.Issue `json:"issues"`
		Name   string             `json:"name"`
	} `json:"error"`
}

func requireIssue(t *testing.T, rec *httptest.ResponseRecorder, code string, path ...string) validation.Issue {
	t.Helper()
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decode[validationBody](t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "ValidationError", body.Error.Name)
	if path == nil {
		path = []string{}
	}
	for _, issue := range body.Error.Issues {
		if issue.Code == code && assert.ObjectsAreEqual(path, issue.Path) {
			return issue
		}
	}
	require.Failf(t, "issue not found", "want %s at %v in %s", code, path, rec.Body.String())
	return validation.Issue{}
}

func TestIndexAndHealth(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jeff AI API", decode[map[string]string](t, rec)["message"])

	rec = s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/api/tasks", "/api/feedback", "/api/refinements", "/api/settings", "/api/auth/me"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	}
}

func TestAuthRedirects(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/login", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	login, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/auth", login.Path)
	assert.Empty(t, login.Query().Get("prompt"))

	rec = s.do(t, http.MethodGet, "/api/auth/register", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	register, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "create", register.Query().Get("prompt"))

	rec = s.do(t, http.MethodGet, "/api/auth/callback?state=forged&code=x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://issuer.example.com/logout")
}

func TestMe(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/auth/me", "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]auth.Identity](t, rec)
	assert.Equal(t, "foo", body["user"].ID)
}

func TestCaptureIsIdempotent(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/capture", "newcomer", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[captureResponse](t, rec)
	assert.Equal(t, "User created successfully", first.Message)
	require.NotNil(t, first.User)
	assert.Equal(t, "newcomer", first.User.AuthUserID)
	require.NotNil(t, first.User.DisplayName)
	assert.Equal(t, "Test User", *first.User.DisplayName)
	require.NotNil(t, first.User.Email)
	assert.Equal(t, "newcomer@example.com", *first.User.Email)

	rec = s.do(t, http.MethodPost, "/api/auth/capture", "newcomer", map[string]string{"displayName": "Someone Else"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[captureResponse](t, rec)
	assert.Equal(t, "User already exists", second.Message)
	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Test User", *second.User.DisplayName)

	rec = s.do(t, http.MethodPost, "/api/auth/capture", "other", map[string]string{"email": "not-an-email"})
	requireIssue(t, rec, validation.CodeInvalidString, "email")
}

func TestTaskRoundTrip(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/tasks", "foo", map[string]any{
		"task":         "Learn X",
		"done":         false,
		"userId":       "foo",
		"assignedDate": "2025-03-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Task](t, rec)
	require.NotZero(t, created.ID)
	path := fmt.Sprintf("/api/tasks/%d", created.ID)

	rec = s.do(t, http.MethodGet, path, "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[store.Task](t, rec)
	assert.Equal(t, "Learn X", got.Task)
	assert.False(t, got.Done)
	assert.Equal(t, "foo", got.UserID)

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"done": true})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[store.Task](t, rec)
	assert.True(t, patched.Done)
	assert.Equal(t, "Learn X", patched.Task)

	rec = s.do(t, http.MethodDelete, path, "foo", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(t, http.MethodDelete, path, "foo", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Not Found"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, path, "foo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskValidation(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tasks/foo", "foo", nil)
	issue := requireIssue(t, rec, validation.CodeInvalidType, "id")
	assert.Equal(t, "Expected number, received nan", issue.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks", "foo", map[string]any{"done": true, "userId": "foo"})
	issue = requireIssue(t, rec, validation.CodeInvalidType, "task")
	assert.Equal(t, "Required", issue.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks", "foo", map[string]any{"task": "", "done": true, "userId": "foo"})
	requireIssue(t, rec, validation.CodeTooSmall, "task")

	rec = s.do(t, http.MethodPost, "/api/tasks", "foo", map[string]any{"task": "x", "done": true, "userId": "nobody"})
	issue = requireIssue(t, rec, validation.CodeCustom, "userId")
	assert.Equal(t, "User does not exist", issue.Message)

	rec = s.do(t, http.MethodPost, "/api/tasks", "foo", `{"task":`)
	requireIssue(t, rec, validation.CodeCustom)
}

func TestListTasksFiltersByCaller(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/tasks", "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Task](t, rec), 3)

	rec = s.do(t, http.MethodGet, "/api/tasks", "bar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]store.Task](t, rec))

	rec = s.do(t, http.MethodGet, "/api/tasks", "stranger", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestEmptyPatchIsRejectedBeforeLookup(t *testing.T) {
	s := setupTestServer(t)

	for _, path := range []string{"/api/tasks/99999", "/api/feedback/missing", "/api/refinements/missing", "/api/settings"} {
		rec := s.do(t, http.MethodPatch, path, "foo", map[string]any{})
		issue := requireIssue(t, rec, validation.CodeInvalidUpdates)
		assert.Equal(t, "No updates provided", issue.Message, path)

		rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"unknownField": 1})
		requireIssue(t, rec, validation.CodeInvalidUpdates)
	}

	rec := s.do(t, http.MethodPatch, "/api/tasks/99999", "foo", map[string]any{"done": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeedbackValidation(t *testing.T) {
	s := setupTestServer(t)
	valid := func() map[string]any {
		return map[string]any{"userId": "foo", "featureType": "refinements", "featureId": "abc", "rating": 4}
	}

	body := valid()
	body["rating"] = 6
	rec := s.do(t, http.MethodPost, "/api/feedback", "foo", body)
	requireIssue(t, rec, validation.CodeTooBig, "rating")

	body["rating"] = 0
	rec = s.do(t, http.MethodPost, "/api/feedback", "foo", body)
	requireIssue(t, rec, validation.CodeTooSmall, "rating")

	body = valid()
	body["vector"] = []float32{0.1, 0.2, 0.3}
	rec = s.do(t, http.MethodPost, "/api/feedback", "foo", body)
	requireIssue(t, rec, validation.CodeTooSmall, "vector")

	body["vector"] = make([]float32, store.EmbeddingDimensions+1)
	rec = s.do(t, http.MethodPost, "/api/feedback", "foo", body)
	requireIssue(t, rec, validation.CodeTooBig, "vector")

	body = valid()
	body["rating"] = "five"
	rec = s.do(t, http.MethodPost, "/api/feedback", "foo", body)
	issue := requireIssue(t, rec, validation.CodeInvalidType, "rating")
	assert.Equal(t, "Expected number, received string", issue.Message)
}

func TestFeedbackLifecycle(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/feedback", "bar", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Feedback](t, rec), 10)

	rec = s.do(t, http.MethodPost, "/api/feedback", "foo", map[string]any{
		"userId": "foo", "featureType": "refinements", "featureId": "abc", "rating": 5, "comment": "Great rewrite",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Feedback](t, rec)
	assert.Len(t, created.Vector, store.EmbeddingDimensions)
	path := "/api/feedback/" + created.ID

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"comment": 6})
	issue := requireIssue(t, rec, validation.CodeInvalidType, "comment")
	assert.Equal(t, "Expected string, received number", issue.Message)

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"comment": "Changed my mind", "rating": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[store.Feedback](t, rec)
	assert.Equal(t, 2, patched.Rating)
	require.Len(t, patched.Vector, store.EmbeddingDimensions)
	assert.NotEqual(t, created.Vector, patched.Vector)

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"userId": "nobody"})
	requireIssue(t, rec, validation.CodeCustom, "userId")

	rec = s.do(t, http.MethodDelete, path, "foo", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, path, "foo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefinementScenario(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/refinements", "foo", map[string]any{"userId": "foo"})
	requireIssue(t, rec, validation.CodeInvalidType, "originalText")

	rec = s.do(t, http.MethodPost, "/api/refinements", "foo", map[string]any{
		"userId": "foo", "originalText": "This is the original text", "additionalContext": "Formal email",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Refinement](t, rec)
	assert.Equal(t, "This is a test refined copy", created.RefinedText)
	assert.Equal(t, 5, created.OriginalTextWordCount)
	assert.Equal(t, 6, created.RefinedTextWordCount)
	require.NotNil(t, created.Explanation)
	assert.Equal(t, "This is a test explanation", *created.Explanation)
	assert.Len(t, created.Vector, store.EmbeddingDimensions)
	path := "/api/refinements/" + created.ID

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"refinedText": "One two"})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[store.Refinement](t, rec)
	assert.Equal(t, 2, patched.RefinedTextWordCount)
	assert.Equal(t, 5, patched.OriginalTextWordCount)

	rec = s.do(t, http.MethodPatch, path, "foo", map[string]any{"refinedText": "One two three", "refinedTextWordCount": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decode[store.Refinement](t, rec).RefinedTextWordCount)

	rec = s.do(t, http.MethodGet, "/api/refinements", "baz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]store.Refinement](t, rec), 11)

	rec = s.do(t, http.MethodDelete, path, "foo", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, path, "foo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConvertToMarkdown(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/refinements/convert-to-markdown", "foo", map[string]string{"html": "<p>Hello</p>"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "This is a test markdown", decode[map[string]string](t, rec)["markdown"])

	rec = s.do(t, http.MethodPost, "/api/refinements/convert-to-markdown", "foo", map[string]string{"html": ""})
	requireIssue(t, rec, validation.CodeTooSmall, "html")
}

func TestSettings(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/settings", "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.UnitsImperial, decode[store.Settings](t, rec).Units)

	rec = s.do(t, http.MethodGet, "/api/settings", "stranger", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/settings", "bar", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Settings not found"}`, rec.Body.String())

	rec = s.do(t, http.MethodPatch, "/api/settings", "bar", map[string]string{"units": "metric"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Settings not found"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/settings", "bar", map[string]string{"country": "USA"})
	requireIssue(t, rec, validation.CodeTooBig, "country")

	rec = s.do(t, http.MethodPost, "/api/settings", "bar", map[string]any{"latitude": 91})
	requireIssue(t, rec, validation.CodeTooBig, "latitude")

	rec = s.do(t, http.MethodPost, "/api/settings", "bar", map[string]any{"city": "Athens", "country": "GR"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Settings](t, rec)
	assert.Equal(t, "bar", created.UserID)
	assert.Equal(t, store.UnitsImperial, created.Units)
	assert.Equal(t, "en", created.Language)

	rec = s.do(t, http.MethodPost, "/api/settings", "bar", map[string]any{"city": "Athens"})
	requireIssue(t, rec, validation.CodeCustom, "userId")

	rec = s.do(t, http.MethodPatch, "/api/settings", "foo", map[string]string{"units": "kelvin"})
	requireIssue(t, rec, validation.CodeInvalidEnum, "units")

	rec = s.do(t, http.MethodPatch, "/api/settings", "foo", map[string]string{"units": "metric", "language": "fr"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[store.Settings](t, rec)
	assert.Equal(t, store.UnitsMetric, patched.Units)
	assert.Equal(t, "fr", patched.Language)
	require.NotNil(t, patched.City)
	assert.Equal(t, "New York", *patched.City)
}

func uploadRequest(t *testing.T, caller string, fields map[string]string, audio []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		part, err := mw.CreateFormFile("file", "memo.webm")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+caller)
	return req
}

func TestTranscribe(t *testing.T) {
	s := setupTestServer(t)
	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(uploadRequest(t, "foo", map[string]string{"language": "en"}, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"No valid file provided"}`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/api/transcribe", "foo", map[string]string{"file": "audio"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(uploadRequest(t, "foo", nil, []byte("fake audio bytes")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	plain := decode[transcribeResponse](t, rec)
	assert.Equal(t, "This is a test transcription", plain.Transcription)
	assert.Empty(t, plain.Refined)
	assert.Nil(t, plain.Refinement)

	rec = serve(uploadRequest(t, "foo", map[string]string{"refine": "true"}, []byte("fake audio bytes")))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	refined := decode[transcribeResponse](t, rec)
	assert.Equal(t, "This is a test refined copy", refined.Refined)
	assert.Equal(t, "This is a test explanation", refined.Explanation)
	require.NotNil(t, refined.Refinement)
	assert.Equal(t, "foo", refined.Refinement.UserID)
	assert.Equal(t, "This is a test transcription", refined.Refinement.OriginalText)

	stored, err := s.store.GetRefinement(context.Background(), refined.Refinement.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Vector, store.EmbeddingDimensions)

	rec = serve(uploadRequest(t, "stranger", map[string]string{"refine": "true"}, []byte("fake audio bytes")))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())
}

func TestWeather(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/weather?lon=-74.006", "foo", nil)
	issue := requireIssue(t, rec, validation.CodeInvalidType, "lat")
	assert.Equal(t, "Required", issue.Message)

	rec = s.do(t, http.MethodGet, "/api/weather?lat=100&lon=-74.006", "foo", nil)
	requireIssue(t, rec, validation.CodeInvalidString, "lat")

	rec = s.do(t, http.MethodGet, "/api/weather?lat=40.7128&lon=-74.006&units=kelvin", "foo", nil)
	requireIssue(t, rec, validation.CodeInvalidEnum, "units")

	rec = s.do(t, http.MethodGet, "/api/weather?lat=40.7128&lon=-74.006", "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Weather data retrieved successfully", body.Message)
	assert.Equal(t, "imperial", body.Data["units"])
	assert.Equal(t, "en", body.Data["lang"])

	rec = s.do(t, http.MethodGet, "/api/weather/geocode?q=New+York&limit=1", "foo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	locations := decode[[]core.Location](t, rec)
	require.Len(t, locations, 1)
	assert.Equal(t, "New York", locations[0].Name)

	rec = s.do(t, http.MethodGet, "/api/weather/geocode", "foo", nil)
	requireIssue(t, rec, validation.CodeInvalidType, "q")

	rec = s.do(t, http.MethodGet, "/api/weather/geocode?q=Paris&limit=abc", "foo", nil)
	requireIssue(t, rec, validation.CodeInvalidString, "limit")
}

const upstreamSecret = "sk-test-123"

var errUpstream = errors.New("provider rejected key " + upstreamSecret)

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errUpstream
}

type failingCompleter struct{}

func (failingCompleter) CompleteJSON(context.Context, core.CompletionRequest) ([]byte, error) {
	return nil, errUpstream
}

type failingTranscriber struct{ err error }

func (f failingTranscriber) Transcribe(context.Context, []byte, core.TranscribeOptions) (string, error) {
	return "", f.err
}

type failingWeather struct{}

func (failingWeather) Current(context.Context, core.WeatherQuery) (json.RawMessage, error) {
	return nil, errUpstream
}

func (failingWeather) Geocode(context.Context, string, int) ([]core.Location, error) {
	return nil, errUpstream
}

func requireUpstreamError(t *testing.T, rec *httptest.ResponseRecorder, message string) {
	t.Helper()
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, message), rec.Body.String())
	assert.NotContains(t, rec.Body.String(), upstreamSecret)
}

func TestUpstreamFailuresAreGeneric500(t *testing.T) {
	feedback := map[string]any{"userId": "foo", "featureType": "refinements", "featureId": "abc", "rating": 3, "comment": "Nice"}
	refinement := map[string]any{"userId": "foo", "originalText": "so um fix this"}

	t.Run("embedder", func(t *testing.T) {
		gateway := stubGateway()
		gateway.Embedder = failingEmbedder{}
		s := setupTestServerWithGateway(t, gateway)

		rec := s.do(t, http.MethodPost, "/api/feedback", "foo", feedback)
		requireUpstreamError(t, rec, "Failed to create feedback embedding")

		rec = s.do(t, http.MethodPost, "/api/refinements", "foo", refinement)
		requireUpstreamError(t, rec, "Failed to create refinement")

		// Nothing is persisted when the pipeline fails part way.
		rec = s.do(t, http.MethodGet, "/api/refinements", "foo", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]store.Refinement](t, rec), 10)
	})

	t.Run("completer", func(t *testing.T) {
		gateway := stubGateway()
		gateway.Completer = failingCompleter{}
		s := setupTestServerWithGateway(t, gateway)

		rec := s.do(t, http.MethodPost, "/api/refinements", "foo", refinement)
		requireUpstreamError(t, rec, "Failed to create refinement")

		rec = s.do(t, http.MethodPost, "/api/refinements/convert-to-markdown", "foo", map[string]string{"html": "<p>x</p>"})
		requireUpstreamError(t, rec, "Failed to convert to markdown")

		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, uploadRequest(t, "foo", map[string]string{"refine": "true"}, []byte("audio")))
		requireUpstreamError(t, rec, "Failed to refine transcription")
	})

	t.Run("transcriber", func(t *testing.T) {
		gateway := stubGateway()
		gateway.Transcriber = failingTranscriber{err: errUpstream}
		s := setupTestServerWithGateway(t, gateway)

		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, uploadRequest(t, "foo", nil, []byte("audio")))
		requireUpstreamError(t, rec, "Failed to transcribe file")

		gateway.Transcriber = failingTranscriber{err: fmt.Errorf("deepgram: %w", core.ErrNoTranscript)}
		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, uploadRequest(t, "foo", nil, []byte("audio")))
		requireUpstreamError(t, rec, "Failed to get transcription")
	})

	t.Run("weather", func(t *testing.T) {
		gateway := stubGateway()
		gateway.Weather = failingWeather{}
		s := setupTestServerWithGateway(t, gateway)

		rec := s.do(t, http.MethodGet, "/api/weather?lat=40.7128&lon=-74.006", "foo", nil)
		requireUpstreamError(t, rec, "Failed to get weather information")

		rec = s.do(t, http.MethodGet, "/api/weather/geocode?q=Paris", "foo", nil)
		requireUpstreamError(t, rec, "Failed to get location coordinates")
	})
}
