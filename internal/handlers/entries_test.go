package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/auth"
	"github.com/AnshRaj112/diary-backend/internal/logging"
	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/AnshRaj112/diary-backend/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

func tokenFor(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func bearer(t *testing.T, email string) string {
	return "Bearer " + tokenFor(t, jwt.MapClaims{"email": email})
}

type recordedAudit struct {
	Action  models.EntryEventType
	Owner   string
	EntryID string
}

type fakeAudit struct {
	mu      sync.Mutex
	records []recordedAudit
	err     error
}

func (a *fakeAudit) Record(_ context.Context, action models.EntryEventType, owner, entryID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, recordedAudit{action, owner, entryID})
	return a.err
}

type fakePublisher struct {
	mu     sync.Mutex
	owners []string
	events []models.EntryEvent
}

func (p *fakePublisher) Publish(_ context.Context, owner string, evt models.EntryEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.owners = append(p.owners, owner)
	p.events = append(p.events, evt)
	return nil
}

// failingStore fails every call with an error that must never reach the client.
type failingStore struct{}

var errBackend = errors.New("connection refused: mongodb://secret-host:27017")

func (failingStore) Insert(context.Context, string, models.EntryFields, time.Time) (*models.Entry, error) {
	return nil, errBackend
}
func (failingStore) FindAllByOwner(context.Context, string) ([]models.Entry, error) {
	return nil, errBackend
}
func (failingStore) FindOneByIDAndOwner(context.Context, primitive.ObjectID, string) (*models.Entry, error) {
	return nil, errBackend
}
func (failingStore) UpdateByIDAndOwner(context.Context, primitive.ObjectID, string, models.EntryFields, time.Time) (int64, error) {
	return 0, errBackend
}
func (failingStore) DeleteByIDAndOwner(context.Context, primitive.ObjectID, string) (int64, error) {
	return 0, errBackend
}

type testEnv struct {
	store   *services.MemoryEntryStore
	audit   *fakeAudit
	events  *fakePublisher
	handler *EntryHandler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:  services.NewMemoryEntryStore(),
		audit:  &fakeAudit{},
		events: &fakePublisher{},
	}
	env.handler = NewEntryHandler(env.store, auth.NewExtractor(""), env.audit, env.events, logging.Discard())
	return env
}

func do(h http.HandlerFunc, method, target, authz, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	require.Len(t, body, 1)
	return body["error"].(string)
}

func (env *testEnv) create(t *testing.T, owner, body string) string {
	t.Helper()
	w := do(env.handler.Create, http.MethodPost, "/api/entries/create", bearer(t, owner), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestMethodGuard(t *testing.T) {
	env := newTestEnv()
	cases := []struct {
		name     string
		h        http.HandlerFunc
		method   string
		expected string
	}{
		{"create", env.handler.Create, http.MethodGet, "POST"},
		{"list", env.handler.List, http.MethodPost, "GET"},
		{"read", env.handler.Get, http.MethodDelete, "GET"},
		{"update", env.handler.Update, http.MethodPost, "PUT"},
		{"delete", env.handler.Delete, http.MethodGet, "DELETE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// No credentials: the method check runs first.
			w := do(tc.h, tc.method, "/", "", "")
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, "Method Not Allowed. Expected: "+tc.expected, errorOf(t, w))
		})
	}
}

func TestCheckMethod_CaseSensitive(t *testing.T) {
	assert.NoError(t, CheckMethod("POST", "POST"))
	err := CheckMethod("post", "POST")
	require.Error(t, err)
	assert.Equal(t, "Method Not Allowed. Expected: POST", err.Error())
}

func TestUnauthorized(t *testing.T) {
	env := newTestEnv()
	id := primitive.NewObjectID().Hex()
	cases := []struct {
		name   string
		h      http.HandlerFunc
		method string
		target string
		body   string
	}{
		{"create", env.handler.Create, http.MethodPost, "/", `{"title":"t","content":"c"}`},
		{"list", env.handler.List, http.MethodGet, "/", ""},
		{"read", env.handler.Get, http.MethodGet, "/?id=" + id, ""},
		{"update", env.handler.Update, http.MethodPut, "/", `{"id":"` + id + `","title":"t","content":"c"}`},
		{"delete", env.handler.Delete, http.MethodDelete, "/?id=" + id, ""},
	}
	headers := map[string]string{
		"missing":      "",
		"basic scheme": "Basic dXNlcjpwYXNz",
		"no token":     "Bearer ",
		"garbage":      "Bearer not-a-jwt",
		"no email":     "Bearer " + tokenFor(t, jwt.MapClaims{"sub": "123"}),
	}
	expected := map[string]string{
		"missing":      "Unauthorized",
		"basic scheme": "Unauthorized",
		"no token":     "Unauthorized",
		"garbage":      "Invalid token.",
		"no email":     "Invalid token: Email not found.",
	}

	for _, tc := range cases {
		for name, authz := range headers {
			t.Run(tc.name+"/"+name, func(t *testing.T) {
				w := do(tc.h, tc.method, tc.target, authz, tc.body)
				assert.Equal(t, http.StatusUnauthorized, w.Code)
				assert.Equal(t, expected[name], errorOf(t, w))
			})
		}
	}

	entries, err := env.store.FindAllByOwner(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, env.audit.records)
}

func TestCreate(t *testing.T) {
	env := newTestEnv()

	w := do(env.handler.Create, http.MethodPost, "/api/entries/create", bearer(t, alice),
		`{"title":"  Day 1 ","content":" hello ","mood":" calm ","userEmail":"mallory@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Entry created successfully.", body["message"])
	assert.Equal(t, alice, body["userEmail"])
	assert.Equal(t, "Day 1", body["title"])
	assert.Equal(t, "hello", body["content"])
	assert.Equal(t, "calm", body["mood"])
	assert.NotEmpty(t, body["createdAt"])
	assert.NotContains(t, body, "updatedAt")
	assert.Len(t, body["id"], 24)

	mallory, err := env.store.FindAllByOwner(context.Background(), "mallory@example.com")
	require.NoError(t, err)
	assert.Empty(t, mallory)

	require.Len(t, env.audit.records, 1)
	assert.Equal(t, recordedAudit{models.EntryCreated, alice, body["id"].(string)}, env.audit.records[0])
	require.Len(t, env.events.events, 1)
	assert.Equal(t, alice, env.events.owners[0])
	assert.Equal(t, models.EntryCreated, env.events.events[0].Type)
}

func TestCreate_WithoutMood(t *testing.T) {
	env := newTestEnv()
	w := do(env.handler.Create, http.MethodPost, "/", bearer(t, alice), `{"title":"t","content":"c"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Contains(t, body, "mood")
	assert.Nil(t, body["mood"])
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv()
	cases := map[string]struct {
		body    string
		message string
	}{
		"not json":      {`{"title":`, "Invalid request body."},
		"array":         {`[1,2]`, "Invalid request body."},
		"null":          {`null`, "Invalid request body."},
		"empty body":    {``, "Invalid request body."},
		"missing title": {`{"content":"c"}`, "Title and content are required."},
		"blank content": {`{"title":"t","content":"   "}`, "Title and content are required."},
		"numeric title": {`{"title":5,"content":"c"}`, "Title and content are required."},
		"null content":  {`{"title":"t","content":null}`, "Title and content are required."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(env.handler.Create, http.MethodPost, "/", bearer(t, alice), tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, errorOf(t, w))
		})
	}
	entries, _ := env.store.FindAllByOwner(context.Background(), alice)
	assert.Empty(t, entries)
}

func TestList_OwnerScoped(t *testing.T) {
	env := newTestEnv()
	env.create(t, alice, `{"title":"a1","content":"c"}`)
	env.create(t, bob, `{"title":"b1","content":"c"}`)
	env.create(t, alice, `{"title":"a2","content":"c"}`)

	w := do(env.handler.List, http.MethodGet, "/api/entries/list", bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.EntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, e := range list {
		assert.Equal(t, alice, e.UserEmail)
	}
	assert.Equal(t, "a1", list[0].Title)
	assert.Equal(t, "a2", list[1].Title)
}

func TestList_EmptyIsArray(t *testing.T) {
	env := newTestEnv()
	w := do(env.handler.List, http.MethodGet, "/", bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGet(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"t","content":"c"}`)

	w := do(env.handler.Get, http.MethodGet, "/?id="+id, bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, id, body["id"])
	assert.NotContains(t, body, "message")

	for name, target := range map[string]string{"missing": "/", "malformed": "/?id=xyz", "short hex": "/?id=abc123"} {
		t.Run(name, func(t *testing.T) {
			w := do(env.handler.Get, http.MethodGet, target, bearer(t, alice), "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid entry ID.", errorOf(t, w))
		})
	}
}

func TestCrossUserAccessLooksLikeMissing(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"t","content":"c"}`)
	unknown := primitive.NewObjectID().Hex()

	cases := []struct {
		name    string
		h       http.HandlerFunc
		method  string
		target  func(string) string
		body    func(string) string
		message string
	}{
		{"read", env.handler.Get, http.MethodGet, func(id string) string { return "/?id=" + id }, nil, "Entry not found."},
		{"update", env.handler.Update, http.MethodPut, func(string) string { return "/" },
			func(id string) string { return `{"id":"` + id + `","title":"x","content":"y"}` }, "Entry not found."},
		{"delete", env.handler.Delete, http.MethodDelete, func(id string) string { return "/?id=" + id }, nil, "Entry not found or access denied."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := func(id string) string {
				if tc.body == nil {
					return ""
				}
				return tc.body(id)
			}
			foreign := do(tc.h, tc.method, tc.target(id), bearer(t, bob), body(id))
			missing := do(tc.h, tc.method, tc.target(unknown), bearer(t, bob), body(unknown))

			assert.Equal(t, http.StatusNotFound, foreign.Code)
			assert.Equal(t, missing.Code, foreign.Code)
			assert.Equal(t, missing.Body.String(), foreign.Body.String())
			assert.Equal(t, tc.message, errorOf(t, foreign))
		})
	}

	entry, err := env.store.FindOneByIDAndOwner(context.Background(), mustID(t, id), alice)
	require.NoError(t, err)
	assert.Equal(t, "t", entry.Title)
	assert.Empty(t, env.audit.records[1:])
}

func TestUpdate(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"t","content":"c","mood":"sad"}`)

	w := do(env.handler.Update, http.MethodPut, "/api/entries/update", bearer(t, alice),
		`{"id":"`+id+`","title":" new title ","content":" new content ","userEmail":"bob@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Entry updated successfully.", body["message"])
	assert.Equal(t, id, body["id"])
	assert.Equal(t, alice, body["userEmail"])
	assert.Equal(t, "new title", body["title"])
	assert.Equal(t, "new content", body["content"])
	assert.Nil(t, body["mood"])
	assert.NotEmpty(t, body["updatedAt"])

	entry, err := env.store.FindOneByIDAndOwner(context.Background(), mustID(t, id), alice)
	require.NoError(t, err)
	assert.Equal(t, "new title", entry.Title)
	assert.Nil(t, entry.Mood)
	require.NotNil(t, entry.UpdatedAt)
	assert.Equal(t, alice, entry.UserEmail)

	require.Len(t, env.audit.records, 2)
	assert.Equal(t, models.EntryUpdated, env.audit.records[1].Action)
}

func TestUpdate_Validation(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"t","content":"c"}`)

	cases := map[string]struct {
		body    string
		message string
	}{
		"invalid json":  {`nope`, "Invalid request body."},
		"missing id":    {`{"title":"t","content":"c"}`, "Invalid entry ID."},
		"numeric id":    {`{"id":12,"title":"t","content":"c"}`, "Invalid entry ID."},
		"malformed id":  {`{"id":"zz","title":"t","content":"c"}`, "Invalid entry ID."},
		"missing title": {`{"id":"` + id + `","content":"c"}`, "Title and content are required."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(env.handler.Update, http.MethodPut, "/", bearer(t, alice), tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.message, errorOf(t, w))
		})
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"t","content":"c"}`)

	w := do(env.handler.Delete, http.MethodDelete, "/?id="+id, bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Entry deleted successfully.","id":"`+id+`"}`, w.Body.String())

	w = do(env.handler.Delete, http.MethodDelete, "/?id="+id, bearer(t, alice), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Entry not found or access denied.", errorOf(t, w))

	w = do(env.handler.Delete, http.MethodDelete, "/?id=bad", bearer(t, alice), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid entry ID.", errorOf(t, w))

	require.Len(t, env.audit.records, 2)
	assert.Equal(t, models.EntryDeleted, env.audit.records[1].Action)
	assert.Equal(t, models.EntryDeleted, env.events.events[1].Type)
	assert.Equal(t, id, env.events.events[1].EntryID)
}

func TestEntryLifecycle(t *testing.T) {
	env := newTestEnv()
	id := env.create(t, alice, `{"title":"first","content":"draft"}`)

	w := do(env.handler.Update, http.MethodPut, "/", bearer(t, alice), `{"id":"`+id+`","title":"first","content":"final","mood":"happy"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(env.handler.Get, http.MethodGet, "/?id="+id, bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "final", body["content"])
	assert.Equal(t, "happy", body["mood"])
	assert.NotEmpty(t, body["updatedAt"])

	w = do(env.handler.Delete, http.MethodDelete, "/?id="+id, bearer(t, alice), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(env.handler.List, http.MethodGet, "/", bearer(t, alice), "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestStoreFailureIsNotLeaked(t *testing.T) {
	h := NewEntryHandler(failingStore{}, auth.NewExtractor(""), nil, nil, logging.Discard())
	id := primitive.NewObjectID().Hex()

	cases := []struct {
		name    string
		h       http.HandlerFunc
		method  string
		target  string
		body    string
		message string
	}{
		{"create", h.Create, http.MethodPost, "/", `{"title":"t","content":"c"}`, "Internal server error when creating an entry."},
		{"list", h.List, http.MethodGet, "/", "", "Internal server error fetching entries."},
		{"read", h.Get, http.MethodGet, "/?id=" + id, "", "Internal server error fetching an entry."},
		{"update", h.Update, http.MethodPut, "/", `{"id":"` + id + `","title":"t","content":"c"}`, "Internal server error updating entry."},
		{"delete", h.Delete, http.MethodDelete, "/?id=" + id, "", "Internal server error when deleting an entry."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(tc.h, tc.method, tc.target, bearer(t, alice), tc.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tc.message, errorOf(t, w))
			assert.NotContains(t, w.Body.String(), "secret-host")
		})
	}
}

func TestAuditFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv()
	env.audit.err = errors.New("postgres down")

	w := do(env.handler.Create, http.MethodPost, "/", bearer(t, alice), `{"title":"t","content":"c"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, env.events.events, 1)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func mustID(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}
