package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/matchdeck/internal/client/auth"
	"github.com/dmitrijs2005/matchdeck/internal/client/models"
	"github.com/dmitrijs2005/matchdeck/internal/common"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records the last request it served.
type fakeBackend struct {
	LastMethod  string
	LastPath    string
	LastQuery   map[string][]string
	LastHeaders http.Header
	LastBody    map[string]any

	status int
	body   string
}

func (f *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	f.LastMethod = r.Method
	f.LastPath = r.URL.Path
	f.LastQuery = r.URL.Query()
	f.LastHeaders = r.Header.Clone()
	f.LastBody = nil
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &f.LastBody)
	}
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.body)
}

func newTestClient(t *testing.T, fb *fakeBackend, bearer string, opts ...Option) *HTTPClient {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/profiles/all/", fb.handle).Methods(http.MethodGet)
	r.HandleFunc("/api/actions/swipe/", fb.handle).Methods(http.MethodPost)
	r.HandleFunc("/api/matches/api/actions/unmatch/{id}/", fb.handle).Methods(http.MethodPost)
	r.HandleFunc("/api/matches/api/matches/", fb.handle).Methods(http.MethodGet)
	r.HandleFunc("/api/matches/api/conversations/", fb.handle).Methods(http.MethodGet)
	r.HandleFunc("/api/matches/api/conversations/{id}/messages/", fb.handle).Methods(http.MethodGet)
	r.HandleFunc("/custom/unmatch/{id}", fb.handle).Methods(http.MethodPost)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithTimeout(2 * time.Second)}, opts...)
	c, err := NewHTTPClient(srv.URL, auth.NewStaticCredentials("csrf-1", bearer), opts...)
	require.NoError(t, err)
	return c
}

func TestNewHTTPClient_Validates(t *testing.T) {
	_, err := NewHTTPClient(" ", auth.NewStaticCredentials("", ""))
	require.Error(t, err)

	_, err = NewHTTPClient("http://x", nil)
	require.Error(t, err)
}

func TestDiscover_MapsProfiles(t *testing.T) {
	fb := &fakeBackend{body: `{"results":[
		{"user_id": 7, "user": {"id": 7, "username": "alex77", "first_name": "Alex"}, "age": 29,
		 "photos": [{"image": "/media/alex.jpg"}], "distance": 3.5, "city": {"name": "Riga"}, "bio": "hi"},
		{"user": {"id": "8", "username": "sam"}, "photos": []},
		{"user": {"id": 9}},
		{"age": 40}
	]}`}
	c := newTestClient(t, fb, "tok")

	got, err := c.Discover(context.Background(), models.Filter{RadiusKm: 25, CityID: "3", InterestIDs: []string{"1", "2"}})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/profiles/all/", fb.LastPath)
	assert.Equal(t, []string{"25"}, fb.LastQuery["radius_km"])
	assert.Equal(t, []string{"3"}, fb.LastQuery["city"])
	assert.Equal(t, []string{"1", "2"}, fb.LastQuery["interests"])
	assert.Equal(t, "Bearer tok", fb.LastHeaders.Get("Authorization"))
	assert.Equal(t, "csrf-1", fb.LastHeaders.Get("X-CSRFToken"))

	require.Len(t, got, 3)
	assert.Equal(t, "7", got[0].ID)
	assert.Equal(t, "Alex", got[0].DisplayName)
	assert.Equal(t, 29, got[0].Age)
	assert.Equal(t, c.baseURL+"/media/alex.jpg", got[0].PhotoURL)
	require.NotNil(t, got[0].DistanceKm)
	assert.InDelta(t, 3.5, *got[0].DistanceKm, 1e-9)
	assert.Equal(t, "Riga", got[0].City)

	assert.Equal(t, "8", got[1].ID)
	assert.Equal(t, "sam", got[1].DisplayName)
	assert.Equal(t, c.baseURL+common.DefaultPhotoURL, got[1].PhotoURL)
	assert.Nil(t, got[1].DistanceKm)

	assert.Equal(t, "9", got[2].ID)
	assert.Equal(t, "User", got[2].DisplayName)
}

func TestDiscover_AcceptsBareList(t *testing.T) {
	fb := &fakeBackend{body: `[{"user_id": "5", "user": {"first_name": "Kim"}, "city": "Oslo"}]`}
	c := newTestClient(t, fb, "tok")

	got, err := c.Discover(context.Background(), models.Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kim", got[0].DisplayName)
	assert.Equal(t, "Oslo", got[0].City)
	assert.Empty(t, fb.LastQuery)
}

func TestDiscover_RequiresBearer(t *testing.T) {
	fb := &fakeBackend{body: `[]`}
	c := newTestClient(t, fb, "")

	_, err := c.Discover(context.Background(), models.Filter{})
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Empty(t, fb.LastPath, "no request must be issued")
}

func TestDiscover_401IsSessionExpired(t *testing.T) {
	fb := &fakeBackend{status: http.StatusUnauthorized, body: `{"detail":"token expired"}`}
	c := newTestClient(t, fb, "tok")

	_, err := c.Discover(context.Background(), models.Filter{})
	require.ErrorIs(t, err, common.ErrSessionExpired)
	assert.Equal(t, common.KindAuth, common.Classify(err))
}

func TestSwipe_NoMatch(t *testing.T) {
	fb := &fakeBackend{body: `{"match": false}`}
	c := newTestClient(t, fb, "")

	m, err := c.Swipe(context.Background(), "12", models.VerdictAccept)
	require.NoError(t, err)
	assert.Nil(t, m)

	assert.Equal(t, http.MethodPost, fb.LastMethod)
	assert.Equal(t, map[string]any{"target_user_id": float64(12), "action": "like"}, fb.LastBody)
	assert.Empty(t, fb.LastHeaders.Get("Authorization"))
	assert.Equal(t, "csrf-1", fb.LastHeaders.Get("X-CSRFToken"))
}

func TestSwipe_Match(t *testing.T) {
	fb := &fakeBackend{body: `{"match": true, "conversation_id": 42, "matched_profile_name": "Alex",
		"matched_profile_image": "https://cdn.example/alex.jpg"}`}
	c := newTestClient(t, fb, "tok")

	m, err := c.Swipe(context.Background(), "u-2", models.VerdictAccept)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.MatchInfo{
		ConversationID:      "42",
		CounterpartName:     "Alex",
		CounterpartPhotoURL: "https://cdn.example/alex.jpg",
	}, *m)
	assert.Equal(t, "u-2", fb.LastBody["target_user_id"])
}

func TestSwipe_MatchWithMissingFieldsDegrades(t *testing.T) {
	fb := &fakeBackend{body: `{"match": true, "matched_user_name": "Legacy"}`}
	c := newTestClient(t, fb, "tok")

	m, err := c.Swipe(context.Background(), "3", models.VerdictAccept)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Legacy", m.CounterpartName)
	assert.Empty(t, m.ConversationID)
	assert.Equal(t, c.baseURL+common.DefaultPhotoURL, m.CounterpartPhotoURL)
}

func TestSwipe_ServerRejection(t *testing.T) {
	fb := &fakeBackend{status: http.StatusBadRequest, body: `{"error":"Target user not found"}`}
	c := newTestClient(t, fb, "tok")

	_, err := c.Swipe(context.Background(), "3", models.VerdictReject)
	var se *common.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "Target user not found", se.Detail)
}

func TestSwipe_ValidatesLocally(t *testing.T) {
	fb := &fakeBackend{}
	c := newTestClient(t, fb, "tok")

	_, err := c.Swipe(context.Background(), "", models.VerdictAccept)
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = c.Swipe(context.Background(), "1", models.Verdict("superlike"))
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, fb.LastPath)
}

func TestSwipe_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewHTTPClient(srv.URL, auth.NewStaticCredentials("", ""))
	require.NoError(t, err)

	_, err = c.Swipe(context.Background(), "1", models.VerdictAccept)
	require.ErrorIs(t, err, common.ErrTransport)
	assert.Equal(t, common.KindTransport, common.Classify(err))
}

func TestUnmatch(t *testing.T) {
	fb := &fakeBackend{body: `{"status":"ok"}`}
	c := newTestClient(t, fb, "tok")

	require.NoError(t, c.Unmatch(context.Background(), "17"))
	assert.Equal(t, "/api/matches/api/actions/unmatch/17/", fb.LastPath)
	assert.Equal(t, http.MethodPost, fb.LastMethod)

	fb.status = http.StatusForbidden
	err := c.Unmatch(context.Background(), "17")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	require.ErrorIs(t, c.Unmatch(context.Background(), " "), common.ErrValidation)
}

func TestUnmatch_CustomPath(t *testing.T) {
	fb := &fakeBackend{body: `{}`}
	c := newTestClient(t, fb, "tok", WithEndpoints(Endpoints{Unmatch: "/custom/unmatch/{id}"}))

	require.NoError(t, c.Unmatch(context.Background(), "17"))
	assert.Equal(t, "/custom/unmatch/17", fb.LastPath)
	assert.Equal(t, DefaultEndpoints().Swipe, c.endpoints.Swipe, "unset paths keep their defaults")
}

func TestNewHTTPClient_RejectsPathWithoutID(t *testing.T) {
	_, err := NewHTTPClient("http://x", auth.NewStaticCredentials("", ""),
		WithEndpoints(Endpoints{Unmatch: "/api/actions/unmatch/"}))
	require.ErrorContains(t, err, "{id}")

	_, err = NewHTTPClient("http://x", auth.NewStaticCredentials("", ""),
		WithEndpoints(Endpoints{Messages: "/messages/"}))
	require.ErrorContains(t, err, "{id}")
}

func TestMatches(t *testing.T) {
	fb := &fakeBackend{body: `[
		{"id": 3, "user1": {"id": 7, "username": "me", "first_name": "", "last_name": ""},
		 "user2": {"id": 9, "username": "alex", "first_name": "Alex", "last_name": "Kim"},
		 "created_at": "2026-05-30T12:00:00Z", "conversation_id": 42},
		{"id": 4, "user1": {"id": 7, "username": "me"}, "user2": null, "created_at": "bogus", "conversation_id": null}
	]`}
	c := newTestClient(t, fb, "tok")

	got, err := c.Matches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/matches/api/matches/", fb.LastPath)
	assert.Equal(t, "Bearer tok", fb.LastHeaders.Get("Authorization"))
	assert.Equal(t, []models.Match{
		{
			ID:             "3",
			Participants:   []models.Participant{{ID: "7", Name: "me"}, {ID: "9", Name: "Alex Kim"}},
			ConversationID: "42",
			CreatedAt:      time.Date(2026, 5, 30, 12, 0, 0, 0, time.UTC),
		},
		{ID: "4", Participants: []models.Participant{{ID: "7", Name: "me"}}},
	}, got)
}

func TestConversations_PaginatedPage(t *testing.T) {
	fb := &fakeBackend{body: `{"count": 1, "results": [
		{"id": 42, "participants": [{"id": 7, "username": "me"}, {"id": 9, "username": "alex"}],
		 "created_at": "2026-05-30T12:00:00Z", "updated_at": "2026-06-01T08:00:00Z",
		 "last_message": {"id": 1, "conversation": 42, "sender": {"id": 9, "username": "alex"},
		                  "content": "hey", "created_at": "2026-06-01T08:00:00Z"}},
		{"id": 43, "participants": [], "updated_at": "2026-06-01T08:00:00Z", "last_message": null}
	]}`}
	c := newTestClient(t, fb, "tok")

	got, err := c.Conversations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0].ID)
	assert.Equal(t, []models.Participant{{ID: "7", Name: "me"}, {ID: "9", Name: "alex"}}, got[0].Participants)
	require.NotNil(t, got[0].LastMessage)
	assert.Equal(t, "hey", got[0].LastMessage.Content)
	assert.Equal(t, "9", got[0].LastMessage.SenderID)
	assert.Nil(t, got[1].LastMessage)
}

func TestMessages(t *testing.T) {
	fb := &fakeBackend{body: `[
		{"id": 1, "conversation": 42, "sender": {"id": 9, "username": "alex", "first_name": "Alex"}, "content": "hey", "created_at": "2026-06-01T08:00:00.5Z"},
		{"id": 2, "conversation": 42, "sender": {"id": 7, "username": "me"}, "content": "hi", "created_at": "2026-06-01T08:01:00Z"}
	]`}
	c := newTestClient(t, fb, "tok")

	got, err := c.Messages(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "/api/matches/api/conversations/42/messages/", fb.LastPath)
	assert.Equal(t, []models.Message{
		{SenderID: "9", SenderName: "Alex", Content: "hey", SentAt: time.Date(2026, 6, 1, 8, 0, 0, 5e8, time.UTC)},
		{SenderID: "7", SenderName: "me", Content: "hi", SentAt: time.Date(2026, 6, 1, 8, 1, 0, 0, time.UTC)},
	}, got)

	_, err = c.Messages(context.Background(), " ")
	require.ErrorIs(t, err, common.ErrValidation)

	fb.status = http.StatusNotFound
	fb.body = `{"detail": "Conversation not found."}`
	_, err = c.Messages(context.Background(), "404")
	var se *common.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Conversation not found.", se.Detail)
}

func TestListCalls_RequireBearer(t *testing.T) {
	c := newTestClient(t, &fakeBackend{body: `[]`}, "")

	_, err := c.Matches(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = c.Conversations(context.Background())
	require.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = c.Messages(context.Background(), "42")
	require.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestFlexID(t *testing.T) {
	var v struct {
		A flexID `json:"a"`
		B flexID `json:"b"`
		C flexID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12, "b": " x ", "c": null}`), &v))
	assert.Equal(t, flexID("12"), v.A)
	assert.Equal(t, flexID("x"), v.B)
	assert.Equal(t, flexID(""), v.C)

	require.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}
