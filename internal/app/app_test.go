package app

import (
	"bytes"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/internal/testutil"
	"courseconnect_backend/internal/util"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	t   *testing.T
	app *App
	db  *gorm.DB
}

func newTestServer(t *testing.T, rdb *redis.Client) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	a := Build(testutil.Config(t), db, rdb)
	t.Cleanup(a.limiter.Stop)
	return &testServer{t: t, app: a, db: db}
}

func (s *testServer) token(u *model.User) string {
	s.t.Helper()
	tok, err := util.GenerateJWT(u, testutil.JWTSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) do(method, path string, u *model.User, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(u))
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type classFixture struct {
	instructor, asker, helper, outsider *model.User
	classID, questionID, answerID       string
}

// setupClass 通过 HTTP 完成建课、加入、提问与回答
func (s *testServer) setupClass() classFixture {
	t := s.t
	f := classFixture{
		instructor: testutil.CreateUser(t, s.db, "Teacher", model.Faculty),
		asker:      testutil.CreateUser(t, s.db, "Asker", model.Student),
		helper:     testutil.CreateUser(t, s.db, "Helper", model.Student),
		outsider:   testutil.CreateUser(t, s.db, "Outsider", model.Student),
	}

	w, env := s.do(http.MethodPost, "/api/classes", f.instructor, obj{"title": "Algorithms", "joinCode": "algo1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	class := decode[model.ClassRoom](t, env.Data)
	assert.Equal(t, "ALGO1", class.JoinCode)
	f.classID = class.ID

	for _, u := range []*model.User{f.asker, f.helper} {
		w, _ = s.do(http.MethodPost, "/api/classes/join", u, obj{"joinCode": "algo1"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodPost, "/api/classes/"+f.classID+"/questions", f.asker, obj{"title": "Big-O of quicksort?", "tags": []string{"sorting"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f.questionID = decode[struct{ ID string }](t, env.Data).ID

	w, env = s.do(http.MethodPost, "/api/questions/"+f.questionID+"/answers", f.helper, obj{"body": "n log n on average"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	f.answerID = decode[struct{ ID string }](t, env.Data).ID
	return f
}

type obj = map[string]interface{}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w, env := s.do(http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, "disabled", data["components"].(map[string]interface{})["redis"])
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	w, _ := s.do(http.MethodGet, "/api/profile", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(http.MethodPost, "/api/register", nil, obj{"name": "Ada", "email": "ada@example.edu", "password": "secret1", "role": "student"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]interface{}](t, env.Data)["emailVerified"])

	w, _ = s.do(http.MethodPost, "/api/register", nil, obj{"name": "Ada", "email": "ada@example.edu", "password": "secret1", "role": "student"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/api/register", nil, obj{"name": "Ada", "email": "x@example.edu", "password": "secret1", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/login", nil, obj{"email": "ada@example.edu", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	prof := testutil.CreateUser(t, s.db, "Prof", model.Faculty)
	w, _ = s.do(http.MethodPost, "/api/login", nil, obj{"email": prof.Email, "password": testutil.Password, "role": "student"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, "/api/login", nil, obj{"email": prof.Email, "password": testutil.Password, "role": "faculty"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode[map[string]interface{}](t, env.Data)["token"])

	w, env = s.do(http.MethodGet, "/api/profile", prof, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, prof.Email, decode[model.User](t, env.Data).Email)
}

func TestStudentCannotCreateClass(t *testing.T) {
	s := newTestServer(t, nil)
	student := testutil.CreateUser(t, s.db, "Student", model.Student)
	w, _ := s.do(http.MethodPost, "/api/classes", student, obj{"title": "Mine"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpvoteAndAcceptOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	f := s.setupClass()

	w, _ := s.do(http.MethodPost, "/api/answers/"+f.answerID+"/upvote", f.helper, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/answers/"+f.answerID+"/upvote", f.outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(http.MethodPost, "/api/answers/missing/upvote", f.asker, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := s.do(http.MethodPost, "/api/answers/"+f.answerID+"/upvote", f.asker, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	toggle := decode[map[string]interface{}](t, env.Data)
	assert.Equal(t, true, toggle["voted"])
	assert.EqualValues(t, 1, toggle["voteCount"])

	w, _ = s.do(http.MethodPost, "/api/questions/"+f.questionID+"/answers/"+f.answerID+"/accept", f.helper, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = s.do(http.MethodPost, "/api/questions/"+f.questionID+"/answers/"+f.answerID+"/accept", f.asker, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]interface{}](t, env.Data)["bonusGranted"])

	assert.Equal(t, 1+5, testutil.MemberPoints(t, s.db, f.classID, f.helper.ID))

	w, env = s.do(http.MethodGet, "/api/classes/"+f.classID+"/leaderboard?search=help", f.asker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Entries []struct {
			Rank        int    `json:"rank"`
			DisplayName string `json:"displayName"`
			Points      int    `json:"points"`
		} `json:"entries"`
		Total int `json:"total"`
	}](t, env.Data)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "Helper", page.Entries[0].DisplayName)
	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, 6, page.Entries[0].Points)

	w, _ = s.do(http.MethodGet, "/api/classes/"+f.classID+"/leaderboard", f.outsider, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLeaderboardExport(t *testing.T) {
	s := newTestServer(t, nil)
	f := s.setupClass()

	w, _ := s.do(http.MethodPost, "/api/questions/"+f.questionID+"/upvote", f.helper, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/classes/"+f.classID+"/leaderboard/export", f.instructor, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Rank", "Name", "Points", "Email", "UID"}, records[0])
	assert.Equal(t, []string{"1", "Asker", "10", f.asker.Email}, records[1][:4])
}

func TestClassFeedWebSocket(t *testing.T) {
	_, rdb := testutil.NewRedis(t)
	s := newTestServer(t, rdb)
	f := s.setupClass()

	srv := httptest.NewServer(s.app.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/classes/" + f.classID + "/feed?token=" + s.token(f.asker)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	w, _ := s.do(http.MethodPost, "/api/answers/"+f.answerID+"/upvote", f.asker, nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	seen := map[model.EventType]bool{}
	for !seen[model.EventVoteToggled] {
		var ev model.Event
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, f.classID, ev.ClassID)
		seen[ev.Type] = true
	}
	assert.True(t, seen[model.EventPointsChanged])

	_, resp, err = websocket.DefaultDialer.Dial(strings.Replace(url, s.token(f.asker), s.token(f.outsider), 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFeedUnavailableWithoutRedis(t *testing.T) {
	s := newTestServer(t, nil)
	f := s.setupClass()
	w, _ := s.do(http.MethodGet, "/api/classes/"+f.classID+"/feed", f.asker, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReloadUpdatesScoringRules(t *testing.T) {
	s := newTestServer(t, nil)
	f := s.setupClass()

	cfg := *s.app.Config
	cfg.Scoring.AnswerUpvote = 4
	s.app.applyConfig(&cfg)

	w, env := s.do(http.MethodPost, "/api/answers/"+f.answerID+"/upvote", f.asker, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode[map[string]interface{}](t, env.Data)["pointDelta"])
	assert.Equal(t, 4, testutil.MemberPoints(t, s.db, f.classID, f.helper.ID))
}
