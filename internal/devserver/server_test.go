package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/kanban"
	"github.com/florianilch/kanbanctl/internal/tokensource"
	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	server    *httptest.Server
	clock     *fakeClock
	store     *tokenstore.MemoryStore
	exchanger *tokensource.Exchanger
	services  *kanban.Services
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Now()}
	srv, err := New(Config{
		JWTSecret: []byte("test-secret"),
		Now:       clock.Now,
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	server := httptest.NewServer(srv)
	t.Cleanup(server.Close)

	return &harness{server: server, clock: clock}
}

// session returns services bound to a fresh memory store.
func (h *harness) session(t *testing.T) *harness {
	t.Helper()

	store := tokenstore.NewMemoryStore()
	exchanger := tokensource.NewExchanger(h.server.URL)
	client, err := apiclient.NewClient(h.server.URL, store, exchanger)
	require.NoError(t, err)

	return &harness{
		server:    h.server,
		clock:     h.clock,
		store:     store,
		exchanger: exchanger,
		services: &kanban.Services{
			Auth:     kanban.NewAuthService(client, store, exchanger),
			Tasks:    kanban.NewTaskService(client),
			Comments: kanban.NewCommentService(client),
			Replies:  kanban.NewReplyService(client),
			Users:    kanban.NewUserService(client),
		},
	}
}

func (h *harness) register(t *testing.T, username string) {
	t.Helper()
	err := h.services.Auth.Register(context.Background(), kanban.RegisterRequest{
		Username:  username,
		Password:  "secret-" + username,
		Email:     openapi_types.Email(username + "@example.com"),
		FirstName: strings.ToUpper(username[:1]) + username[1:],
		LastName:  "Tester",
		Gender:    kanban.GenderOther,
	})
	require.NoError(t, err)
}

func (h *harness) pair(t *testing.T) tokenstore.CredentialPair {
	t.Helper()
	pair, err := h.store.Read(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pair)
	return *pair
}

func TestServer_SessionLifecycle(t *testing.T) {
	h := newHarness(t).session(t)
	ctx := context.Background()

	h.register(t, "alice")
	first := h.pair(t)

	task, err := h.services.Tasks.Create(ctx, kanban.TaskRequest{
		Title:  "Write docs",
		Status: kanban.StatusTodo,
		Labels: []kanban.Label{kanban.LabelDocumentation},
	})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, int64(1), task.CreatorUserID)

	// Past the access token lifetime the next call refreshes and retries.
	h.clock.Advance(DefaultAccessTTL + time.Minute)

	tasks, err := h.services.Tasks.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	second := h.pair(t)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The rotated refresh token is spent.
	_, err = h.exchanger.Refresh(ctx, first.RefreshToken)
	assert.Error(t, err)

	require.NoError(t, h.services.Auth.Logout(ctx))
	pair, err := h.store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, pair)

	_, err = h.exchanger.Refresh(ctx, second.RefreshToken)
	assert.Error(t, err, "logout revokes refresh tokens")
}

func TestServer_ExpiredRefreshTokenEndsSession(t *testing.T) {
	h := newHarness(t).session(t)
	ctx := context.Background()

	h.register(t, "bob")
	h.clock.Advance(DefaultRefreshTTL + time.Hour)

	_, err := h.services.Tasks.List(ctx, nil)
	require.Error(t, err)
	assert.True(t, apiclient.IsAuthorization(err))

	pair, err := h.store.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, pair, "failed refresh clears the store")
}

func TestServer_RequiresBearer(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name          string
		authorization string
	}{
		{name: "missing header"},
		{name: "wrong scheme", authorization: "Basic Zm9vOmJhcg=="},
		{name: "garbage token", authorization: "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, h.server.URL+"/api/v1/tasks", nil)
			require.NoError(t, err)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			var body APIError
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "/api/v1/tasks", body.Path)
			assert.Equal(t, http.StatusUnauthorized, body.StatusCode)
			assert.Equal(t, "Full authentication is required to access this resource", body.Message)
			assert.NotEmpty(t, body.LocalDateTime)
		})
	}
}

func TestServer_UnknownEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.server.URL + "/api/v2/nothing")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/api/v2/nothing", body.Path)
}

func TestServer_RejectsInvalidBody(t *testing.T) {
	h := newHarness(t).session(t)
	h.register(t, "carol")
	pair := h.pair(t)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "malformed", body: `{"title":`, message: "Malformed request body"},
		{name: "missing title", body: `{"status":"TODO"}`, message: "title"},
		{name: "unknown status", body: `{"title":"x","status":"BLOCKED"}`, message: "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, h.server.URL+"/api/v1/tasks", strings.NewReader(tt.body))
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body APIError
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Contains(t, body.Message, tt.message)
		})
	}
}

func TestServer_LoginAndConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	alice := h.session(t)
	alice.register(t, "alice")

	t.Run("duplicate username", func(t *testing.T) {
		other := h.session(t)
		err := other.services.Auth.Register(ctx, kanban.RegisterRequest{
			Username: "alice", Password: "x", Email: "other@example.com",
			FirstName: "A", LastName: "B", Gender: kanban.GenderFemale,
		})
		require.Error(t, err)
		assert.True(t, apiclient.IsApplication(err))
		assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))
	})

	t.Run("login by email", func(t *testing.T) {
		other := h.session(t)
		err := other.services.Auth.Login(ctx, kanban.LoginRequest{UsernameOrEmail: "ALICE@example.com", Password: "secret-alice"})
		require.NoError(t, err)
		assert.True(t, other.pair(t).Complete())
	})

	t.Run("wrong password", func(t *testing.T) {
		other := h.session(t)
		err := other.services.Auth.Login(ctx, kanban.LoginRequest{UsernameOrEmail: "alice", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, apiclient.StatusCode(err))
		assert.Equal(t, "Invalid credentials", apiclient.ServerMessage(err))
	})
}

func TestServer_CommentsAndReplies(t *testing.T) {
	h := newHarness(t).session(t)
	ctx := context.Background()
	h.register(t, "dave")

	task, err := h.services.Tasks.Create(ctx, kanban.TaskRequest{Title: "Ship", Status: kanban.StatusInProgress})
	require.NoError(t, err)

	comment, err := h.services.Comments.Create(ctx, kanban.CommentCreateRequest{TaskID: task.ID, AuthorUserID: 1, Message: "first"})
	require.NoError(t, err)
	reply, err := h.services.Replies.Create(ctx, kanban.ReplyCreateRequest{CommentID: comment.ID, AuthorUserID: 1, Message: "ack"})
	require.NoError(t, err)

	updated, err := h.services.Comments.Update(ctx, comment.ID, kanban.MessageUpdateRequest{Message: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Message)

	comments, err := h.services.Comments.ListForTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	replies, err := h.services.Replies.ListForComment(ctx, comment.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	_, err = h.services.Comments.Create(ctx, kanban.CommentCreateRequest{TaskID: 99, AuthorUserID: 1, Message: "orphan"})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))

	require.NoError(t, h.services.Tasks.Delete(ctx, task.ID))

	_, err = h.services.Comments.Get(ctx, comment.ID)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err), "comments go with their task")
	_, err = h.services.Replies.Get(ctx, reply.ID)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err), "replies go with their comment")
}

func TestServer_Users(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	erin := h.session(t)
	erin.register(t, "erin")
	frank := h.session(t)
	frank.register(t, "frank")

	size, sort := 1, "username,desc"
	page, err := erin.services.Users.List(ctx, kanban.ListUsersParams{Size: &size, Sort: &sort})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "frank", page.Content[0].Username)
	assert.True(t, page.First)
	assert.False(t, page.Last)

	t.Run("email conflict", func(t *testing.T) {
		email := openapi_types.Email("frank@example.com")
		_, err := erin.services.Users.Update(ctx, 1, kanban.UserUpdateRequest{Email: &email})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, apiclient.StatusCode(err))
	})

	t.Run("partial update", func(t *testing.T) {
		name := "Erina"
		user, err := erin.services.Users.Update(ctx, 1, kanban.UserUpdateRequest{FirstName: &name})
		require.NoError(t, err)
		assert.Equal(t, "Erina", user.FirstName)
		assert.Equal(t, openapi_types.Email("erin@example.com"), user.Email)
	})

	t.Run("profile image", func(t *testing.T) {
		_, _, err := erin.services.Users.ProfileImage(ctx, 1)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))

		png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
		var file openapi_types.File
		file.InitFromBytes(png, "avatar.png")
		require.NoError(t, erin.services.Users.UploadProfileImage(ctx, 1, file))

		data, contentType, err := erin.services.Users.ProfileImage(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, png, data)
		assert.Equal(t, "image/png", contentType)

		user, err := erin.services.Users.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, user.ImageID)
	})

	t.Run("delete ends sessions", func(t *testing.T) {
		refreshToken := frank.pair(t).RefreshToken
		require.NoError(t, erin.services.Users.Delete(ctx, 2))

		_, err := frank.services.Tasks.List(ctx, nil)
		require.Error(t, err)
		assert.True(t, apiclient.IsAuthorization(err))

		_, err = erin.exchanger.Refresh(ctx, refreshToken)
		assert.Error(t, err)
	})
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	tests := []struct {
		name         string
		number, size int
		want         []int
		last         bool
	}{
		{name: "first page", number: 0, size: 2, want: []int{1, 2}},
		{name: "last partial page", number: 2, size: 2, want: []int{5}, last: true},
		{name: "beyond end", number: 7, size: 2, want: []int{}, last: true},
		{name: "single page", number: 0, size: 10, want: []int{1, 2, 3, 4, 5}, last: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := paginate(items, tt.number, tt.size)
			assert.Equal(t, tt.want, page.Content)
			assert.Equal(t, int64(5), page.TotalElements)
			assert.Equal(t, tt.last, page.Last)
			assert.Equal(t, len(tt.want) == 0, page.Empty)
		})
	}
}
