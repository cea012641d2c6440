package kanban

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/kanbanctl/internal/apiclient"
	"github.com/florianilch/kanbanctl/internal/tokenstore"
)

type stubRefresher struct {
	pair tokenstore.CredentialPair
	err  error
}

func (s stubRefresher) Refresh(context.Context, string) (tokenstore.CredentialPair, error) {
	return s.pair, s.err
}

// setup starts handler as the API and returns services bound to a fresh memory store
// seeded with a valid pair.
func setup(t *testing.T, handler http.HandlerFunc, refresher apiclient.Refresher) (*Services, *tokenstore.MemoryStore) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Write(context.Background(), tokenstore.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}))

	if refresher == nil {
		refresher = stubRefresher{err: errors.New("unexpected refresh")}
	}
	client, err := apiclient.NewClient(server.URL, store, refresher)
	require.NoError(t, err)

	return &Services{
		Auth:     NewAuthService(client, store, refresher),
		Tasks:    NewTaskService(client),
		Comments: NewCommentService(client),
		Replies:  NewReplyService(client),
		Users:    NewUserService(client),
	}, store
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestAuthService_Login(t *testing.T) {
	services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "login is sent without bearer")

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"usernameOrEmail": "alice", "password": "secret"}, body)
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "A9", "refreshToken": "R9"})
	}, nil)

	err := services.Auth.Login(context.Background(), LoginRequest{UsernameOrEmail: "alice", Password: "secret"})
	require.NoError(t, err)

	pair, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &tokenstore.CredentialPair{AccessToken: "A9", RefreshToken: "R9"}, pair)
}

func TestAuthService_LoginBadCredentials(t *testing.T) {
	services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, apiclient.APIError{Path: r.URL.Path, Message: "Invalid credentials", StatusCode: 401})
	}, nil)

	err := services.Auth.Login(context.Background(), LoginRequest{UsernameOrEmail: "alice", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apiclient.IsApplication(err))
	assert.Equal(t, "Invalid credentials", apiclient.ServerMessage(err))

	pair, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pair, "a failed login leaves the previous session alone")
}

func TestAuthService_ReadOnlyStore(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "A9", "refreshToken": "R9"})
	}))
	t.Cleanup(server.Close)

	t.Setenv("KANBANCTL_RO_ACCESS_TOKEN", "A1")
	t.Setenv("KANBANCTL_RO_REFRESH_TOKEN", "R1")
	store, err := tokenstore.NewEnvStore("KANBANCTL_RO_")
	require.NoError(t, err)

	refresher := stubRefresher{pair: tokenstore.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}}
	client, err := apiclient.NewClient(server.URL, store, refresher)
	require.NoError(t, err)
	auth := NewAuthService(client, store, refresher)

	ctx := context.Background()
	assert.ErrorIs(t, auth.Login(ctx, LoginRequest{UsernameOrEmail: "alice", Password: "secret"}), tokenstore.ErrReadOnly)
	assert.ErrorIs(t, auth.Refresh(ctx), tokenstore.ErrReadOnly)
	assert.Zero(t, calls.Load(), "nothing is sent when the pair cannot be stored")

	require.NoError(t, auth.Logout(ctx), "logout ignores read-only storage")
	assert.Equal(t, int32(1), calls.Load())
}

func TestValidationHappensBeforeIO(t *testing.T) {
	services, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		call      func() error
		wantField string
	}{
		{
			name:      "login without password",
			call:      func() error { return services.Auth.Login(ctx, LoginRequest{UsernameOrEmail: "alice"}) },
			wantField: "password",
		},
		{
			name: "register with malformed email",
			call: func() error {
				return services.Auth.Register(ctx, RegisterRequest{
					Username: "bob", Password: "pw", Email: "not-an-email",
					FirstName: "Bob", LastName: "B", Gender: GenderMale,
				})
			},
			wantField: "email",
		},
		{
			name: "task with unknown status",
			call: func() error {
				_, err := services.Tasks.Create(ctx, TaskRequest{Title: "t", Status: "BLOCKED"})
				return err
			},
			wantField: "status",
		},
		{
			name: "task with unknown label",
			call: func() error {
				_, err := services.Tasks.Create(ctx, TaskRequest{Title: "t", Status: StatusTodo, Labels: []Label{"URGENT"}})
				return err
			},
			wantField: "labels[0]",
		},
		{
			name: "comment without message",
			call: func() error {
				_, err := services.Comments.Create(ctx, CommentCreateRequest{TaskID: 1, AuthorUserID: 1})
				return err
			},
			wantField: "message",
		},
		{
			name: "reply update without message",
			call: func() error {
				_, err := services.Replies.Update(ctx, 1, MessageUpdateRequest{})
				return err
			},
			wantField: "message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, goerrors.IsValidation(err))

			fields, ok := goerrors.GetValidationErrors(err)
			require.True(t, ok)
			require.NotEmpty(t, fields)
			assert.Equal(t, tt.wantField, fields[0].Field)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	t.Run("success stores new pair", func(t *testing.T) {
		refresher := stubRefresher{pair: tokenstore.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}}
		services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {}, refresher)

		require.NoError(t, services.Auth.Refresh(context.Background()))
		pair, err := store.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "A2", pair.AccessToken)
	})

	t.Run("failure clears store", func(t *testing.T) {
		refresher := stubRefresher{err: errors.New("revoked")}
		services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {}, refresher)

		err := services.Auth.Refresh(context.Background())
		require.Error(t, err)
		assert.True(t, apiclient.IsAuthorization(err))

		pair, err := store.Read(context.Background())
		require.NoError(t, err)
		assert.Nil(t, pair)
	})

	t.Run("no session", func(t *testing.T) {
		services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
		require.NoError(t, store.Clear(context.Background()))

		err := services.Auth.Refresh(context.Background())
		assert.True(t, apiclient.IsAuthorization(err))
	})
}

func TestAuthService_Logout(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "server accepts", status: http.StatusNoContent},
		{name: "server fails", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
				assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			}, nil)

			err := services.Auth.Logout(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apiclient.IsApplication(err))
			} else {
				require.NoError(t, err)
			}

			pair, err := store.Read(context.Background())
			require.NoError(t, err)
			assert.Nil(t, pair, "logout always clears the store")
		})
	}

	t.Run("server unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		store := tokenstore.NewMemoryStore()
		require.NoError(t, store.Write(context.Background(), tokenstore.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}))
		refresher := stubRefresher{err: errors.New("unexpected refresh")}
		client, err := apiclient.NewClient(url, store, refresher)
		require.NoError(t, err)

		err = NewAuthService(client, store, refresher).Logout(context.Background())
		require.Error(t, err)
		assert.True(t, apiclient.IsTransport(err))

		pair, err := store.Read(context.Background())
		require.NoError(t, err)
		assert.Nil(t, pair, "logout clears the store when the API is down")
	})
}

func TestAuthService_Status(t *testing.T) {
	services, store := setup(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	ctx := context.Background()

	expiry := time.Now().Add(-time.Minute).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": expiry.Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, tokenstore.CredentialPair{AccessToken: access, RefreshToken: "R1"}))

	status, err := services.Auth.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)
	assert.Equal(t, "7", status.UserID)
	require.NotNil(t, status.ExpiresAt)
	assert.True(t, status.ExpiresAt.Equal(expiry))
	assert.True(t, status.Expired)

	require.NoError(t, store.Clear(ctx))
	status, err = services.Auth.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.LoggedIn)
}

func TestTaskService(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	task := Task{ID: 3, Title: "ship", Status: StatusInProgress, Labels: []Label{LabelFeature}, CreatorUserID: 1, CreatedAt: now, UpdatedAt: now}

	services, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer A1", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/tasks":
			assert.Equal(t, "IN_PROGRESS", r.URL.Query().Get("status"))
			writeJSON(w, http.StatusOK, []Task{task})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/tasks/3":
			writeJSON(w, http.StatusOK, task)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/tasks":
			var req TaskRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "ship", req.Title)
			writeJSON(w, http.StatusOK, task)
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/tasks/3":
			writeJSON(w, http.StatusOK, task)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/tasks/3":
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusNotFound, apiclient.APIError{Path: r.URL.Path, Message: "Task not found", StatusCode: 404})
		}
	}, nil)
	ctx := context.Background()

	status := StatusInProgress
	tasks, err := services.Tasks.List(ctx, &status)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	assert.True(t, tasks[0].CreatedAt.Equal(now))

	got, err := services.Tasks.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "ship", got.Title)

	_, err = services.Tasks.Create(ctx, TaskRequest{Title: "ship", Status: StatusInProgress})
	require.NoError(t, err)
	_, err = services.Tasks.Update(ctx, 3, TaskRequest{Title: "ship", Status: StatusDone})
	require.NoError(t, err)
	require.NoError(t, services.Tasks.Delete(ctx, 3))

	_, err = services.Tasks.Get(ctx, 99)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))

	invalid := Status("BLOCKED")
	_, err = services.Tasks.List(ctx, &invalid)
	assert.True(t, goerrors.IsValidation(err))
}

func TestCommentAndReplyPaths(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	services, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if r.URL.Path == "/api/v1/comments/task/7" || r.URL.Path == "/api/v1/replies/comment/8" {
				writeJSON(w, http.StatusOK, []any{})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"id": 1})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"id": 1})
		}
	}, nil)
	ctx := context.Background()

	_, err := services.Comments.ListForTask(ctx, 7)
	require.NoError(t, err)
	_, err = services.Comments.Get(ctx, 1)
	require.NoError(t, err)
	_, err = services.Comments.Create(ctx, CommentCreateRequest{TaskID: 7, AuthorUserID: 1, Message: "hi"})
	require.NoError(t, err)
	_, err = services.Comments.Update(ctx, 1, MessageUpdateRequest{Message: "edited"})
	require.NoError(t, err)
	require.NoError(t, services.Comments.Delete(ctx, 1))

	_, err = services.Replies.ListForComment(ctx, 8)
	require.NoError(t, err)
	_, err = services.Replies.Get(ctx, 2)
	require.NoError(t, err)
	_, err = services.Replies.Create(ctx, ReplyCreateRequest{CommentID: 8, AuthorUserID: 1, Message: "ack"})
	require.NoError(t, err)
	_, err = services.Replies.Update(ctx, 2, MessageUpdateRequest{Message: "edited"})
	require.NoError(t, err)
	require.NoError(t, services.Replies.Delete(ctx, 2))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/v1/comments/task/7",
		"GET /api/v1/comments/1",
		"POST /api/v1/comments",
		"PUT /api/v1/comments/1",
		"DELETE /api/v1/comments/1",
		"GET /api/v1/replies/comment/8",
		"GET /api/v1/replies/2",
		"POST /api/v1/replies",
		"PUT /api/v1/replies/2",
		"DELETE /api/v1/replies/2",
	}, paths)
}

func TestUserService(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nfake")

	services, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users":
			query := r.URL.Query()
			assert.Equal(t, "1", query.Get("page"))
			assert.Equal(t, "20", query.Get("size"))
			assert.Equal(t, "username,asc", query.Get("sort"))
			writeJSON(w, http.StatusOK, Page[User]{
				Content:       []User{{ID: 1, Username: "alice", Email: "alice@example.com", Gender: GenderFemale}},
				TotalElements: 21, TotalPages: 2, Number: 1, Size: 20, NumberOfElements: 1, Last: true,
			})
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/users/1":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"firstName": "Alicia"}, body)
			writeJSON(w, http.StatusOK, User{ID: 1, FirstName: "Alicia", Username: "alice", Email: "alice@example.com", Gender: GenderFemale})
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/users/1/profile-image":
			file, header, err := r.FormFile(ProfileImageField)
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(file)
			assert.NoError(t, err)
			assert.Equal(t, image, data)
			assert.Equal(t, "avatar.png", header.Filename)
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/users/1/profile-image":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(image)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, nil)
	ctx := context.Background()

	page, size, sort := 1, 20, "username,asc"
	users, err := services.Users.List(ctx, ListUsersParams{Page: &page, Size: &size, Sort: &sort})
	require.NoError(t, err)
	require.Len(t, users.Content, 1)
	assert.Equal(t, openapi_types.Email("alice@example.com"), users.Content[0].Email)
	assert.True(t, users.Last)

	firstName := "Alicia"
	updated, err := services.Users.Update(ctx, 1, UserUpdateRequest{FirstName: &firstName})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", updated.FirstName)

	badEmail := openapi_types.Email("nope")
	_, err = services.Users.Update(ctx, 1, UserUpdateRequest{Email: &badEmail})
	assert.True(t, goerrors.IsValidation(err))

	var file openapi_types.File
	file.InitFromBytes(image, "avatar.png")
	require.NoError(t, services.Users.UploadProfileImage(ctx, 1, file))

	var empty openapi_types.File
	empty.InitFromBytes(nil, "empty.png")
	assert.Error(t, services.Users.UploadProfileImage(ctx, 1, empty))

	data, contentType, err := services.Users.ProfileImage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, image, data)
	assert.Equal(t, "image/png", contentType)
}

func TestUploadReplaysBodyAfterRefresh(t *testing.T) {
	image := []byte("\x89PNG\r\n\x1a\nreplay")
	var attempts atomic.Int32

	refresher := stubRefresher{pair: tokenstore.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}}
	services, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		file, _, err := r.FormFile(ProfileImageField)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		assert.Equal(t, image, data)
		w.WriteHeader(http.StatusOK)
	}, refresher)

	var file openapi_types.File
	file.InitFromBytes(image, "avatar.png")
	require.NoError(t, services.Users.UploadProfileImage(context.Background(), 1, file))
	assert.Equal(t, int32(2), attempts.Load())
}
