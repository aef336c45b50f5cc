package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bloggery/apiserver/internal/services"
	"github.com/bloggery/apiserver/internal/session"
	"github.com/bloggery/apiserver/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router      *chi.Mux
	userService *services.UserService
	postService *services.PostService
	userRepo    *testutil.MemUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	userRepo := testutil.NewMemUserRepo()
	manager, err := session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour)
	require.NoError(t, err)
	userService := services.NewUserService(userRepo, manager)
	postService := services.NewPostService(testutil.NewMemPostRepo())

	router := chi.NewRouter()
	router.NotFound(NotFound)
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, time.Hour)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService)
	})
	router.Route("/posts", func(r chi.Router) {
		PostRouter(r, postService, RequireSession(userService))
	})

	return &testEnv{
		router:      router,
		userService: userService,
		postService: postService,
		userRepo:    userRepo,
	}
}

const registerBody = `{
	"username": "alice",
	"name": "Alice",
	"email": "alice@x.com",
	"favorite_color": "blue",
	"password": "Secr3t!pass",
	"confirm_password": "Secr3t!pass"
}`

// registerAndLogin seeds an account and returns a live session token.
func (env *testEnv) registerAndLogin(t *testing.T) string {
	t.Helper()
	_, err := env.userService.Register(context.Background(), services.RegisterInput{
		Username:        "alice",
		Name:            "Alice",
		Email:           "alice@x.com",
		FavoriteColor:   "blue",
		Password:        "Secr3t!pass",
		ConfirmPassword: "Secr3t!pass",
	})
	require.NoError(t, err)
	token, _, err := env.userService.Login(context.Background(), "alice", "Secr3t!pass")
	require.NoError(t, err)
	return token
}

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(registerBody).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.username", "alice")).
		Assert(jsonpath.Equal("$.email", "alice@x.com")).
		Assert(jsonpath.NotPresent("$.password_hash")).
		Assert(jsonpath.NotPresent("$.password")).
		End()
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(`{"username": "al", "name": "Alice", "email": "not-an-email", "password": "short", "confirm_password": "short"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.fields.username")).
		Assert(jsonpath.Equal("$.fields.email", "must be a valid email address")).
		Assert(jsonpath.Equal("$.fields.password", "too short")).
		End()
}

func TestRegisterPasswordMismatch(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(`{"username": "alice", "name": "Alice", "email": "alice@x.com", "password": "Secr3t!pass", "confirm_password": "Secr3t!nope"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.fields.confirm_password")).
		End()
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(registerBody).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(`{"username": "alice2", "name": "Alice", "email": "alice@x.com", "password": "Secr3t!pass", "confirm_password": "Secr3t!pass"}`).
		Expect(t).
		Status(http.StatusConflict).
		Assert(jsonpath.Equal("$.fields.email", "already taken")).
		End()
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Post("/auth/register").
		JSON(registerBody).
		Expect(t).
		Status(http.StatusCreated).
		End()

	apitest.Handler(env.router).
		Post("/auth/login").
		JSON(`{"username": "alice", "password": "Secr3t!pass"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present("$.token")).
		Assert(jsonpath.Equal("$.user.username", "alice")).
		CookiePresent(sessionCookie).
		End()
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t)

	for _, body := range []string{
		`{"username": "alice", "password": "wrong"}`,
		`{"username": "nobody", "password": "anything"}`,
	} {
		apitest.Handler(env.router).
			Post("/auth/login").
			JSON(body).
			Expect(t).
			Status(http.StatusUnauthorized).
			Assert(jsonpath.Equal("$.error", "invalid username or password")).
			End()
	}
}

func TestMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Get("/auth/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "alice")).
		Assert(jsonpath.NotPresent("$.password_hash")).
		End()
}

func TestMeViaCookie(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Get("/auth/me").
		Cookie(sessionCookie, token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "alice")).
		End()
}

func TestMeAnonymous(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Get("/auth/me").
		Expect(t).
		Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.error", "authentication required")).
		End()

	apitest.Handler(env.router).
		Get("/auth/me").
		Header("Authorization", "Bearer forged-token").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestUpdateMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Put("/auth/me").
		Header("Authorization", "Bearer "+token).
		JSON(`{"username": "alice", "name": "Alice Cooper", "email": "alice@x.com", "favorite_color": "red"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.name", "Alice Cooper")).
		Assert(jsonpath.Equal("$.favorite_color", "red")).
		End()
}

func TestUpdateMeAnonymous(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t)

	apitest.Handler(env.router).
		Put("/auth/me").
		JSON(`{"username": "mallory", "name": "Mallory", "email": "mallory@x.com"}`).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	// The account is untouched.
	user, err := env.userRepo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", user.Name)
}

func TestDeleteMeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Delete("/auth/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		End()

	// The session died with the account.
	apitest.Handler(env.router).
		Get("/auth/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	require.Equal(t, 0, env.userRepo.Len())
}

func TestLogoutEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Post("/auth/logout").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.Handler(env.router).
		Get("/auth/me").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	// Logging out while anonymous is fine.
	apitest.Handler(env.router).
		Post("/auth/logout").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestPublicUserRoster(t *testing.T) {
	env := newTestEnv(t)
	env.registerAndLogin(t)

	apitest.Handler(env.router).
		Get("/users").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$", 1)).
		Assert(jsonpath.Equal("$[0].username", "alice")).
		End()

	apitest.Handler(env.router).
		Get("/users/1").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.username", "alice")).
		End()

	apitest.Handler(env.router).
		Get("/users/999").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Get("/healthz").
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.status", "ok")).
		End()
}
