package handlers

import (
	"net/http"
	"testing"

	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
)

const postBody = `{
	"title": "First post",
	"content": "Hello, world",
	"author": "Alice",
	"slug": "first-post"
}`

func TestPostsRequireSession(t *testing.T) {
	env := newTestEnv(t)

	apitest.Handler(env.router).
		Get("/posts").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.Handler(env.router).
		Post("/posts").
		JSON(postBody).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Post("/posts").
		Header("Authorization", "Bearer "+token).
		JSON(postBody).
		Expect(t).
		Status(http.StatusCreated).
		Assert(jsonpath.Equal("$.title", "First post")).
		Assert(jsonpath.Equal("$.slug", "first-post")).
		End()

	apitest.Handler(env.router).
		Get("/posts").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.total", float64(1))).
		Assert(jsonpath.Len("$.items", 1)).
		End()

	apitest.Handler(env.router).
		Get("/posts/1").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.author", "Alice")).
		End()

	apitest.Handler(env.router).
		Put("/posts/1").
		Header("Authorization", "Bearer "+token).
		JSON(`{"title": "Edited", "content": "Hello again", "author": "Alice", "slug": "first-post"}`).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Equal("$.title", "Edited")).
		End()

	apitest.Handler(env.router).
		Delete("/posts/1").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.Handler(env.router).
		Get("/posts/1").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

func TestPostValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Post("/posts").
		Header("Authorization", "Bearer "+token).
		JSON(`{"title": "", "content": "", "author": "", "slug": ""}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Assert(jsonpath.Present("$.fields.title")).
		End()
}

func TestPostBadID(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Get("/posts/banana").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}

func TestPostPagination(t *testing.T) {
	env := newTestEnv(t)
	token := env.registerAndLogin(t)

	apitest.Handler(env.router).
		Get("/posts").
		Query("page", "0").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	apitest.Handler(env.router).
		Get("/posts").
		Query("limit", "5000").
		Header("Authorization", "Bearer "+token).
		Expect(t).
		Status(http.StatusBadRequest).
		End()
}
