package rest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr/funcr"
	testlogr "github.com/go-logr/logr/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/log"
)

type fakeClient struct {
	mu       sync.Mutex
	requests []*Request
	body     interface{}
	err      error
}

func (c *fakeClient) Do(ctx context.Context, req *Request) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &Response{StatusCode: 200, Body: c.body}, nil
}

func newAnnotation(t *testing.T, client Client, target directive.Target, args string) annotation.Annotation {
	t.Helper()

	arguments, err := directive.ParseArguments(args)
	if err != nil {
		t.Fatal(err)
	}
	a, err := NewFactory(client)(&directive.Info{Tag: Tag, Arguments: arguments}, target)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestFactory(t *testing.T) {
	client := &fakeClient{}
	a := newAnnotation(t, client, directive.Target{TypeName: "Query", FieldName: "users"},
		`url: "/users", method: "POST", parameters: "name, age", resultField: "users", cache: true`)

	restAnnotation := a.(*Annotation)
	if v := restAnnotation.Arguments.URL; v != "/users" {
		t.Errorf("unexpected url: %s", v)
	}
	if v := restAnnotation.Arguments.method(); v != "post" {
		t.Errorf("unexpected method: %s", v)
	}
	if diff := cmp.Diff([]string{"name", "age"}, restAnnotation.Arguments.ParameterNames()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]interface{}{"cache": true}, restAnnotation.Arguments.Extra); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFactory_otherTag(t *testing.T) {
	a, err := NewFactory(&fakeClient{})(&directive.Info{Tag: "map"}, directive.Target{TypeName: "Query"})
	if err != nil {
		t.Fatal(err)
	}
	if a != nil {
		t.Errorf("unexpected annotation: %#v", a)
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	t.Setenv("ANNOGQL_TEST_TOKEN", "dXNlcjpwYXNz")

	client := &fakeClient{
		body: map[string]interface{}{
			"user": map[string]interface{}{"id": "1", "name": "vvakame"},
		},
	}

	list := annotation.List{
		newAnnotation(t, client, directive.Target{TypeName: "Query"},
			`baseUrl: "http://example.com/api", basicAuthorization: "{{ANNOGQL_TEST_TOKEN}}"`),
		newAnnotation(t, client, directive.Target{TypeName: "Query", FieldName: "user"},
			`url: "/users/{id}", resultField: "user"`),
	}

	resolvers, err := annotation.BuildResolvers(ctx, list)
	if err != nil {
		t.Fatal(err)
	}

	resolve := resolvers.Lookup("Query", "user")
	if resolve == nil {
		t.Fatal("resolver is not installed")
	}

	v, err := resolve(ctx, map[string]interface{}{}, map[string]interface{}{"id": "1", "verbose": true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{"id": "1", "name": "vvakame"}, v); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if len(client.requests) != 1 {
		t.Fatalf("unexpected request count: %d", len(client.requests))
	}
	req := client.requests[0]
	if req.Method != "get" {
		t.Errorf("unexpected method: %s", req.Method)
	}
	if req.URL != "/users/1" {
		t.Errorf("unexpected url: %s", req.URL)
	}
	if req.BaseURL != "http://example.com/api" {
		t.Errorf("unexpected base url: %s", req.BaseURL)
	}
	if v := req.Header.Get("Authorization"); v != "Basic dXNlcjpwYXNz" {
		t.Errorf("unexpected authorization: %s", v)
	}
	if diff := cmp.Diff(map[string]interface{}{"verbose": true}, req.Query); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if req.Body != nil {
		t.Errorf("unexpected body: %v", req.Body)
	}
}

func TestResolver_postBody(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	client := &fakeClient{body: "ok"}

	list := annotation.List{
		newAnnotation(t, client, directive.Target{TypeName: "Mutation", FieldName: "createUser"},
			`url: "http://example.com/users", method: "post", parameters: "name,age"`),
	}

	resolvers, err := annotation.BuildResolvers(ctx, list)
	if err != nil {
		t.Fatal(err)
	}

	v, err := resolvers.Lookup("Mutation", "createUser")(ctx, nil, map[string]interface{}{"name": "foo", "email": "foo@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if v != "ok" {
		t.Errorf("unexpected value: %v", v)
	}

	req := client.requests[0]
	if req.Method != "post" {
		t.Errorf("unexpected method: %s", req.Method)
	}
	if diff := cmp.Diff(map[string]interface{}{"name": "foo"}, req.Body); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if req.Query != nil {
		t.Errorf("unexpected query: %v", req.Query)
	}
}

func TestResolver_missingURLParameter(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	client := &fakeClient{}
	list := annotation.List{
		newAnnotation(t, client, directive.Target{TypeName: "Query", FieldName: "user"},
			`url: "http://example.com/users/{id}"`),
	}

	resolvers, err := annotation.BuildResolvers(ctx, list)
	if err != nil {
		t.Fatal(err)
	}

	_, err = resolvers.Lookup("Query", "user")(ctx, nil, map[string]interface{}{})
	if !errors.Is(err, ErrMissingURLParameter) {
		t.Errorf("unexpected error: %v", err)
	}
	if len(client.requests) != 0 {
		t.Errorf("unexpected request count: %d", len(client.requests))
	}
}

func TestResolver_loader(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	client := &fakeClient{body: map[string]interface{}{"v": "1"}}
	list := annotation.List{
		newAnnotation(t, client, directive.Target{TypeName: "Query", FieldName: "foo"},
			`url: "http://example.com/foo"`),
	}

	resolvers, err := annotation.BuildResolvers(ctx, list)
	if err != nil {
		t.Fatal(err)
	}
	resolve := resolvers.Lookup("Query", "foo")

	reqCtx := WithLoader(ctx)
	for i := 0; i < 3; i++ {
		if _, err := resolve(reqCtx, nil, map[string]interface{}{"limit": int64(10)}); err != nil {
			t.Fatal(err)
		}
	}
	if len(client.requests) != 1 {
		t.Errorf("unexpected request count in one request: %d", len(client.requests))
	}

	if _, err := resolve(reqCtx, nil, map[string]interface{}{"limit": int64(20)}); err != nil {
		t.Fatal(err)
	}
	if len(client.requests) != 2 {
		t.Errorf("unexpected request count with other parameters: %d", len(client.requests))
	}

	if _, err := resolve(WithLoader(ctx), nil, map[string]interface{}{"limit": int64(10)}); err != nil {
		t.Fatal(err)
	}
	if len(client.requests) != 3 {
		t.Errorf("loader is shared between requests: %d", len(client.requests))
	}
}

func TestResolver_resultFieldOnNonObject(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	logger := funcr.New(func(prefix, args string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, args)
	}, funcr.Options{Verbosity: 1})
	ctx := log.WithLogger(context.Background(), logger)

	client := &fakeClient{body: []interface{}{"a", "b"}}
	list := annotation.List{
		newAnnotation(t, client, directive.Target{TypeName: "Query", FieldName: "user"},
			`url: "http://example.com/users", resultField: "user"`),
	}

	resolvers, err := annotation.BuildResolvers(ctx, list)
	if err != nil {
		t.Fatal(err)
	}

	v, err := resolvers.Lookup("Query", "user")(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("unexpected value: %v", v)
	}

	mu.Lock()
	defer mu.Unlock()
	var found bool
	for _, line := range lines {
		if strings.Contains(line, "resultField is not applied") && strings.Contains(line, `"field"="Query.user"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("not logged: %v", lines)
	}
}

func TestOnCreateResolver_urlRequired(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	list := annotation.List{
		newAnnotation(t, &fakeClient{}, directive.Target{TypeName: "Query", FieldName: "foo"}, `method: "get"`),
	}
	if _, err := annotation.BuildResolvers(ctx, list); err == nil {
		t.Error("error is expected")
	}
}

func TestResolveEnvPlaceholders_missing(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	if v := resolveEnvPlaceholders(ctx, "{{ANNOGQL_TEST_UNDEFINED_VARIABLE}}"); v != "" {
		t.Errorf("unexpected value: %s", v)
	}
	if v := resolveEnvPlaceholders(ctx, "literal"); v != "literal" {
		t.Errorf("unexpected value: %s", v)
	}
}
