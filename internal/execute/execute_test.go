package execute

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	testlogr "github.com/go-logr/logr/testing"
	"github.com/google/go-cmp/cmp"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vvakame/annogql/internal/log"
)

var testSchema = heredoc.Doc(`
	type Query {
		hero: Character
		heroes: [Character!]!
		user(id: ID!): User
		users: [User]
		requiredUser: User!
		search: [SearchResult]
		count: Int
		ratio: Float
		episode: Episode
	}
	type Mutation {
		increment: Int!
	}
	interface Character {
		name: String!
	}
	type Human implements Character {
		name: String!
		height: Float
	}
	type Droid implements Character {
		name: String!
		primaryFunction: String
	}
	type User {
		id: ID!
		name: String!
		friends: [User!]
	}
	union SearchResult = Human | User
	enum Episode {
		NEWHOPE
		EMPIRE
	}
`)

func loadSchema(t *testing.T) *ast.Schema {
	t.Helper()

	schemaDoc, gErr := parser.ParseSchemas(validator.Prelude, &ast.Source{
		Name:  "schema.graphqls",
		Input: testSchema,
	})
	if gErr != nil {
		t.Fatal(gErr)
	}
	schema, gErr := validator.ValidateSchemaDocument(schemaDoc)
	if gErr != nil {
		t.Fatal(gErr)
	}
	return schema
}

func execute(t *testing.T, schema *ast.Schema, args *ExecutionArgs, query string) (map[string]interface{}, []string) {
	t.Helper()

	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	document, gErr := parser.ParseQuery(&ast.Source{
		Name:  "query.graphql",
		Input: query,
	})
	if gErr != nil {
		t.Fatal(gErr)
	}
	if gErrs := validator.Validate(schema, document); len(gErrs) != 0 {
		t.Fatal(gErrs)
	}

	args.Schema = schema
	args.Document = document
	response := Execute(ctx, args)

	var data map[string]interface{}
	if len(response.Data) != 0 {
		if err := json.Unmarshal(response.Data, &data); err != nil {
			t.Fatalf("%s: %s", err, string(response.Data))
		}
	}

	var messages []string
	for _, gErr := range response.Errors {
		messages = append(messages, gErr.Path.String()+": "+gErr.Message)
	}
	// sibling fields run concurrently
	sort.Strings(messages)

	return data, messages
}

func TestExecute(t *testing.T) {
	schema := loadSchema(t)

	rootValue := map[string]interface{}{
		"hero": map[string]interface{}{
			"__typename": "Human",
			"name":       "Luke",
			"height":     1.72,
		},
		"heroes": []interface{}{
			map[string]interface{}{"__typename": "Human", "name": "Luke"},
			map[string]interface{}{"__typename": "Droid", "name": "R2-D2", "primaryFunction": "Astromech"},
		},
		"users": []interface{}{
			map[string]interface{}{"id": float64(1), "name": "foo"},
			nil,
		},
		"search": []interface{}{
			map[string]interface{}{"__typename": "User", "id": "1", "name": "foo"},
			map[string]interface{}{"__typename": "Human", "name": "Han"},
		},
		"count":   float64(3),
		"ratio":   int64(2),
		"episode": "EMPIRE",
	}

	tests := []struct {
		name      string
		query     string
		variables map[string]interface{}
		want      map[string]interface{}
		errors    []string
	}{
		{
			name:  "fields keep selection order and aliases",
			query: `{ ratio c: count episode }`,
			want: map[string]interface{}{
				"ratio":   float64(2),
				"c":       float64(3),
				"episode": "EMPIRE",
			},
		},
		{
			name: "abstract types",
			query: heredoc.Doc(`
				{
					hero { __typename name ... on Human { height } }
					heroes { name ...droid }
					search { ... on User { id } ... on Human { name } }
				}
				fragment droid on Droid { primaryFunction }
			`),
			want: map[string]interface{}{
				"hero": map[string]interface{}{"__typename": "Human", "name": "Luke", "height": 1.72},
				"heroes": []interface{}{
					map[string]interface{}{"name": "Luke"},
					map[string]interface{}{"name": "R2-D2", "primaryFunction": "Astromech"},
				},
				"search": []interface{}{
					map[string]interface{}{"id": "1"},
					map[string]interface{}{"name": "Han"},
				},
			},
		},
		{
			name:      "skip and include",
			query:     `query ($skip: Boolean!) { count @skip(if: $skip) ratio @include(if: $skip) }`,
			variables: map[string]interface{}{"skip": true},
			want: map[string]interface{}{
				"ratio": float64(2),
			},
		},
		{
			name: "skip and include on fragments",
			query: heredoc.Doc(`
				query ($skip: Boolean!) {
					... @skip(if: $skip) { count }
					...ratio @include(if: $skip)
					...episode @skip(if: true)
				}
				fragment ratio on Query { ratio }
				fragment episode on Query { episode }
			`),
			variables: map[string]interface{}{"skip": true},
			want: map[string]interface{}{
				"ratio": float64(2),
			},
		},
		{
			name:  "nullable list item",
			query: `{ users { id name } }`,
			want: map[string]interface{}{
				"users": []interface{}{
					map[string]interface{}{"id": "1", "name": "foo"},
					nil,
				},
			},
		},
		{
			name:  "non-null error propagates to the response root",
			query: `{ count requiredUser { id } }`,
			want:  nil,
			errors: []string{
				"requiredUser: cannot return null for non-nullable field Query.requiredUser",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, errs := execute(t, schema, &ExecutionArgs{
				RootValue:      rootValue,
				VariableValues: tt.variables,
			}, tt.query)

			if diff := cmp.Diff(tt.want, data); diff != "" {
				t.Errorf("data mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.errors, errs); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecute_fieldResolver(t *testing.T) {
	schema := loadSchema(t)

	fieldResolver := func(ctx context.Context, source interface{}, args map[string]interface{}, info *ResolveInfo) (interface{}, error) {
		switch info.ParentType.Name + "." + info.FieldDefinition.Name {
		case "Query.user":
			return map[string]interface{}{"id": args["id"], "name": "user" + args["id"].(string)}, nil
		case "User.friends":
			return []interface{}{
				map[string]interface{}{"id": "2", "name": "bar"},
				map[string]interface{}{"id": "3"},
			}, nil
		case "Query.count":
			return nil, errors.New("count is not available")
		}
		return DefaultFieldResolver(ctx, source, args, info)
	}

	data, errs := execute(t, schema, &ExecutionArgs{
		FieldResolver: fieldResolver,
	}, `{ count user(id: "1") { id name } other: user(id: "2") { friends { name } } }`)

	want := map[string]interface{}{
		"count": nil,
		"user":  map[string]interface{}{"id": "1", "name": "user1"},
		"other": map[string]interface{}{"friends": nil},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}

	wantErrs := []string{
		"count: count is not available",
		"other.friends[1].name: cannot return null for non-nullable field User.name",
	}
	if diff := cmp.Diff(wantErrs, errs); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_mutationIsSerial(t *testing.T) {
	schema := loadSchema(t)

	var counter int64
	var running int32
	fieldResolver := func(ctx context.Context, source interface{}, args map[string]interface{}, info *ResolveInfo) (interface{}, error) {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			t.Error("mutation fields run concurrently")
		}
		defer atomic.StoreInt32(&running, 0)
		return atomic.AddInt64(&counter, 1), nil
	}

	data, errs := execute(t, schema, &ExecutionArgs{
		FieldResolver: fieldResolver,
	}, `mutation { a: increment b: increment c: increment }`)
	if len(errs) != 0 {
		t.Fatal(errs)
	}

	want := map[string]interface{}{"a": float64(1), "b": float64(2), "c": float64(3)}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_leafErrors(t *testing.T) {
	schema := loadSchema(t)

	data, errs := execute(t, schema, &ExecutionArgs{
		RootValue: map[string]interface{}{
			"count":   1.5,
			"episode": "JEDI",
		},
	}, `{ count episode }`)

	want := map[string]interface{}{"count": nil, "episode": nil}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if len(errs) != 2 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestExecute_introspection(t *testing.T) {
	schema := loadSchema(t)

	data, errs := execute(t, schema, &ExecutionArgs{}, heredoc.Doc(`
		{
			__schema { queryType { name } mutationType { name } subscriptionType { name } }
			__type(name: "User") {
				kind
				name
				fields { name type { kind name ofType { kind name } } }
			}
			unknown: __type(name: "Unknown") { name }
		}
	`))
	if len(errs) != 0 {
		t.Fatal(errs)
	}

	want := map[string]interface{}{
		"__schema": map[string]interface{}{
			"queryType":        map[string]interface{}{"name": "Query"},
			"mutationType":     map[string]interface{}{"name": "Mutation"},
			"subscriptionType": nil,
		},
		"__type": map[string]interface{}{
			"kind": "OBJECT",
			"name": "User",
			"fields": []interface{}{
				map[string]interface{}{
					"name": "id",
					"type": map[string]interface{}{"kind": "NON_NULL", "name": nil, "ofType": map[string]interface{}{"kind": "SCALAR", "name": "ID"}},
				},
				map[string]interface{}{
					"name": "name",
					"type": map[string]interface{}{"kind": "NON_NULL", "name": nil, "ofType": map[string]interface{}{"kind": "SCALAR", "name": "String"}},
				},
				map[string]interface{}{
					"name": "friends",
					"type": map[string]interface{}{"kind": "LIST", "name": nil, "ofType": map[string]interface{}{"kind": "NON_NULL", "name": nil}},
				},
			},
		},
		"unknown": nil,
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}
