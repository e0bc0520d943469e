package metadata

import (
	"context"
	"testing"

	testlogr "github.com/go-logr/logr/testing"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/log"
)

func TestOnAnnotateTypes(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	newAnnotation := func(target directive.Target, description string) annotation.Annotation {
		a, err := Factory(&directive.Info{
			Tag: Tag,
			Arguments: directive.ArgumentList{
				{Name: "description", Value: description},
			},
		}, target)
		if err != nil {
			t.Fatal(err)
		}
		return a
	}

	types := map[string]*ast.Definition{
		"Query": {
			Kind: ast.Object,
			Name: "Query",
			Fields: ast.FieldList{
				{Name: "foo", Type: ast.NamedType("String", nil)},
			},
		},
	}

	list := annotation.List{
		newAnnotation(directive.Target{TypeName: "Query"}, "root"),
		newAnnotation(directive.Target{TypeName: "Query", FieldName: "foo"}, "foo field"),
		newAnnotation(directive.Target{TypeName: "Query", FieldName: "missing"}, "ignored"),
		newAnnotation(directive.Target{TypeName: "Missing"}, "ignored"),
	}

	annotation.AnnotateTypes(ctx, list, types)

	if v := types["Query"].Description; v != "root" {
		t.Errorf("unexpected description: %s", v)
	}
	if v := types["Query"].Fields.ForName("foo").Description; v != "foo field" {
		t.Errorf("unexpected description: %s", v)
	}
	if len(types) != 1 {
		t.Errorf("unexpected types: %v", types)
	}
}

func TestOnAnnotateTypes_noDescription(t *testing.T) {
	ctx := context.Background()
	ctx = log.WithLogger(ctx, testlogr.NewTestLogger(t))

	a, err := Factory(&directive.Info{
		Tag: Tag,
		Arguments: directive.ArgumentList{
			{Name: "deprecated", Value: true},
		},
	}, directive.Target{TypeName: "Query", FieldName: "foo"})
	if err != nil {
		t.Fatal(err)
	}

	types := map[string]*ast.Definition{
		"Query": {
			Kind:        ast.Object,
			Name:        "Query",
			Description: "from sdl",
			Fields: ast.FieldList{
				{Name: "foo", Description: "foo from sdl", Type: ast.NamedType("String", nil)},
			},
		},
	}

	annotation.AnnotateTypes(ctx, annotation.List{a}, types)

	if v := types["Query"].Description; v != "from sdl" {
		t.Errorf("unexpected description: %s", v)
	}
	if v := types["Query"].Fields.ForName("foo").Description; v != "foo from sdl" {
		t.Errorf("unexpected description: %s", v)
	}
}

func TestFactory_noResolver(t *testing.T) {
	a, err := Factory(&directive.Info{Tag: Tag}, directive.Target{TypeName: "Query", FieldName: "foo"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(annotation.ResolverCreator); ok {
		t.Error("@graphql must not create resolvers")
	}
}
