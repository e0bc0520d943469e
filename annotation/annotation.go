// Package annotation turns directives found in an annotated GraphQL schema into annotation
// values and folds them into a resolver map and into the compiled schema types.
package annotation

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/directive"
)

// Annotation is produced from one recognized directive occurrence.
type Annotation interface {
	Tag() string
	Target() directive.Target
}

// ResolverCreator is implemented by annotations that contribute resolvers.
type ResolverCreator interface {
	OnCreateResolver(ctx context.Context, resolvers ResolverMap, bctx *BuildContext) error
}

// TypeAnnotator is implemented by annotations that modify compiled schema types.
// It must not fail the schema construction.
type TypeAnnotator interface {
	OnAnnotateTypes(ctx context.Context, types map[string]*ast.Definition)
}

// Header carries the fields every annotation has. Kinds embed it.
type Header struct {
	TagName  string
	Location directive.Target
}

func NewHeader(tag string, target directive.Target) Header {
	return Header{
		TagName:  tag,
		Location: target,
	}
}

func (h Header) Tag() string {
	return h.TagName
}

func (h Header) Target() directive.Target {
	return h.Location
}

func (h Header) TypeName() string {
	return h.Location.TypeName
}

func (h Header) FieldName() string {
	return h.Location.FieldName
}

// List keeps annotations in source order.
type List []Annotation

func (list List) ByTag(tag string) List {
	var result List
	for _, a := range list {
		if a.Tag() == tag {
			result = append(result, a)
		}
	}
	return result
}
