// Package mapping implements the @map annotation.
//
// A @map field resolves to an empty object so that the resolvers of its children are
// reached. When the schema is served as a proxy, fields of the query root carrying @map
// are renamed for the upstream endpoint and receive default arguments:
//
//	type Query {
//		@map(targetFieldName: "getFoo", defaultArguments: "limit: 10", endpointUrl: "http://upstream/graphql")
//		foo: Foo
//	}
package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
)

const Tag = "map"

var ErrAmbiguousEndpointURL = errors.New("more than one endpointUrl is declared")

var _ annotation.ResolverCreator = (*Annotation)(nil)

type Arguments struct {
	TargetFieldName string `mapstructure:"targetFieldName"`
	// GraphQL argument syntax, like `limit: 10, order: "asc"`
	DefaultArguments string                 `mapstructure:"defaultArguments"`
	EndpointURL      string                 `mapstructure:"endpointUrl"`
	Extra            map[string]interface{} `mapstructure:",remain"`
}

type Annotation struct {
	annotation.Header
	Arguments        Arguments
	DefaultArguments directive.ArgumentList
}

func Factory(info *directive.Info, target directive.Target) (annotation.Annotation, error) {
	if info.Tag != Tag {
		return nil, nil
	}

	a := &Annotation{
		Header: annotation.NewHeader(Tag, target),
	}
	if err := annotation.DecodeArguments(info, &a.Arguments); err != nil {
		return nil, err
	}

	defaultArguments, err := directive.ParseArguments(a.Arguments.DefaultArguments)
	if err != nil {
		return nil, fmt.Errorf("@%s on %s: defaultArguments: %w", Tag, target, err)
	}
	a.DefaultArguments = defaultArguments

	return a, nil
}

func (a *Annotation) OnCreateResolver(ctx context.Context, resolvers annotation.ResolverMap, bctx *annotation.BuildContext) error {
	if a.FieldName() == "" {
		return nil
	}

	resolvers.Type(a.TypeName())[a.FieldName()] = func(ctx context.Context, source interface{}, args map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{}, nil
	}

	return nil
}

// EndpointURL returns the upstream endpoint declared by @map annotations, or "" when none is.
func EndpointURL(list annotation.List) (string, error) {
	var (
		endpointURL string
		declaredOn  directive.Target
	)
	for _, a := range list {
		m, ok := a.(*Annotation)
		if !ok || m.Arguments.EndpointURL == "" {
			continue
		}
		if endpointURL != "" {
			return "", fmt.Errorf("%w: %s and %s", ErrAmbiguousEndpointURL, declaredOn, m.Target())
		}
		endpointURL = m.Arguments.EndpointURL
		declaredOn = m.Target()
	}

	return endpointURL, nil
}
