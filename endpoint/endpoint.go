// Package endpoint assembles an annotated schema into a graphql.ExecutableSchema.
//
// The schema text is parsed for annotations, resolvers are built from them, the executable
// schema is compiled and annotated. When a @map annotation declares an endpointUrl, client
// operations are rewritten and proxied to that upstream GraphQL endpoint instead.
package endpoint

import (
	"context"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/annotation/mapping"
	"github.com/vvakame/annogql/annotation/metadata"
	"github.com/vvakame/annogql/annotation/rest"
	"github.com/vvakame/annogql/executable"
	"github.com/vvakame/annogql/internal/engine"
	"github.com/vvakame/annogql/internal/log"
)

var _ graphql.ExecutableSchema = (*Endpoint)(nil)

type Config struct {
	SchemaText string
	Mode       annotation.Mode
	// nil means NewRegistry(Client)
	Registry *annotation.Registry
	// nil means executable.DefaultValidationOptions
	Validation *executable.ValidationOptions
	// used by @rest resolvers, nil means rest.NewHTTPClient
	Client rest.Client
	// used for the upstream endpoint of @map, nil means http.DefaultClient
	UpstreamClient *http.Client
}

// NewRegistry returns a registry knowing @rest, @map and @graphql.
func NewRegistry(client rest.Client) *annotation.Registry {
	reg := annotation.NewRegistry()
	reg.Register(rest.Tag, rest.NewFactory(client))
	reg.Register(mapping.Tag, mapping.Factory)
	reg.Register(metadata.Tag, metadata.Factory)
	return reg
}

type Endpoint struct {
	schemaText  string
	annotations annotation.List
	schema      *executable.Schema

	local    engine.DataSource
	upstream engine.DataSource
	rewriter *mapping.Rewriter
}

func New(ctx context.Context, cfg *Config) (*Endpoint, error) {
	ctx, logger := log.WithName(ctx, "endpoint")

	reg := cfg.Registry
	if reg == nil {
		client := cfg.Client
		if client == nil {
			client = rest.NewHTTPClient()
		}
		reg = NewRegistry(client)
	}

	result, err := annotation.NewParser(reg, cfg.Mode).Parse(ctx, cfg.SchemaText)
	if err != nil {
		return nil, err
	}

	resolvers, err := annotation.BuildResolvers(ctx, result.Annotations)
	if err != nil {
		return nil, err
	}

	schemaCfg := &executable.Config{
		TypeDefs:   result.SchemaText,
		Resolvers:  resolvers,
		Validation: cfg.Validation,
	}
	// in text mode a tag left in the text was not extracted, the engine reports it
	if cfg.Mode == annotation.ModeAST {
		schemaCfg.LenientDirectives = reg.Tags()
	}
	schema, err := executable.NewSchema(ctx, schemaCfg)
	if err != nil {
		return nil, err
	}

	annotation.AnnotateTypes(ctx, result.Annotations, schema.Types())

	e := &Endpoint{
		schemaText:  result.SchemaText,
		annotations: result.Annotations,
		schema:      schema,
	}
	e.local = &engine.LocalDataSource{
		ExecutableSchema: e,
	}

	endpointURL, err := mapping.EndpointURL(result.Annotations)
	if err != nil {
		return nil, err
	}
	if endpointURL != "" {
		rewriter, err := mapping.NewRewriter(result.Annotations, schema.Schema())
		if err != nil {
			return nil, err
		}
		e.rewriter = rewriter
		e.upstream = &engine.RemoteDataSource{
			URL:    endpointURL,
			Client: cfg.UpstreamClient,
		}
		logger.Info("operations are proxied", "upstream", endpointURL)
	}

	logger.V(1).Info("endpoint is ready", "annotations", len(result.Annotations))

	return e, nil
}

// SchemaText is the schema text given to the GraphQL engine.
func (e *Endpoint) SchemaText() string {
	return e.schemaText
}

func (e *Endpoint) Annotations() annotation.List {
	return e.annotations
}

func (e *Endpoint) Schema() *ast.Schema {
	return e.schema.Schema()
}

func (e *Endpoint) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return e.schema.Complexity(typeName, fieldName, childComplexity, args)
}

// Exec runs the operation with a REST loader scoped to this request.
func (e *Endpoint) Exec(ctx context.Context) graphql.ResponseHandler {
	ctx = rest.WithLoader(ctx)
	oc := graphql.GetOperationContext(ctx)

	if e.upstream == nil || isIntrospectionOperation(oc.Doc, oc.Operation) {
		return e.schema.Exec(ctx)
	}

	query, err := e.rewriter.Rewrite(oc.RawQuery)
	if err != nil {
		// the handler appends the errors of ctx to the response
		graphql.AddError(ctx, err)
		return graphql.OneShot(&graphql.Response{})
	}

	log.FromContext(ctx).V(1).Info("rewrite operation", "operationName", oc.OperationName, "query", query)

	resp := e.upstream.Process(ctx, &graphql.OperationContext{
		RawQuery:      query,
		OperationName: oc.OperationName,
		Variables:     oc.Variables,
	})

	return graphql.OneShot(resp)
}

// Process validates and runs a prepared operation outside of a gqlgen handler.
func (e *Endpoint) Process(ctx context.Context, oc *graphql.OperationContext) *graphql.Response {
	return e.local.Process(ctx, oc)
}

// isIntrospectionOperation reports whether every root field of op is an introspection field.
func isIntrospectionOperation(doc *ast.QueryDocument, op *ast.OperationDefinition) bool {
	if op == nil || op.Operation != ast.Query {
		return false
	}

	visited := make(map[string]struct{})
	var onlyIntrospection func(selectionSet ast.SelectionSet) bool
	onlyIntrospection = func(selectionSet ast.SelectionSet) bool {
		for _, selection := range selectionSet {
			switch selection := selection.(type) {
			case *ast.Field:
				switch selection.Name {
				case "__schema", "__type", "__typename":
				default:
					return false
				}
			case *ast.InlineFragment:
				if !onlyIntrospection(selection.SelectionSet) {
					return false
				}
			case *ast.FragmentSpread:
				if _, ok := visited[selection.Name]; ok {
					continue
				}
				visited[selection.Name] = struct{}{}
				fragment := doc.Fragments.ForName(selection.Name)
				if fragment == nil || !onlyIntrospection(fragment.SelectionSet) {
					return false
				}
			}
		}
		return true
	}

	return onlyIntrospection(op.SelectionSet)
}
