package annotation

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
)

// FieldResolveFn supplies the value of a field. args holds only the arguments present in
// the request, either given explicitly or through a default value.
type FieldResolveFn func(ctx context.Context, source interface{}, args map[string]interface{}) (interface{}, error)

// TypeResolvers is field name => resolver.
type TypeResolvers map[string]FieldResolveFn

// ResolverMap is type name => field name => resolver.
type ResolverMap map[string]TypeResolvers

// Type returns the resolvers of typeName, creating the entry on first use.
func (m ResolverMap) Type(typeName string) TypeResolvers {
	typeResolvers, ok := m[typeName]
	if !ok {
		typeResolvers = make(TypeResolvers)
		m[typeName] = typeResolvers
	}
	return typeResolvers
}

func (m ResolverMap) Lookup(typeName, fieldName string) FieldResolveFn {
	typeResolvers, ok := m[typeName]
	if !ok {
		return nil
	}
	return typeResolvers[fieldName]
}

// BuildContext is shared by every annotation during one resolver map build.
type BuildContext struct {
	values map[string]interface{}
}

func NewBuildContext() *BuildContext {
	return &BuildContext{
		values: make(map[string]interface{}),
	}
}

func (bctx *BuildContext) Get(key string) (interface{}, bool) {
	v, ok := bctx.values[key]
	return v, ok
}

// GetOrCreate returns the value stored under key, storing init() first if there is none.
func (bctx *BuildContext) GetOrCreate(key string, init func() interface{}) interface{} {
	v, ok := bctx.values[key]
	if !ok {
		v = init()
		bctx.values[key] = v
	}
	return v
}

func BuildResolvers(ctx context.Context, annotations List) (ResolverMap, error) {
	return BuildResolversWithContext(ctx, annotations, NewBuildContext())
}

// BuildResolversWithContext folds annotations in order into a new resolver map.
// A later annotation replaces the resolver an earlier one installed on the same field.
func BuildResolversWithContext(ctx context.Context, annotations List, bctx *BuildContext) (ResolverMap, error) {
	resolvers := make(ResolverMap)
	for _, a := range annotations {
		rc, ok := a.(ResolverCreator)
		if !ok {
			continue
		}
		if err := rc.OnCreateResolver(ctx, resolvers, bctx); err != nil {
			return nil, err
		}
	}
	return resolvers, nil
}

// AnnotateTypes runs the type annotation hooks in order against the compiled schema types.
func AnnotateTypes(ctx context.Context, annotations List, types map[string]*ast.Definition) {
	for _, a := range annotations {
		ta, ok := a.(TypeAnnotator)
		if !ok {
			continue
		}
		ta.OnAnnotateTypes(ctx, types)
	}
}
