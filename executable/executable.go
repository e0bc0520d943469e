// Package executable builds an executable GraphQL schema from schema text and a resolver map.
package executable

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/execute"
	"github.com/vvakame/annogql/internal/log"
	"github.com/vvakame/annogql/internal/utils"
)

var (
	ErrMissingResolver = errors.New("resolve function missing")
	ErrUnknownResolver = errors.New("resolver defined but not in schema")
)

type MissingResolverError struct {
	TypeName  string
	FieldName string
}

func (err *MissingResolverError) Error() string {
	return fmt.Sprintf(`resolve function missing for "%s.%s"`, err.TypeName, err.FieldName)
}

func (err *MissingResolverError) Is(target error) bool {
	return target == ErrMissingResolver
}

type UnknownResolverError struct {
	TypeName  string
	FieldName string
}

func (err *UnknownResolverError) Error() string {
	if err.FieldName == "" {
		return fmt.Sprintf("%s defined in resolvers, but not in schema", err.TypeName)
	}
	return fmt.Sprintf("%s.%s defined in resolvers, but not in schema", err.TypeName, err.FieldName)
}

func (err *UnknownResolverError) Is(target error) bool {
	return target == ErrUnknownResolver
}

// ValidationOptions selects the fields of object types that must have a resolver.
type ValidationOptions struct {
	RequireResolversForArgs      bool
	RequireResolversForNonScalar bool
	RequireResolversForAllFields bool
}

// DefaultValidationOptions requires resolvers for fields taking arguments.
func DefaultValidationOptions() *ValidationOptions {
	return &ValidationOptions{
		RequireResolversForArgs: true,
	}
}

type Config struct {
	TypeDefs  string
	Resolvers annotation.ResolverMap
	// nil means DefaultValidationOptions
	Validation *ValidationOptions
	// directives removed from type and field definitions before validation
	LenientDirectives []string
}

var _ graphql.ExecutableSchema = (*Schema)(nil)

type Schema struct {
	schema    *ast.Schema
	resolvers annotation.ResolverMap
}

func NewSchema(ctx context.Context, cfg *Config) (*Schema, error) {
	_, logger := log.WithName(ctx, "executable")

	schemaDoc, gErr := parser.ParseSchemas(
		validator.Prelude,
		&ast.Source{
			Name:  "schema.graphqls",
			Input: cfg.TypeDefs,
		},
	)
	if gErr != nil {
		return nil, gErr
	}

	if len(cfg.LenientDirectives) != 0 {
		lenient := make(map[string]struct{}, len(cfg.LenientDirectives))
		for _, name := range cfg.LenientDirectives {
			lenient[name] = struct{}{}
		}
		directive.StripDocument(schemaDoc, func(tag string) bool {
			_, ok := lenient[tag]
			return ok
		})
	}

	schema, gErr := validator.ValidateSchemaDocument(schemaDoc)
	if gErr != nil {
		return nil, gErr
	}

	resolvers := cfg.Resolvers
	if resolvers == nil {
		resolvers = make(annotation.ResolverMap)
	}
	opts := cfg.Validation
	if opts == nil {
		opts = DefaultValidationOptions()
	}

	if err := checkResolvers(schema, resolvers, opts); err != nil {
		return nil, err
	}

	logger.V(1).Info("executable schema is built", "types", len(schema.Types))

	return &Schema{
		schema:    schema,
		resolvers: resolvers,
	}, nil
}

func checkResolvers(schema *ast.Schema, resolvers annotation.ResolverMap, opts *ValidationOptions) error {
	typeNames := make([]string, 0, len(resolvers))
	for typeName := range resolvers {
		typeNames = append(typeNames, typeName)
	}
	sort.Strings(typeNames)

	for _, typeName := range typeNames {
		def := schema.Types[typeName]
		if def == nil {
			return &UnknownResolverError{TypeName: typeName}
		}

		fieldNames := make([]string, 0, len(resolvers[typeName]))
		for fieldName := range resolvers[typeName] {
			fieldNames = append(fieldNames, fieldName)
		}
		sort.Strings(fieldNames)

		for _, fieldName := range fieldNames {
			if def.Fields.ForName(fieldName) == nil {
				return &UnknownResolverError{TypeName: typeName, FieldName: fieldName}
			}
		}
	}

	typeNames = typeNames[:0]
	for typeName := range schema.Types {
		typeNames = append(typeNames, typeName)
	}
	sort.Strings(typeNames)

	for _, typeName := range typeNames {
		def := schema.Types[typeName]
		if def.BuiltIn || def.Kind != ast.Object || utils.IsIntrospectionName(def.Name) {
			continue
		}

		for _, fieldDef := range def.Fields {
			if utils.IsIntrospectionName(fieldDef.Name) {
				continue
			}
			if resolvers.Lookup(def.Name, fieldDef.Name) != nil {
				continue
			}

			switch {
			case opts.RequireResolversForAllFields,
				opts.RequireResolversForArgs && len(fieldDef.Arguments) != 0,
				opts.RequireResolversForNonScalar && !utils.IsLeafType(schema.Types[fieldDef.Type.Name()]):
				return &MissingResolverError{TypeName: def.Name, FieldName: fieldDef.Name}
			}
		}
	}

	return nil
}

func (s *Schema) Schema() *ast.Schema {
	return s.schema
}

// Types is the type map of the compiled schema. Definitions may be modified in place.
func (s *Schema) Types() map[string]*ast.Definition {
	return s.schema.Types
}

func (s *Schema) Resolvers() annotation.ResolverMap {
	return s.resolvers
}

func (s *Schema) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

func (s *Schema) Exec(ctx context.Context) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)

	resp := execute.Execute(ctx, &execute.ExecutionArgs{
		Schema:               s.schema,
		Document:             oc.Doc,
		VariableValues:       oc.Variables,
		OperationName:        oc.OperationName,
		FieldResolver:        s.resolveField,
		DisableIntrospection: oc.DisableIntrospection,
	})

	return graphql.OneShot(resp)
}

func (s *Schema) resolveField(ctx context.Context, source interface{}, args map[string]interface{}, info *execute.ResolveInfo) (interface{}, error) {
	if resolve := s.resolvers.Lookup(info.ParentType.Name, info.FieldDefinition.Name); resolve != nil {
		return resolve(ctx, source, args)
	}
	return execute.DefaultFieldResolver(ctx, source, args, info)
}
