package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vvakame/annogql/internal/utils"
)

// NOTE: this is a port of graphql-js execute over gqlparser's *ast.Schema.
// resolvers are plain functions, there is no generated code.

type ExecutionContext struct {
	Schema         *ast.Schema
	Fragments      ast.FragmentDefinitionList
	RootValue      interface{}
	Operation      *ast.OperationDefinition
	VariableValues map[string]interface{}
	FieldResolver  FieldResolver
	TypeResolver   TypeResolver

	DisableIntrospection bool

	mu     sync.Mutex
	Errors gqlerror.List
}

type ExecutionArgs struct {
	Schema         *ast.Schema
	Document       *ast.QueryDocument
	RootValue      interface{}            // optional
	VariableValues map[string]interface{} // optional
	OperationName  string                 // optional
	FieldResolver  FieldResolver          // optional
	TypeResolver   TypeResolver           // optional

	DisableIntrospection bool
}

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	ParentType      *ast.Definition
	FieldDefinition *ast.FieldDefinition
	Field           *ast.Field
	Path            ast.Path
}

var _ FieldResolver = DefaultFieldResolver

type FieldResolver func(ctx context.Context, source interface{}, args map[string]interface{}, info *ResolveInfo) (interface{}, error)

var _ TypeResolver = DefaultTypeResolver

type TypeResolver func(ctx context.Context, value interface{}, schema *ast.Schema, abstractType *ast.Definition) string

// LazyValue is called by DefaultFieldResolver with the field arguments when it is found in a source object.
type LazyValue func(args map[string]interface{}) interface{}

// errNullPropagated means the error is already recorded and the parent must become null.
var errNullPropagated = errors.New("null propagated")

// Implements the "Executing requests" section of the GraphQL specification.
//
// If errors are encountered while executing a GraphQL field, only that
// field and its descendants will be omitted, and sibling fields will still
// be executed.
func Execute(ctx context.Context, args *ExecutionArgs) *graphql.Response {
	if args.Document == nil {
		return &graphql.Response{Errors: gqlerror.List{gqlerror.Errorf("must provide document")}}
	}

	// If a valid execution context cannot be created due to incorrect arguments,
	// a "Response" with only errors is returned.
	exeContext, gErrs := buildExecutionContext(args)
	if len(gErrs) != 0 {
		return &graphql.Response{
			Errors: gErrs,
		}
	}

	data, gErr := executeOperation(ctx, exeContext, exeContext.Operation, exeContext.RootValue)
	if gErr != nil {
		return &graphql.Response{
			Errors: gqlerror.List{gErr},
		}
	}

	return buildResponse(exeContext, data)
}

func buildResponse(exeContext *ExecutionContext, data graphql.Marshaler) *graphql.Response {
	var buf bytes.Buffer
	data.MarshalGQL(&buf)

	return &graphql.Response{
		Errors: exeContext.Errors,
		Data:   buf.Bytes(),
	}
}

func buildExecutionContext(args *ExecutionArgs) (*ExecutionContext, gqlerror.List) {
	operation := args.Document.Operations.ForName(args.OperationName)
	if operation == nil {
		if args.OperationName != "" {
			return nil, gqlerror.List{gqlerror.Errorf(`unknown operation named "%s"`, args.OperationName)}
		}
		return nil, gqlerror.List{gqlerror.Errorf("must provide an operation")}
	}

	coercedVariableValues, err := validator.VariableValues(args.Schema, operation, args.VariableValues)
	if err != nil {
		return nil, toErrorList(err)
	}

	fieldResolver := args.FieldResolver
	if fieldResolver == nil {
		fieldResolver = DefaultFieldResolver
	}
	typeResolver := args.TypeResolver
	if typeResolver == nil {
		typeResolver = DefaultTypeResolver
	}

	return &ExecutionContext{
		Schema:         args.Schema,
		Fragments:      args.Document.Fragments,
		RootValue:      args.RootValue,
		Operation:      operation,
		VariableValues: coercedVariableValues,
		FieldResolver:  fieldResolver,
		TypeResolver:   typeResolver,

		DisableIntrospection: args.DisableIntrospection,
	}, nil
}

func toErrorList(err error) gqlerror.List {
	var gErrs gqlerror.List
	if errors.As(err, &gErrs) {
		return gErrs
	}
	var gErr *gqlerror.Error
	if errors.As(err, &gErr) {
		return gqlerror.List{gErr}
	}
	return gqlerror.List{gqlerror.WrapPath(nil, err)}
}

func (exeContext *ExecutionContext) addError(err error) {
	if errors.Is(err, errNullPropagated) {
		return
	}

	var gErr *gqlerror.Error
	if !errors.As(err, &gErr) {
		gErr = gqlerror.WrapPath(nil, err)
	}

	exeContext.mu.Lock()
	defer exeContext.mu.Unlock()
	exeContext.Errors = append(exeContext.Errors, gErr)
}

// Implements the "Executing operations" section of the spec.
func executeOperation(ctx context.Context, exeContext *ExecutionContext, operation *ast.OperationDefinition, rootValue interface{}) (graphql.Marshaler, *gqlerror.Error) {
	var typ *ast.Definition
	switch operation.Operation {
	case ast.Query:
		typ = exeContext.Schema.Query
		if typ == nil {
			return nil, gqlerror.ErrorPosf(operation.Position, "schema does not define the required query root type")
		}
	case ast.Mutation:
		typ = exeContext.Schema.Mutation
		if typ == nil {
			return nil, gqlerror.ErrorPosf(operation.Position, "schema is not configured for mutations")
		}
	case ast.Subscription:
		return nil, gqlerror.ErrorPosf(operation.Position, "subscriptions are not supported")
	default:
		return nil, gqlerror.ErrorPosf(operation.Position, "can only have query and mutation operations")
	}

	fields := exeContext.collectFields(typ, operation.SelectionSet)

	// Errors from sub-fields of a NonNull type may propagate to the top level,
	// at which point we still log the error and null the parent field, which
	// in this case is the entire response.
	var (
		result graphql.Marshaler
		err    error
	)
	if operation.Operation == ast.Mutation {
		result, err = executeFieldsSerially(ctx, exeContext, typ, rootValue, nil, fields)
	} else {
		result, err = executeFields(ctx, exeContext, typ, rootValue, nil, fields)
	}
	if err != nil {
		exeContext.addError(err)
		return graphql.Null, nil
	}

	return result, nil
}

// Implements the "Executing selection sets" section of the spec
// for fields that must be executed serially.
func executeFieldsSerially(ctx context.Context, exeContext *ExecutionContext, parentType *ast.Definition, sourceValue interface{}, path ast.Path, fields *Fields) (graphql.Marshaler, error) {
	out := newObject(fields.Names)
	for i, name := range fields.Names {
		data, err := executeField(ctx, exeContext, parentType, sourceValue, fields.get(name), appendPath(path, ast.PathName(name)))
		if err != nil {
			return nil, err
		}
		out.values[i] = data
	}

	return out, nil
}

// Implements the "Executing selection sets" section of the spec
// for fields that may be executed in parallel.
func executeFields(ctx context.Context, exeContext *ExecutionContext, parentType *ast.Definition, sourceValue interface{}, path ast.Path, fields *Fields) (graphql.Marshaler, error) {
	out := newObject(fields.Names)
	errs := make([]error, len(fields.Names))

	var wg sync.WaitGroup
	for i, name := range fields.Names {
		i, name := i, name
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.values[i], errs[i] = executeField(ctx, exeContext, parentType, sourceValue, fields.get(name), appendPath(path, ast.PathName(name)))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Implements the "Executing field" section of the spec
// In particular, this function figures out the value that the field returns by
// calling its resolve function, then calls completeValue to serialize scalars,
// or execute the sub-selection-set for objects.
func executeField(ctx context.Context, exeContext *ExecutionContext, parentType *ast.Definition, source interface{}, fieldNodes []*ast.Field, path ast.Path) (graphql.Marshaler, error) {
	fieldNode := fieldNodes[0]
	if fieldNode.Name == "__typename" {
		return graphql.MarshalString(parentType.Name), nil
	}

	fieldDef := fieldDefinition(exeContext.Schema, parentType, fieldNode.Name)
	if fieldDef == nil {
		exeContext.addError(gqlerror.ErrorPathf(path, `cannot query field "%s" on type "%s"`, fieldNode.Name, parentType.Name))
		return graphql.Null, nil
	}

	info := &ResolveInfo{
		ParentType:      parentType,
		FieldDefinition: fieldDef,
		Field:           fieldNode,
		Path:            path,
	}

	// Build a map of arguments from the field.arguments AST, using the
	// variables scope to fulfill any variable references.
	args := fieldNode.ArgumentMap(exeContext.VariableValues)

	var (
		result interface{}
		err    error
	)
	if parentType == exeContext.Schema.Query && utils.IsIntrospectionName(fieldNode.Name) {
		if exeContext.DisableIntrospection {
			return handleFieldError(exeContext, gqlerror.ErrorPathf(path, "introspection is disabled"), fieldDef.Type)
		}
		result, err = resolveIntrospectionField(exeContext.Schema, fieldNode.Name, args)
	} else {
		result, err = resolveField(ctx, exeContext.FieldResolver, source, args, info)
	}
	if err != nil {
		return handleFieldError(exeContext, gqlerror.WrapPath(path, err), fieldDef.Type)
	}

	completed, err := completeValue(ctx, exeContext, fieldDef.Type, fieldNodes, info, path, result)
	if err != nil {
		return handleFieldError(exeContext, err, fieldDef.Type)
	}

	return completed, nil
}

func resolveField(ctx context.Context, resolveFn FieldResolver, source interface{}, args map[string]interface{}, info *ResolveInfo) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while resolving %s.%s: %v", info.ParentType.Name, info.FieldDefinition.Name, r)
		}
	}()

	return resolveFn(ctx, source, args, info)
}

// handleFieldError records err. A nullable field becomes null and a non-null field nulls its parent.
func handleFieldError(exeContext *ExecutionContext, err error, returnType *ast.Type) (graphql.Marshaler, error) {
	exeContext.addError(err)
	if returnType.NonNull {
		return nil, errNullPropagated
	}
	return graphql.Null, nil
}

func fieldDefinition(schema *ast.Schema, parentType *ast.Definition, name string) *ast.FieldDefinition {
	if fieldDef := parentType.Fields.ForName(name); fieldDef != nil {
		return fieldDef
	}
	if parentType != schema.Query {
		return nil
	}
	switch name {
	case "__schema":
		return &ast.FieldDefinition{Name: name, Type: ast.NonNullNamedType("__Schema", nil)}
	case "__type":
		return &ast.FieldDefinition{
			Name: name,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "name", Type: ast.NonNullNamedType("String", nil)},
			},
			Type: ast.NamedType("__Type", nil),
		}
	default:
		return nil
	}
}

// Implements the instructions for completeValue as defined in the
// "Field entries" section of the spec.
//
// If the field type is Non-Null, then this recursively completes the value
// for the inner type. It returns a field error if that completion returns null,
// as per the "Nullability" section of the spec.
//
// If the field type is a List, then this recursively completes the value
// for the inner type on each item in the list.
//
// If the field type is a Scalar or Enum, ensures the completed value is a legal
// value of the type.
//
// If the field is an abstract type, determine the runtime type of the value
// and then complete based on that type
//
// Otherwise, the field type expects a sub-selection set, and will complete the
// value by executing all sub-selections.
func completeValue(ctx context.Context, exeContext *ExecutionContext, returnType *ast.Type, fieldNodes []*ast.Field, info *ResolveInfo, path ast.Path, result interface{}) (graphql.Marshaler, error) {
	// If field type is NonNull, complete for inner type, and return field error
	// if result is null.
	if returnType.NonNull {
		copied := *returnType
		copied.NonNull = false
		completed, err := completeValue(ctx, exeContext, &copied, fieldNodes, info, path, result)
		if err != nil {
			return nil, err
		}
		if completed == graphql.Null {
			return nil, gqlerror.ErrorPathf(path, "cannot return null for non-nullable field %s.%s", info.ParentType.Name, info.FieldDefinition.Name)
		}
		return completed, nil
	}

	// If result value is null then return null.
	if result == nil {
		return graphql.Null, nil
	}

	// If field type is List, complete each item in the list with the inner type
	if returnType.Elem != nil {
		return completeListValue(ctx, exeContext, returnType, fieldNodes, info, path, result)
	}

	def := exeContext.Schema.Types[returnType.NamedType]
	switch {
	case utils.IsLeafType(def):
		// If field type is a leaf type, Scalar or Enum, serialize to a valid value.
		return completeLeafValue(def, path, result)

	case utils.IsAbstractType(def):
		// If field type is an abstract type, Interface or Union, determine the
		// runtime Object type and complete for that type.
		return completeAbstractValue(ctx, exeContext, def, fieldNodes, info, path, result)

	case utils.IsObjectType(def):
		// If field type is Object, execute and complete all sub-selections.
		return completeObjectValue(ctx, exeContext, def, fieldNodes, path, result)
	}

	return nil, gqlerror.ErrorPathf(path, "cannot complete value of unexpected output type: %s", returnType.String())
}

// Complete a list value by completing each item in the list with the
// inner type
func completeListValue(ctx context.Context, exeContext *ExecutionContext, returnType *ast.Type, fieldNodes []*ast.Field, info *ResolveInfo, path ast.Path, result interface{}) (graphql.Marshaler, error) {
	resultRV := reflect.ValueOf(result)
	if resultRV.Kind() != reflect.Slice && resultRV.Kind() != reflect.Array {
		return nil, gqlerror.ErrorPathf(path, `expected slice, but did not find one for field "%s.%s"`, info.ParentType.Name, info.FieldDefinition.Name)
	}

	itemType := returnType.Elem

	ret := make(graphql.Array, resultRV.Len())
	errs := make([]error, resultRV.Len())

	var wg sync.WaitGroup
	for index := 0; index < resultRV.Len(); index++ {
		index := index
		item := resultRV.Index(index).Interface()

		wg.Add(1)
		go func() {
			defer wg.Done()
			ret[index], errs[index] = completeValue(ctx, exeContext, itemType, fieldNodes, info, appendPath(path, ast.PathIndex(index)), item)
		}()
	}
	wg.Wait()

	var propagated error
	for index, err := range errs {
		if err == nil {
			continue
		}
		if itemType.NonNull && propagated == nil {
			// the caller records it
			propagated = err
			continue
		}
		exeContext.addError(err)
		ret[index] = graphql.Null
	}
	if propagated != nil {
		return nil, propagated
	}

	return ret, nil
}

// Complete a value of an abstract type by determining the runtime object type
// of that value, then complete the value for that type.
func completeAbstractValue(ctx context.Context, exeContext *ExecutionContext, returnType *ast.Definition, fieldNodes []*ast.Field, info *ResolveInfo, path ast.Path, result interface{}) (graphql.Marshaler, error) {
	runtimeTypeName := exeContext.TypeResolver(ctx, result, exeContext.Schema, returnType)

	runtimeType, err := ensureValidRuntimeType(exeContext.Schema, runtimeTypeName, returnType, info, path)
	if err != nil {
		return nil, err
	}

	return completeObjectValue(ctx, exeContext, runtimeType, fieldNodes, path, result)
}

func ensureValidRuntimeType(schema *ast.Schema, runtimeTypeName string, returnType *ast.Definition, info *ResolveInfo, path ast.Path) (*ast.Definition, error) {
	if runtimeTypeName == "" {
		return nil, gqlerror.ErrorPathf(
			path,
			`abstract type "%s" must resolve to an Object type at runtime for field "%s.%s"`,
			returnType.Name,
			info.ParentType.Name,
			info.FieldDefinition.Name,
		)
	}

	runtimeType := schema.Types[runtimeTypeName]
	if runtimeType == nil {
		return nil, gqlerror.ErrorPathf(
			path,
			`abstract type "%s" was resolved to a type "%s" that does not exist inside the schema`,
			returnType.Name,
			runtimeTypeName,
		)
	}

	if runtimeType.Kind != ast.Object {
		return nil, gqlerror.ErrorPathf(
			path,
			`abstract type "%s" was resolved to a non-object type "%s"`,
			returnType.Name,
			runtimeTypeName,
		)
	}

	if !utils.IsTypeDefSubTypeOf(schema, runtimeType, returnType) {
		return nil, gqlerror.ErrorPathf(
			path,
			`runtime Object type "%s" is not a possible type for "%s"`,
			runtimeType.Name,
			returnType.Name,
		)
	}

	return runtimeType, nil
}

// Complete an Object value by executing all sub-selections.
func completeObjectValue(ctx context.Context, exeContext *ExecutionContext, returnType *ast.Definition, fieldNodes []*ast.Field, path ast.Path, result interface{}) (graphql.Marshaler, error) {
	// Collect sub-fields to execute to complete this value.
	selectionSets := make([]ast.SelectionSet, 0, len(fieldNodes))
	for _, fieldNode := range fieldNodes {
		selectionSets = append(selectionSets, fieldNode.SelectionSet)
	}
	subFieldNodes := exeContext.collectFields(returnType, selectionSets...)

	return executeFields(ctx, exeContext, returnType, result, path, subFieldNodes)
}

// If a resolveType function is not given, then a default resolve behavior is
// used which looks for a `__typename` property on the provided value and uses
// it as the name of the resolved type.
func DefaultTypeResolver(ctx context.Context, value interface{}, schema *ast.Schema, abstractType *ast.Definition) string {
	if utils.IsObjectLike(value) {
		value := value.(map[string]interface{})
		typename, ok := value["__typename"].(string)
		if ok {
			return typename
		}
	}

	// NOTE originalでは isTypeOf を呼んでるんだけど、 value instanceof Dog みたいなJS特有の処理なのでここでは実装しない
	// a single possible type is unambiguous though.
	if possibleTypes := schema.GetPossibleTypes(abstractType); len(possibleTypes) == 1 {
		return possibleTypes[0].Name
	}

	return ""
}

// If a resolve function is not given, then a default resolve behavior is used
// which takes the property of the source object of the same name as the field
// and returns it as the result, or if it's a LazyValue, returns the result
// of calling that function while passing along args.
func DefaultFieldResolver(ctx context.Context, source interface{}, args map[string]interface{}, info *ResolveInfo) (interface{}, error) {
	// ensure source is a value for which property access is acceptable.
	if !utils.IsObjectLike(source) {
		return nil, nil
	}

	property := source.(map[string]interface{})[info.Field.Name]
	if f, ok := property.(LazyValue); ok {
		return f(args), nil
	}

	return property, nil
}

func appendPath(path ast.Path, elem ast.PathElement) ast.Path {
	newPath := make(ast.Path, len(path), len(path)+1)
	copy(newPath, path)
	return append(newPath, elem)
}
