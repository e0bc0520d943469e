// Package gqlfun runs operations against a graphql.ExecutableSchema without an HTTP handler.
package gqlfun

import (
	"context"
	"errors"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

type RawParams struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

func CreateOperationContext(ctx context.Context, schema *ast.Schema, params *RawParams) (*graphql.OperationContext, gqlerror.List) {
	queryDoc, gErr := parser.ParseQuery(&ast.Source{
		Input:   params.Query,
		BuiltIn: false,
	})
	if gErr != nil {
		return nil, gqlerror.List{gqlerror.WrapIfUnwrapped(gErr)}
	}
	gErrs := validator.Validate(schema, queryDoc)
	if len(gErrs) != 0 {
		return nil, gErrs
	}

	op := queryDoc.Operations.ForName(params.OperationName)
	if op == nil {
		if params.OperationName != "" {
			return nil, gqlerror.List{gqlerror.Errorf(`unknown operation named "%s"`, params.OperationName)}
		}
		return nil, gqlerror.List{gqlerror.Errorf("must provide an operation")}
	}

	variables, err := validator.VariableValues(schema, op, params.Variables)
	if err != nil {
		var gErr *gqlerror.Error
		if errors.As(err, &gErr) {
			return nil, gqlerror.List{gErr}
		}
		return nil, gqlerror.List{gqlerror.Errorf("%s", err.Error())}
	}

	oc := &graphql.OperationContext{
		RawQuery:             params.Query,
		Variables:            variables,
		OperationName:        params.OperationName,
		Doc:                  queryDoc,
		Operation:            op,
		DisableIntrospection: false,
		RecoverFunc:          nil,
		ResolverMiddleware: func(ctx context.Context, next graphql.Resolver) (res interface{}, err error) {
			return next(ctx)
		},
		Stats: graphql.Stats{},
	}

	return oc, nil
}

func Execute(ctx context.Context, es graphql.ExecutableSchema, params *RawParams) *graphql.Response {
	oc, gErrs := CreateOperationContext(ctx, es.Schema(), params)
	if len(gErrs) != 0 {
		return &graphql.Response{Errors: gErrs}
	}
	ctx = graphql.WithOperationContext(ctx, oc)
	ctx = graphql.WithResponseContext(ctx, graphql.DefaultErrorPresenter, graphql.DefaultRecover)

	rh := es.Exec(ctx)
	resp := rh(ctx)
	if gErrs := graphql.GetErrors(ctx); len(gErrs) != 0 {
		resp.Errors = append(resp.Errors, gErrs...)
	}
	return resp
}
