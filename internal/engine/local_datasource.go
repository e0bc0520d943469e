package engine

import (
	"context"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/validator"
)

var _ DataSource = (*LocalDataSource)(nil)

// LocalDataSource executes operations in process.
type LocalDataSource struct {
	ExecutableSchema graphql.ExecutableSchema
}

func (ds *LocalDataSource) Process(ctx context.Context, oc *graphql.OperationContext) *graphql.Response {
	ctx = graphql.WithOperationContext(ctx, oc)
	ctx = graphql.WithResponseContext(ctx, graphql.DefaultErrorPresenter, graphql.DefaultRecover)

	gErrs := validator.Validate(ds.ExecutableSchema.Schema(), oc.Doc)
	if len(gErrs) != 0 {
		return &graphql.Response{Errors: gErrs}
	}

	rh := ds.ExecutableSchema.Exec(ctx)
	resp := rh(ctx)
	gErrs = graphql.GetErrors(ctx)
	if len(gErrs) != 0 {
		resp.Errors = append(resp.Errors, gErrs...)
	}

	return resp
}
