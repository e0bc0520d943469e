package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vvakame/annogql/internal/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ DataSource = (*RemoteDataSource)(nil)

var tracer = otel.Tracer("github.com/vvakame/annogql/internal/engine")

// RemoteDataSource sends oc.RawQuery to a GraphQL endpoint over HTTP.
type RemoteDataSource struct {
	URL string

	Client *http.Client
}

func (ds *RemoteDataSource) Process(ctx context.Context, oc *graphql.OperationContext) *graphql.Response {
	ctx, span := tracer.Start(ctx, "engine.RemoteDataSource", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("graphql.endpoint", ds.URL),
		attribute.String("graphql.operation.name", oc.OperationName),
	)

	hc := ds.Client
	if hc == nil {
		hc = http.DefaultClient
	}

	ctx = graphql.WithResponseContext(
		ctx,
		graphql.DefaultErrorPresenter,
		graphql.DefaultRecover,
	)

	fail := func(err error) *graphql.Response {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		graphql.AddError(ctx, err)
		return &graphql.Response{
			Errors: graphql.GetErrors(ctx),
		}
	}

	type RawParams struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName,omitempty"`
		Variables     map[string]interface{} `json:"variables,omitempty"`
	}

	params := &RawParams{
		Query:         oc.RawQuery,
		OperationName: oc.OperationName,
		Variables:     oc.Variables,
	}
	b, err := json.Marshal(params)
	if err != nil {
		return fail(err)
	}

	log.FromContext(ctx).V(1).Info("send upstream request", "url", ds.URL, "query", oc.RawQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ds.URL, bytes.NewBuffer(b))
	if err != nil {
		return fail(err)
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fail(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	b, err = io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		graphql.AddErrorf(ctx, "unexpected response code: %d", resp.StatusCode)
		span.SetStatus(codes.Error, "unexpected response code")
		return &graphql.Response{
			Errors: graphql.GetErrors(ctx),
		}
	}

	gqlResp := &graphql.Response{}
	err = json.Unmarshal(b, gqlResp)
	if err != nil {
		return fail(err)
	}

	return gqlResp
}
