package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/vvakame/annogql/annotation/rest")

// Request is one REST call. Method is lower case.
// Query is used for GET requests and Body for the others.
type Request struct {
	Method  string
	URL     string
	BaseURL string
	Header  http.Header
	Query   map[string]interface{}
	Body    map[string]interface{}
}

type Response struct {
	StatusCode int
	Body       interface{}
}

type Client interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

var _ Client = (*HTTPClient)(nil)

type StatusError struct {
	StatusCode int
	Body       []byte
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("unexpected response code: %d", err.StatusCode)
}

// HTTPClient sends JSON requests and decodes JSON responses.
type HTTPClient struct {
	HTTPClient *http.Client
}

// NewHTTPClient returns a client keeping cookies between requests.
func NewHTTPClient() *HTTPClient {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}

	return &HTTPClient{
		HTTPClient: &http.Client{
			Jar: jar,
		},
	}
}

func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, "rest.Do", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	u, err := ResolveURL(req.BaseURL, req.URL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(req.Query) != 0 {
		q := u.Query()
		names := make([]string, 0, len(req.Query))
		for name := range req.Query {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, v := range queryValues(req.Query[name]) {
				q.Add(name, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", u.String()),
	)

	var body io.Reader
	if method != http.MethodGet && req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if resp.StatusCode < 200 || 300 <= resp.StatusCode {
		err := &StatusError{StatusCode: resp.StatusCode, Body: b}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       decodeBody(b),
	}, nil
}

// ResolveURL joins a relative ref to base. Absolute refs are returned as is.
func ResolveURL(base, ref string) (*url.URL, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if base == "" || refURL.IsAbs() {
		return refURL, nil
	}
	if ref == "" {
		return url.Parse(base)
	}

	return url.Parse(strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/"))
}

func queryValues(v interface{}) []string {
	switch v := v.(type) {
	case nil:
		return []string{""}
	case []interface{}:
		values := make([]string, 0, len(v))
		for _, elem := range v {
			values = append(values, queryValues(elem)...)
		}
		return values
	default:
		return []string{fmt.Sprint(v)}
	}
}

// decodeBody returns the decoded JSON, or the raw text when the body is not JSON.
func decodeBody(b []byte) interface{} {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}
