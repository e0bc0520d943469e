// Package rest implements the @rest annotation.
//
// On a type it sets request defaults shared by every REST resolver of the schema:
//
//	@rest(baseUrl: "https://api.example.com", basicAuthorization: "{{API_TOKEN}}")
//	type Query { ... }
//
// On a field it installs a resolver calling a REST endpoint:
//
//	type Query {
//		@rest(url: "/users/{id}", resultField: "user")
//		user(id: ID!): User
//	}
package rest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/log"
)

const Tag = "rest"

var _ annotation.ResolverCreator = (*Annotation)(nil)

type Arguments struct {
	BaseURL            string `mapstructure:"baseUrl"`
	BasicAuthorization string `mapstructure:"basicAuthorization"`
	URL                string `mapstructure:"url"`
	Method             string `mapstructure:"method"`
	// comma separated argument names to forward
	Parameters  string                 `mapstructure:"parameters"`
	ResultField string                 `mapstructure:"resultField"`
	Extra       map[string]interface{} `mapstructure:",remain"`
}

// ParameterNames returns nil when no allow-list is configured.
func (args *Arguments) ParameterNames() []string {
	if strings.TrimSpace(args.Parameters) == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(args.Parameters, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (args *Arguments) method() string {
	if args.Method == "" {
		return "get"
	}
	return strings.ToLower(args.Method)
}

type Annotation struct {
	annotation.Header
	Arguments Arguments

	client Client
}

// NewFactory returns the @rest factory. Resolvers issue their calls through client.
func NewFactory(client Client) annotation.Factory {
	return func(info *directive.Info, target directive.Target) (annotation.Annotation, error) {
		if info.Tag != Tag {
			return nil, nil
		}

		a := &Annotation{
			Header: annotation.NewHeader(Tag, target),
			client: client,
		}
		if err := annotation.DecodeArguments(info, &a.Arguments); err != nil {
			return nil, err
		}

		return a, nil
	}
}

func (a *Annotation) OnCreateResolver(ctx context.Context, resolvers annotation.ResolverMap, bctx *annotation.BuildContext) error {
	typeResolvers := resolvers.Type(a.TypeName())
	defaults := RequestDefaultsFrom(bctx)

	if a.FieldName() == "" {
		a.applyToRequestDefaults(ctx, defaults)
		return nil
	}

	if a.Arguments.URL == "" {
		return fmt.Errorf("@%s on %s: url is required", Tag, a.Target())
	}
	if a.client == nil {
		return fmt.Errorf("@%s on %s: no REST client configured", Tag, a.Target())
	}

	typeResolvers[a.FieldName()] = a.newResolver(defaults)

	return nil
}

func (a *Annotation) applyToRequestDefaults(ctx context.Context, defaults *RequestDefaults) {
	if a.Arguments.BasicAuthorization != "" {
		defaults.Header.Set("Authorization", "Basic "+resolveEnvPlaceholders(ctx, a.Arguments.BasicAuthorization))
	}
	if a.Arguments.BaseURL != "" {
		defaults.BaseURL = a.Arguments.BaseURL
	}
}

func (a *Annotation) newResolver(defaults *RequestDefaults) annotation.FieldResolveFn {
	method := a.Arguments.method()
	allowList := a.Arguments.ParameterNames()
	target := a.Target()

	return func(ctx context.Context, source interface{}, args map[string]interface{}) (interface{}, error) {
		names := allowList
		if names == nil {
			names = make([]string, 0, len(args))
			for name := range args {
				names = append(names, name)
			}
			sort.Strings(names)
		}

		nonEmptyParameters := FilterEmptyParameters(args, names)
		url, parameters, err := ConsumeURLParameters(a.Arguments.URL, nonEmptyParameters)
		if err != nil {
			return nil, err
		}

		key := &RequestKey{
			Method:      method,
			URL:         url,
			Parameters:  parameters,
			ResultField: a.Arguments.ResultField,
		}

		loader := LoaderFromContext(ctx)
		if loader == nil {
			log.FromContext(ctx).V(1).Info("no REST loader in context, request is not de-duplicated", "field", target.String())
			return fetch(ctx, a.client, defaults, key, target)
		}

		return loader.Load(ctx, key, func(ctx context.Context) (interface{}, error) {
			return fetch(ctx, a.client, defaults, key, target)
		})
	}
}

func fetch(ctx context.Context, client Client, defaults *RequestDefaults, key *RequestKey, target directive.Target) (interface{}, error) {
	req := &Request{
		Method:  key.Method,
		URL:     key.URL,
		BaseURL: defaults.BaseURL,
		Header:  defaults.Header.Clone(),
	}
	if key.Method == "get" {
		req.Query = key.Parameters
	} else {
		req.Body = key.Parameters
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if key.ResultField == "" {
		return resp.Body, nil
	}
	obj, ok := resp.Body.(map[string]interface{})
	if !ok {
		log.FromContext(ctx).V(1).Info("response is not an object, resultField is not applied", "field", target.String(), "resultField", key.ResultField)
		return nil, nil
	}
	return obj[key.ResultField], nil
}
