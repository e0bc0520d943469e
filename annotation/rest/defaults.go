package rest

import (
	"context"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/internal/log"
)

const requestDefaultsKey = "rest.requestDefaults"

// RequestDefaults is accumulated from type level @rest annotations while resolvers are built.
// It is read only once the build is finished.
type RequestDefaults struct {
	BaseURL string
	Header  http.Header
}

// RequestDefaultsFrom returns the defaults shared by every @rest annotation of one build.
func RequestDefaultsFrom(bctx *annotation.BuildContext) *RequestDefaults {
	return bctx.GetOrCreate(requestDefaultsKey, func() interface{} {
		return &RequestDefaults{
			Header: make(http.Header),
		}
	}).(*RequestDefaults)
}

var envPlaceholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// resolveEnvPlaceholders replaces `{{NAME}}` with the value of the environment variable NAME.
func resolveEnvPlaceholders(ctx context.Context, value string) string {
	logger := log.FromContext(ctx)

	return envPlaceholderPattern.ReplaceAllStringFunc(value, func(m string) string {
		name := strings.TrimSpace(envPlaceholderPattern.FindStringSubmatch(m)[1])
		v, ok := os.LookupEnv(name)
		if !ok {
			logger.Info("environment variable is not set", "name", name)
		}
		return v
	})
}
