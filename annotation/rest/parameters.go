package rest

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var ErrMissingURLParameter = errors.New("missing url parameter")

type MissingURLParameterError struct {
	Name string
}

func (err *MissingURLParameterError) Error() string {
	return fmt.Sprintf("replacement value for url parameter: '%s' not found", err.Name)
}

func (err *MissingURLParameterError) Is(target error) bool {
	return target == ErrMissingURLParameter
}

var urlParameterPattern = regexp.MustCompile(`\{(.*?)\}`)

// FilterEmptyParameters picks names from source. Only absent names are dropped;
// nil, "" and 0 values are kept.
func FilterEmptyParameters(source map[string]interface{}, names []string) map[string]interface{} {
	result := make(map[string]interface{}, len(names))
	for _, name := range names {
		if v, ok := source[name]; ok {
			result[name] = v
		}
	}
	return result
}

// ConsumeURLParameters replaces each `{name}` of rawURL with the path escaped parameter value.
// The returned parameters no longer contain the substituted names. parameters is not modified.
func ConsumeURLParameters(rawURL string, parameters map[string]interface{}) (string, map[string]interface{}, error) {
	remaining := make(map[string]interface{}, len(parameters))
	for k, v := range parameters {
		remaining[k] = v
	}

	var (
		buf  strings.Builder
		last int
	)
	for _, m := range urlParameterPattern.FindAllStringSubmatchIndex(rawURL, -1) {
		name := rawURL[m[2]:m[3]]
		v, ok := parameters[name]
		if !ok || v == nil {
			return "", nil, &MissingURLParameterError{Name: name}
		}
		buf.WriteString(rawURL[last:m[0]])
		buf.WriteString(url.PathEscape(fmt.Sprint(v)))
		last = m[1]
		delete(remaining, name)
	}
	buf.WriteString(rawURL[last:])

	return buf.String(), remaining, nil
}

// RequestKey identifies equivalent REST calls.
type RequestKey struct {
	Method      string
	URL         string
	Parameters  map[string]interface{}
	ResultField string
}

// Serialize returns `method:url:name=value:...:resultField` with parameters sorted by name.
func (key *RequestKey) Serialize() string {
	names := make([]string, 0, len(key.Parameters))
	for name := range key.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s=%v", name, key.Parameters[name]))
	}

	return fmt.Sprintf("%s:%s:%s:%s", key.Method, key.URL, strings.Join(pairs, ":"), key.ResultField)
}
