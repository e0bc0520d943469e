package rest

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Loader de-duplicates REST calls within one GraphQL request.
// Calls in flight are shared and completed results are memoized. Failures are not cached.
type Loader struct {
	group singleflight.Group

	mu    sync.Mutex
	cache map[string]interface{}
}

func NewLoader() *Loader {
	return &Loader{
		cache: make(map[string]interface{}),
	}
}

type loaderKey struct{}

// WithLoader returns a context carrying a new Loader.
func WithLoader(ctx context.Context) context.Context {
	return context.WithValue(ctx, loaderKey{}, NewLoader())
}

func LoaderFromContext(ctx context.Context) *Loader {
	loader, _ := ctx.Value(loaderKey{}).(*Loader)
	return loader
}

func (l *Loader) Load(ctx context.Context, key *RequestKey, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	k := key.Serialize()

	l.mu.Lock()
	v, ok := l.cache[k]
	l.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err, _ := l.group.Do(k, func() (interface{}, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.cache[k] = v
		l.mu.Unlock()

		return v, nil
	})

	return v, err
}
