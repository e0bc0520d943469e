package execute

import (
	"io"

	"github.com/99designs/gqlgen/graphql"
)

var _ graphql.Marshaler = (*object)(nil)

// object is a response object that keeps the order of its keys.
type object struct {
	keys   []string
	values []graphql.Marshaler
}

func newObject(keys []string) *object {
	return &object{
		keys:   keys,
		values: make([]graphql.Marshaler, len(keys)),
	}
}

func (o *object) MarshalGQL(w io.Writer) {
	_, _ = io.WriteString(w, "{")
	for i, key := range o.keys {
		if i != 0 {
			_, _ = io.WriteString(w, ",")
		}
		graphql.MarshalString(key).MarshalGQL(w)
		_, _ = io.WriteString(w, ":")
		if v := o.values[i]; v != nil {
			v.MarshalGQL(w)
		} else {
			graphql.Null.MarshalGQL(w)
		}
	}
	_, _ = io.WriteString(w, "}")
}
