package execute

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Complete a Scalar or Enum by serializing to a valid value.
// Values coming from JSON documents are accepted, so float64 integers serialize as Int.
func completeLeafValue(def *ast.Definition, path ast.Path, result interface{}) (graphql.Marshaler, error) {
	if def.Kind == ast.Enum {
		s, ok := result.(string)
		if !ok {
			s = fmt.Sprint(result)
		}
		if def.EnumValues.ForName(s) == nil {
			return nil, gqlerror.ErrorPathf(path, `enum "%s" cannot represent value: %v`, def.Name, result)
		}
		return graphql.MarshalString(s), nil
	}

	switch def.Name {
	case "Int":
		i, ok := toInt64(result)
		if !ok || i < math.MinInt32 || math.MaxInt32 < i {
			return nil, gqlerror.ErrorPathf(path, "Int cannot represent value: %v", result)
		}
		return graphql.MarshalInt64(i), nil

	case "Float":
		f, ok := toFloat64(result)
		if !ok {
			return nil, gqlerror.ErrorPathf(path, "Float cannot represent value: %v", result)
		}
		return graphql.MarshalFloat(f), nil

	case "String", "ID":
		switch result := result.(type) {
		case string:
			return graphql.MarshalString(result), nil
		case bool:
			if def.Name == "ID" {
				break
			}
			return graphql.MarshalString(strconv.FormatBool(result)), nil
		default:
			if i, ok := toInt64(result); ok {
				return graphql.MarshalString(strconv.FormatInt(i, 10)), nil
			}
			if f, ok := toFloat64(result); ok && def.Name == "String" {
				return graphql.MarshalString(strconv.FormatFloat(f, 'f', -1, 64)), nil
			}
		}
		return nil, gqlerror.ErrorPathf(path, "%s cannot represent value: %v", def.Name, result)

	case "Boolean":
		b, ok := result.(bool)
		if !ok {
			return nil, gqlerror.ErrorPathf(path, "Boolean cannot represent value: %v", result)
		}
		return graphql.MarshalBoolean(b), nil

	default:
		// custom scalars are written as they are
		return graphql.MarshalAny(result), nil
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch v := v.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		i, err := v.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, !math.IsInf(v, 0) && !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
