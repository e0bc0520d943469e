package directive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var ErrUnsupportedLiteralKind = errors.New("unsupported literal kind")

type UnsupportedLiteralKindError struct {
	Kind     ast.ValueKind
	Position *ast.Position
}

func (err *UnsupportedLiteralKindError) Error() string {
	if err.Position != nil && err.Position.Line != 0 {
		return fmt.Sprintf("unsupported literal kind: %s (line %d, column %d)", kindName(err.Kind), err.Position.Line, err.Position.Column)
	}
	return fmt.Sprintf("unsupported literal kind: %s", kindName(err.Kind))
}

func (err *UnsupportedLiteralKindError) Is(target error) bool {
	return target == ErrUnsupportedLiteralKind
}

func kindName(kind ast.ValueKind) string {
	switch kind {
	case ast.Variable:
		return "Variable"
	case ast.IntValue:
		return "Int"
	case ast.FloatValue:
		return "Float"
	case ast.StringValue:
		return "String"
	case ast.BlockValue:
		return "BlockString"
	case ast.BooleanValue:
		return "Boolean"
	case ast.NullValue:
		return "Null"
	case ast.EnumValue:
		return "Enum"
	case ast.ListValue:
		return "List"
	case ast.ObjectValue:
		return "Object"
	default:
		return fmt.Sprintf("Kind(%d)", int(kind))
	}
}

// Coerce converts a string, boolean, int or float literal into string, bool, int64 or float64.
func Coerce(value *ast.Value) (interface{}, error) {
	if value == nil {
		return nil, &UnsupportedLiteralKindError{Kind: ast.NullValue}
	}

	switch value.Kind {
	case ast.StringValue, ast.BlockValue:
		return value.Raw, nil
	case ast.BooleanValue:
		b, err := strconv.ParseBool(value.Raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean literal %q: %w", value.Raw, err)
		}
		return b, nil
	case ast.IntValue:
		i, err := strconv.ParseInt(value.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int literal %q: %w", value.Raw, err)
		}
		return i, nil
	case ast.FloatValue:
		f, err := strconv.ParseFloat(value.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q: %w", value.Raw, err)
		}
		return f, nil
	default:
		return nil, &UnsupportedLiteralKindError{Kind: value.Kind, Position: value.Position}
	}
}

func CoerceArguments(args ast.ArgumentList) (ArgumentList, error) {
	result := make(ArgumentList, 0, len(args))
	for _, arg := range args {
		v, err := Coerce(arg.Value)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		result = append(result, &Argument{
			Name:  arg.Name,
			Value: v,
		})
	}
	return result, nil
}

// ParseRawArguments parses GraphQL argument syntax such as `limit: 10, order: "asc"`.
func ParseRawArguments(source string) (ast.ArgumentList, error) {
	if strings.TrimSpace(source) == "" {
		return nil, nil
	}

	queryDocument, gErr := parser.ParseQuery(&ast.Source{
		Input: "{ f(" + source + ") }",
	})
	if gErr != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w", source, gErr)
	}

	if len(queryDocument.Operations) != 1 || len(queryDocument.Operations[0].SelectionSet) != 1 {
		return nil, fmt.Errorf("invalid arguments %q", source)
	}
	field, ok := queryDocument.Operations[0].SelectionSet[0].(*ast.Field)
	if !ok || len(field.SelectionSet) != 0 {
		return nil, fmt.Errorf("invalid arguments %q", source)
	}

	return field.Arguments, nil
}

// ParseArguments parses GraphQL argument syntax and coerces every value.
func ParseArguments(source string) (ArgumentList, error) {
	args, err := ParseRawArguments(source)
	if err != nil {
		return nil, err
	}
	return CoerceArguments(args)
}
