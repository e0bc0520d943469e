package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
)

var (
	ErrUnknownType             = errors.New("unknown type")
	ErrMissingTargetFieldName  = errors.New("targetFieldName is required")
	ErrDuplicateFieldSelection = errors.New("field is selected more than once")
	ErrDuplicateArgument       = errors.New("argument is given more than once")
)

type rule struct {
	fieldName        string
	targetFieldName  string
	defaultArguments directive.ArgumentList
}

// Rewriter converts client queries against the annotated schema into queries for the
// upstream endpoint.
type Rewriter struct {
	rules []*rule
}

// NewRewriter collects the rewrite rules of @map annotations placed on fields of the query root.
func NewRewriter(list annotation.List, schema *ast.Schema) (*Rewriter, error) {
	rw := &Rewriter{}
	for _, a := range list {
		m, ok := a.(*Annotation)
		if !ok {
			continue
		}

		def := schema.Types[m.TypeName()]
		if def == nil {
			return nil, fmt.Errorf("@%s on %s: %w: %s", Tag, m.Target(), ErrUnknownType, m.TypeName())
		}
		if schema.Query == nil || schema.Query.Name != def.Name || m.FieldName() == "" {
			continue
		}
		if m.Arguments.TargetFieldName == "" {
			return nil, fmt.Errorf("@%s on %s: %w", Tag, m.Target(), ErrMissingTargetFieldName)
		}

		rw.rules = append(rw.rules, &rule{
			fieldName:        m.FieldName(),
			targetFieldName:  m.Arguments.TargetFieldName,
			defaultArguments: m.DefaultArguments,
		})
	}

	return rw, nil
}

func (rw *Rewriter) Rewrite(query string) (string, error) {
	doc, gErr := parser.ParseQuery(&ast.Source{
		Name:  "query.graphql",
		Input: query,
	})
	if gErr != nil {
		return "", gErr
	}

	if err := rw.RewriteDocument(doc); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)

	return buf.String(), nil
}

// RewriteDocument rewrites the top level selections of every query operation in place.
func (rw *Rewriter) RewriteDocument(doc *ast.QueryDocument) error {
	for _, op := range doc.Operations {
		if op.Operation != ast.Query {
			continue
		}
		for _, r := range rw.rules {
			if err := r.apply(op); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *rule) apply(op *ast.OperationDefinition) error {
	var target *ast.Field
	for _, selection := range op.SelectionSet {
		field, ok := selection.(*ast.Field)
		if !ok || field.Name != r.fieldName {
			continue
		}
		if target != nil {
			return fmt.Errorf("%w: %s in operation %q", ErrDuplicateFieldSelection, r.fieldName, op.Name)
		}
		target = field
	}
	if target == nil {
		return nil
	}

	// gqlparser fills Alias with Name when the client gave none
	if target.Alias == "" {
		target.Alias = target.Name
	}
	target.Name = r.targetFieldName

	for _, defaultArg := range r.defaultArguments {
		count := 0
		for _, arg := range target.Arguments {
			if arg.Name == defaultArg.Name {
				count++
			}
		}
		switch {
		case count > 1:
			return fmt.Errorf("%w: %s on %s", ErrDuplicateArgument, defaultArg.Name, r.fieldName)
		case count == 1:
			continue
		}

		target.Arguments = append(target.Arguments, &ast.Argument{
			Name:  defaultArg.Name,
			Value: valueToAST(defaultArg.Value),
		})
	}

	return nil
}

func valueToAST(v interface{}) *ast.Value {
	switch v := v.(type) {
	case string:
		return &ast.Value{Kind: ast.StringValue, Raw: v}
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(v)}
	case int64:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(v, 10)}
	case float64:
		return &ast.Value{Kind: ast.FloatValue, Raw: strconv.FormatFloat(v, 'g', -1, 64)}
	default:
		return &ast.Value{Kind: ast.NullValue, Raw: "null"}
	}
}
