package execute

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/internal/utils"
)

// Fields groups field nodes by response key. Names keeps the keys in selection order.
type Fields struct {
	Names []string
	nodes map[string][]*ast.Field
}

func (fs *Fields) get(key string) []*ast.Field {
	return fs.nodes[key]
}

func (fs *Fields) add(key string, node *ast.Field) {
	if fs.nodes == nil {
		fs.nodes = make(map[string][]*ast.Field)
	}
	if _, ok := fs.nodes[key]; !ok {
		fs.Names = append(fs.Names, key)
	}
	fs.nodes[key] = append(fs.nodes[key], node)
}

// collectFields merges the given selection sets as seen from runtimeType.
// A fragment is expanded at most once across all of them.
func (exeContext *ExecutionContext) collectFields(runtimeType *ast.Definition, selectionSets ...ast.SelectionSet) *Fields {
	c := &fieldCollector{
		exeContext:  exeContext,
		runtimeType: runtimeType,
		fields:      &Fields{},
		visited:     make(map[string]struct{}),
	}
	for _, selectionSet := range selectionSets {
		c.collect(selectionSet)
	}
	return c.fields
}

type fieldCollector struct {
	exeContext  *ExecutionContext
	runtimeType *ast.Definition
	fields      *Fields
	visited     map[string]struct{}
}

func (c *fieldCollector) collect(selectionSet ast.SelectionSet) {
	for _, selection := range selectionSet {
		switch selection := selection.(type) {
		case *ast.Field:
			if !c.included(selection.Directives) {
				continue
			}
			key := selection.Alias
			if key == "" {
				key = selection.Name
			}
			c.fields.add(key, selection)

		case *ast.InlineFragment:
			if !c.included(selection.Directives) || !c.applies(selection.TypeCondition) {
				continue
			}
			c.collect(selection.SelectionSet)

		case *ast.FragmentSpread:
			if _, ok := c.visited[selection.Name]; ok || !c.included(selection.Directives) {
				continue
			}
			c.visited[selection.Name] = struct{}{}

			fragment := c.exeContext.Fragments.ForName(selection.Name)
			if fragment == nil || !c.applies(fragment.TypeCondition) {
				continue
			}
			c.collect(fragment.SelectionSet)
		}
	}
}

// included evaluates @skip and @include. @skip wins when both are given.
func (c *fieldCollector) included(directives ast.DirectiveList) bool {
	variables := c.exeContext.VariableValues

	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := skip.ArgumentMap(variables)["if"].(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := include.ArgumentMap(variables)["if"].(bool); ok && !v {
			return false
		}
	}

	return true
}

// applies reports whether a fragment with typeCondition is selected for the runtime type.
func (c *fieldCollector) applies(typeCondition string) bool {
	if typeCondition == "" {
		return true
	}

	schema := c.exeContext.Schema
	conditionType := schema.Types[typeCondition]
	if conditionType == c.runtimeType {
		return true
	}
	if !utils.IsAbstractType(conditionType) {
		return false
	}
	return utils.IsTypeDefSubTypeOf(schema, c.runtimeType, conditionType)
}
