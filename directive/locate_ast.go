package directive

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// LocateDocument reports every directive attached to a type definition or to a field of an
// object, interface or input type, in document order. For each definition the type level
// directives come before the field level ones.
// Built-in definitions and type extensions are not visited.
func LocateDocument(doc *ast.SchemaDocument) []*Occurrence {
	var occs []*Occurrence
	for _, def := range doc.Definitions {
		if isBuiltIn(def) {
			continue
		}

		for _, d := range def.Directives {
			occs = append(occs, &Occurrence{
				Directive: d,
				Target:    Target{TypeName: def.Name},
			})
		}

		switch def.Kind {
		case ast.Object, ast.Interface, ast.InputObject:
		default:
			continue
		}

		for _, field := range def.Fields {
			for _, d := range field.Directives {
				occs = append(occs, &Occurrence{
					Directive: d,
					Target: Target{
						TypeName:  def.Name,
						FieldName: field.Name,
					},
				})
			}
		}
	}

	return occs
}

// StripDocument removes the accepted directives from type and field definitions in place.
func StripDocument(doc *ast.SchemaDocument, accept func(tag string) bool) {
	filterDirectives := func(directives ast.DirectiveList) ast.DirectiveList {
		if len(directives) == 0 {
			return directives
		}
		newDirectives := make(ast.DirectiveList, 0, len(directives))
		for _, d := range directives {
			if !accept(d.Name) {
				newDirectives = append(newDirectives, d)
			}
		}
		return newDirectives
	}

	for _, def := range doc.Definitions {
		if isBuiltIn(def) {
			continue
		}
		def.Directives = filterDirectives(def.Directives)
		for _, fieldDef := range def.Fields {
			fieldDef.Directives = filterDirectives(fieldDef.Directives)
		}
	}
}

func isBuiltIn(def *ast.Definition) bool {
	if def.BuiltIn {
		return true
	}
	return def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn
}
