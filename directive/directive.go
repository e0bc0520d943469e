// Package directive locates directives attached to type and field declarations of a
// GraphQL schema and converts their literal arguments into Go values.
//
// Two locators are provided. LocateDocument walks a parsed schema document and reports
// standard postfix directives. ExtractText works on raw schema text, removes prefix
// directives placed before `type` declarations or field names and reports them; it is
// re-applied until no further directive can be extracted.
package directive

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// Info is a single directive occurrence with coerced arguments.
type Info struct {
	Tag       string
	Arguments ArgumentList
}

// Argument value is one of string, bool, int64 or float64.
type Argument struct {
	Name  string
	Value interface{}
}

type ArgumentList []*Argument

func (list ArgumentList) ForName(name string) *Argument {
	for _, arg := range list {
		if arg.Name == name {
			return arg
		}
	}
	return nil
}

// Map projects the arguments by name. Later arguments win over earlier ones with the same name.
func (list ArgumentList) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(list))
	for _, arg := range list {
		m[arg.Name] = arg.Value
	}
	return m
}

// Target is the owner of a directive.
// FieldName is empty when the directive is attached to the type declaration itself.
type Target struct {
	TypeName  string
	FieldName string
}

func (t Target) IsField() bool {
	return t.FieldName != ""
}

func (t Target) String() string {
	if t.FieldName == "" {
		return t.TypeName
	}
	return t.TypeName + "." + t.FieldName
}

// Occurrence is a located directive whose arguments are not coerced yet.
type Occurrence struct {
	Directive *ast.Directive
	Target    Target
}

func (occ *Occurrence) Tag() string {
	return occ.Directive.Name
}

// Info coerces the directive arguments.
func (occ *Occurrence) Info() (*Info, error) {
	args, err := CoerceArguments(occ.Directive.Arguments)
	if err != nil {
		return nil, err
	}
	return &Info{
		Tag:       occ.Directive.Name,
		Arguments: args,
	}, nil
}
