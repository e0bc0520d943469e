// Package metadata implements the @graphql annotation, which sets descriptions on the
// compiled schema.
package metadata

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/annotation"
	"github.com/vvakame/annogql/directive"
	"github.com/vvakame/annogql/internal/log"
)

const Tag = "graphql"

var _ annotation.TypeAnnotator = (*Annotation)(nil)

type Arguments struct {
	Description string                 `mapstructure:"description"`
	Extra       map[string]interface{} `mapstructure:",remain"`
}

type Annotation struct {
	annotation.Header
	Arguments Arguments
}

func Factory(info *directive.Info, target directive.Target) (annotation.Annotation, error) {
	if info.Tag != Tag {
		return nil, nil
	}

	a := &Annotation{
		Header: annotation.NewHeader(Tag, target),
	}
	if err := annotation.DecodeArguments(info, &a.Arguments); err != nil {
		return nil, err
	}

	return a, nil
}

// OnAnnotateTypes keeps the SDL description when no description argument is given.
func (a *Annotation) OnAnnotateTypes(ctx context.Context, types map[string]*ast.Definition) {
	logger := log.FromContext(ctx)

	if a.Arguments.Description == "" {
		return
	}

	def := types[a.TypeName()]
	if def == nil {
		logger.Info("type is not found, description is not applied", "target", a.Target().String())
		return
	}

	if a.FieldName() == "" {
		def.Description = a.Arguments.Description
		return
	}

	fieldDef := def.Fields.ForName(a.FieldName())
	if fieldDef == nil {
		logger.Info("field is not found, description is not applied", "target", a.Target().String())
		return
	}
	fieldDef.Description = a.Arguments.Description
}
