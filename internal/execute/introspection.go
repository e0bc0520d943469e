package execute

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vvakame/annogql/internal/utils"
)

// resolveIntrospectionField serves __schema and __type. The values follow the introspection
// types of the prelude and are completed like any other object. Nested values are lazy
// because type references are cyclic.
func resolveIntrospectionField(schema *ast.Schema, fieldName string, args map[string]interface{}) (interface{}, error) {
	in := &introspector{schema: schema}
	switch fieldName {
	case "__schema":
		return in.schemaValue(), nil
	case "__type":
		name, _ := args["name"].(string)
		def := schema.Types[name]
		if def == nil {
			return nil, nil
		}
		return in.typeValue(def), nil
	default:
		return nil, nil
	}
}

type introspector struct {
	schema *ast.Schema
}

func (in *introspector) schemaValue() map[string]interface{} {
	return map[string]interface{}{
		"description": nil,
		"types": LazyValue(func(args map[string]interface{}) interface{} {
			names := make([]string, 0, len(in.schema.Types))
			for name := range in.schema.Types {
				names = append(names, name)
			}
			sort.Strings(names)

			types := make([]interface{}, 0, len(names))
			for _, name := range names {
				types = append(types, in.typeValue(in.schema.Types[name]))
			}
			return types
		}),
		"queryType":        in.optionalTypeValue(in.schema.Query),
		"mutationType":     in.optionalTypeValue(in.schema.Mutation),
		"subscriptionType": in.optionalTypeValue(in.schema.Subscription),
		"directives": LazyValue(func(args map[string]interface{}) interface{} {
			names := make([]string, 0, len(in.schema.Directives))
			for name := range in.schema.Directives {
				names = append(names, name)
			}
			sort.Strings(names)

			directives := make([]interface{}, 0, len(names))
			for _, name := range names {
				directives = append(directives, in.directiveValue(in.schema.Directives[name]))
			}
			return directives
		}),
	}
}

func (in *introspector) optionalTypeValue(def *ast.Definition) interface{} {
	if def == nil {
		return nil
	}
	return in.typeValue(def)
}

func (in *introspector) typeValue(def *ast.Definition) map[string]interface{} {
	v := map[string]interface{}{
		"kind":           string(def.Kind),
		"name":           def.Name,
		"description":    nullableString(def.Description),
		"specifiedByURL": nil,
		"ofType":         nil,
		"fields":         nil,
		"interfaces":     nil,
		"possibleTypes":  nil,
		"enumValues":     nil,
		"inputFields":    nil,
	}

	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			v["specifiedByURL"] = arg.Value.Raw
		}
	}

	switch def.Kind {
	case ast.Object, ast.Interface:
		v["fields"] = LazyValue(func(args map[string]interface{}) interface{} {
			includeDeprecated, _ := args["includeDeprecated"].(bool)
			fields := make([]interface{}, 0, len(def.Fields))
			for _, fieldDef := range def.Fields {
				if utils.IsIntrospectionName(fieldDef.Name) {
					continue
				}
				if !includeDeprecated && fieldDef.Directives.ForName("deprecated") != nil {
					continue
				}
				fields = append(fields, in.fieldValue(fieldDef))
			}
			return fields
		})
		v["interfaces"] = LazyValue(func(args map[string]interface{}) interface{} {
			interfaces := make([]interface{}, 0, len(def.Interfaces))
			for _, name := range def.Interfaces {
				if intf := in.schema.Types[name]; intf != nil {
					interfaces = append(interfaces, in.typeValue(intf))
				}
			}
			return interfaces
		})
	case ast.InputObject:
		v["inputFields"] = LazyValue(func(args map[string]interface{}) interface{} {
			inputFields := make([]interface{}, 0, len(def.Fields))
			for _, fieldDef := range def.Fields {
				inputFields = append(inputFields, in.inputValue(fieldDef.Name, fieldDef.Description, fieldDef.Type, fieldDef.DefaultValue, fieldDef.Directives))
			}
			return inputFields
		})
	case ast.Enum:
		v["enumValues"] = LazyValue(func(args map[string]interface{}) interface{} {
			includeDeprecated, _ := args["includeDeprecated"].(bool)
			enumValues := make([]interface{}, 0, len(def.EnumValues))
			for _, enumValue := range def.EnumValues {
				deprecated := enumValue.Directives.ForName("deprecated")
				if !includeDeprecated && deprecated != nil {
					continue
				}
				enumValues = append(enumValues, map[string]interface{}{
					"name":              enumValue.Name,
					"description":       nullableString(enumValue.Description),
					"isDeprecated":      deprecated != nil,
					"deprecationReason": deprecationReason(deprecated),
				})
			}
			return enumValues
		})
	}

	if utils.IsAbstractType(def) {
		v["possibleTypes"] = LazyValue(func(args map[string]interface{}) interface{} {
			possibleTypes := in.schema.GetPossibleTypes(def)
			sort.Slice(possibleTypes, func(i, j int) bool {
				return possibleTypes[i].Name < possibleTypes[j].Name
			})

			values := make([]interface{}, 0, len(possibleTypes))
			for _, possibleType := range possibleTypes {
				values = append(values, in.typeValue(possibleType))
			}
			return values
		})
	}

	return v
}

func (in *introspector) typeRefValue(typ *ast.Type) interface{} {
	if typ.NonNull {
		copied := *typ
		copied.NonNull = false
		return map[string]interface{}{
			"kind": "NON_NULL",
			"name": nil,
			"ofType": LazyValue(func(args map[string]interface{}) interface{} {
				return in.typeRefValue(&copied)
			}),
		}
	}
	if typ.Elem != nil {
		return map[string]interface{}{
			"kind": "LIST",
			"name": nil,
			"ofType": LazyValue(func(args map[string]interface{}) interface{} {
				return in.typeRefValue(typ.Elem)
			}),
		}
	}

	def := in.schema.Types[typ.NamedType]
	if def == nil {
		return nil
	}
	return in.typeValue(def)
}

func (in *introspector) fieldValue(fieldDef *ast.FieldDefinition) map[string]interface{} {
	deprecated := fieldDef.Directives.ForName("deprecated")
	return map[string]interface{}{
		"name":        fieldDef.Name,
		"description": nullableString(fieldDef.Description),
		"args": LazyValue(func(args map[string]interface{}) interface{} {
			values := make([]interface{}, 0, len(fieldDef.Arguments))
			for _, arg := range fieldDef.Arguments {
				values = append(values, in.inputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
			}
			return values
		}),
		"type": LazyValue(func(args map[string]interface{}) interface{} {
			return in.typeRefValue(fieldDef.Type)
		}),
		"isDeprecated":      deprecated != nil,
		"deprecationReason": deprecationReason(deprecated),
	}
}

func (in *introspector) inputValue(name, description string, typ *ast.Type, defaultValue *ast.Value, directives ast.DirectiveList) map[string]interface{} {
	var defaultValueText interface{}
	if defaultValue != nil {
		defaultValueText = defaultValue.String()
	}
	deprecated := directives.ForName("deprecated")

	return map[string]interface{}{
		"name":        name,
		"description": nullableString(description),
		"type": LazyValue(func(args map[string]interface{}) interface{} {
			return in.typeRefValue(typ)
		}),
		"defaultValue":      defaultValueText,
		"isDeprecated":      deprecated != nil,
		"deprecationReason": deprecationReason(deprecated),
	}
}

func (in *introspector) directiveValue(d *ast.DirectiveDefinition) map[string]interface{} {
	locations := make([]interface{}, 0, len(d.Locations))
	for _, location := range d.Locations {
		locations = append(locations, string(location))
	}

	return map[string]interface{}{
		"name":         d.Name,
		"description":  nullableString(d.Description),
		"locations":    locations,
		"isRepeatable": d.IsRepeatable,
		"args": LazyValue(func(args map[string]interface{}) interface{} {
			values := make([]interface{}, 0, len(d.Arguments))
			for _, arg := range d.Arguments {
				values = append(values, in.inputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
			}
			return values
		}),
	}
}

func deprecationReason(d *ast.Directive) interface{} {
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
