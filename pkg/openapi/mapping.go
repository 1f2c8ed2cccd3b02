package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	extensionNamespace = "x-formflow"
	// Strings longer than this render as a textarea.
	textareaThreshold = 255
)

type mapper struct {
	logger *zap.Logger
}

// object maps the properties of s. Nested objects become sections appended to
// sections; when sections is nil (inside a repeatable item) they are
// flattened into dotted field names instead.
func (m mapper) object(s *openapi3.Schema, prefix string, fields *[]schema.Field, sections *[]schema.Section) {
	if s == nil {
		return
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := s.Properties[name]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly {
			continue
		}
		prop := ref.Value
		path := joinPath(prefix, name)

		switch {
		case isObject(prop):
			if sections == nil {
				m.object(prop, path, fields, nil)
				continue
			}
			idx := len(*sections)
			*sections = append(*sections, schema.Section{
				Name:        path,
				Title:       firstNonEmpty(prop.Title, DefaultLabeler(name)),
				Description: prop.Description,
			})
			var nested []schema.Field
			m.object(prop, path, &nested, sections)
			(*sections)[idx].Fields = nested

		case isObjectArray(prop):
			if sections == nil {
				m.logger.Debug("skipping nested repeatable", zap.String("path", path))
				continue
			}
			sec := schema.Section{
				Name:             path,
				Title:            firstNonEmpty(prop.Title, DefaultLabeler(name)),
				Description:      prop.Description,
				Repeatable:       true,
				RepeatableConfig: &schema.RepeatableConfig{MinItems: int(prop.MinItems)},
			}
			if prop.MaxItems != nil {
				sec.RepeatableConfig.MaxItems = int(*prop.MaxItems)
			}
			m.object(prop.Items.Value, "", &sec.Fields, nil)
			*sections = append(*sections, sec)

		default:
			if f, ok := m.field(name, path, prop, required[name]); ok {
				*fields = append(*fields, f)
			}
		}
	}
}

func (m mapper) field(name, path string, prop *openapi3.Schema, required bool) (schema.Field, bool) {
	f := schema.Field{
		Name:        path,
		Label:       firstNonEmpty(prop.Title, DefaultLabeler(name)),
		Description: prop.Description,
	}
	if prop.Default != nil {
		f.DefaultValue = schema.V(prop.Default)
	}
	v := &f.Validation

	switch typ := firstSchemaType(prop.Type); typ {
	case "string":
		f.Type = stringType(prop)
		if f.Type == schema.TypeEmail {
			v.Email = schema.On()
		} else if prop.Pattern != "" {
			v.Pattern = &schema.Pattern{Value: prop.Pattern}
		}
		if prop.MinLength > 0 {
			v.MinLength = schema.Limit(float64(prop.MinLength))
		}
		if prop.MaxLength != nil {
			v.MaxLength = schema.Limit(float64(*prop.MaxLength))
		}
	case "integer", "number":
		f.Type = schema.TypeNumber
		if prop.Min != nil {
			v.Min = schema.Limit(*prop.Min)
		}
		if prop.Max != nil {
			v.Max = schema.Limit(*prop.Max)
		}
	case "boolean":
		// A required checkbox would demand true; booleans stay optional.
		f.Type = schema.TypeCheckbox
		required = false
	case "array":
		f.Type = schema.TypeMultiSelect
		if prop.Items != nil && prop.Items.Value != nil {
			f.Options = options(prop.Items.Value.Enum)
		}
		if prop.MinItems > 0 {
			v.MinLength = schema.Limit(float64(prop.MinItems))
		}
		if prop.MaxItems != nil {
			v.MaxLength = schema.Limit(float64(*prop.MaxItems))
		}
	default:
		if len(prop.Enum) == 0 {
			m.logger.Debug("skipping unsupported property", zap.String("path", path), zap.String("type", typ))
			return schema.Field{}, false
		}
		f.Type = schema.TypeSelect
	}

	if len(prop.Enum) > 0 && f.Type != schema.TypeMultiSelect {
		f.Type = schema.TypeSelect
		f.Options = options(prop.Enum)
	}
	if required {
		v.Required = schema.On()
	}
	applyExtensions(&f, prop.Extensions)
	return f, true
}

func stringType(prop *openapi3.Schema) schema.FieldType {
	switch strings.ToLower(prop.Format) {
	case "email":
		return schema.TypeEmail
	case "date", "date-time":
		return schema.TypeDate
	case "binary", "byte":
		return schema.TypeFile
	case "password":
		return schema.TypePassword
	}
	if prop.MaxLength != nil && *prop.MaxLength > textareaThreshold {
		return schema.TypeTextarea
	}
	return schema.TypeText
}

func options(values []any) []schema.Option {
	if len(values) == 0 {
		return nil
	}
	out := make([]schema.Option, 0, len(values))
	for _, value := range values {
		label := fmt.Sprint(value)
		if s, ok := value.(string); ok {
			label = DefaultLabeler(s)
		}
		out = append(out, schema.Option{Label: label, Value: value})
	}
	return out
}

// applyExtensions reads x-formflow-widget style keys, or the same keys
// without prefix under an x-formflow object.
func applyExtensions(f *schema.Field, raw map[string]any) {
	if len(raw) == 0 {
		return
	}
	values := make(map[string]any)
	if nested, ok := raw[extensionNamespace].(map[string]any); ok {
		for key, value := range nested {
			values[key] = value
		}
	}
	for key, value := range raw {
		if name, ok := strings.CutPrefix(key, extensionNamespace+"-"); ok {
			values[name] = value
		}
	}

	if widget, ok := values["widget"].(string); ok {
		f.Widget = widget
	}
	if placeholder, ok := values["placeholder"].(string); ok {
		f.Placeholder = placeholder
	}
	if cols, ok := values["cols"].(float64); ok {
		f.Cols = int(cols)
	}
	if typ, ok := values["type"].(string); ok && schema.FieldType(typ).Valid() {
		f.Type = schema.FieldType(typ)
	}
}

func isObject(s *openapi3.Schema) bool {
	return firstSchemaType(s.Type) == "object" || (s.Type == nil && len(s.Properties) > 0)
}

func isObjectArray(s *openapi3.Schema) bool {
	return firstSchemaType(s.Type) == "array" && s.Items != nil && s.Items.Value != nil && isObject(s.Items.Value)
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
