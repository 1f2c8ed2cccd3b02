package schema

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Schema is the root of a form description. Fields, Sections and Steps may
// be combined; a schema without steps behaves as a single implicit step.
type Schema struct {
	Title         string         `json:"title,omitempty"`
	Description   string         `json:"description,omitempty"`
	Fields        []Field        `json:"fields,omitempty"`
	Sections      []Section      `json:"sections,omitempty"`
	Steps         []Step         `json:"steps,omitempty"`
	DataSources   []DataSource   `json:"dataSources,omitempty"`
	UploadSources []UploadSource `json:"uploadSources,omitempty"`
}

// Step is an ordered phase of a multi-step form.
type Step struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Sections    []Section `json:"sections,omitempty"`
	Fields      []Field   `json:"fields,omitempty"`
	Conditions
}

// Section groups fields, optionally as a repeatable group.
type Section struct {
	// Name is an explicit value key; when empty the key derives from Title.
	Name             string            `json:"name,omitempty"`
	Title            string            `json:"title,omitempty"`
	Description      string            `json:"description,omitempty"`
	Fields           []Field           `json:"fields,omitempty"`
	Repeatable       bool              `json:"repeatable,omitempty"`
	RepeatableConfig *RepeatableConfig `json:"repeatableConfig,omitempty"`
	Conditions
}

// RepeatableConfig bounds a repeatable section.
type RepeatableConfig struct {
	MinItems     int            `json:"minItems,omitempty"`
	MaxItems     int            `json:"maxItems,omitempty"`
	InitialItems *int           `json:"initialItems,omitempty"`
	DefaultItem  map[string]any `json:"defaultItem,omitempty"`
	AddLabel     string         `json:"addLabel,omitempty"`
	RemoveLabel  string         `json:"removeLabel,omitempty"`
}

// Items returns an int pointer helper for InitialItems.
func Items(n int) *int {
	return &n
}

// Option is a selectable choice for select/radio style fields.
type Option struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// Field describes one input.
type Field struct {
	Name        string         `json:"name"`
	Type        FieldType      `json:"type"`
	Label       string         `json:"label,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Description string         `json:"description,omitempty"`
	Validation  ValidationSpec `json:"validation,omitempty"`
	Conditions
	DefaultValue Value    `json:"-"`
	Cols         int      `json:"cols,omitempty"`
	Options      []Option `json:"options,omitempty"`
	// ClearFields lists sibling or global paths reset when this field's value
	// changes (radio/select style types only).
	ClearFields []string `json:"clearFields,omitempty"`
	// DataSourceID and DataPath bind a read-only value fetched by a data
	// source collaborator.
	DataSourceID string `json:"dataSourceId,omitempty"`
	DataPath     string `json:"dataPath,omitempty"`
	// UploadSourceID routes file-type values through an upload collaborator.
	UploadSourceID string `json:"uploadSourceId,omitempty"`
	// Widget overrides widget resolution for renderers.
	Widget string `json:"widget,omitempty"`
}

// ReadOnly reports whether the value is sourced externally.
func (f Field) ReadOnly() bool {
	return f.DataSourceID != ""
}

type fieldAlias Field

type fieldWire struct {
	fieldAlias
	DefaultValue json.RawMessage `json:"defaultValue,omitempty"`
}

// UnmarshalJSON decodes a field, tracking whether defaultValue was present.
func (f *Field) UnmarshalJSON(data []byte) error {
	var wire fieldWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("schema: field: %w", err)
	}
	out := Field(wire.fieldAlias)
	if wire.DefaultValue != nil {
		if err := out.DefaultValue.UnmarshalJSON(wire.DefaultValue); err != nil {
			return fmt.Errorf("schema: field %q defaultValue: %w", out.Name, err)
		}
	}
	*f = out
	return nil
}

// MarshalJSON encodes a field, emitting defaultValue only when set.
func (f Field) MarshalJSON() ([]byte, error) {
	wire := fieldWire{fieldAlias: fieldAlias(f)}
	if f.DefaultValue.IsSet() {
		raw, err := f.DefaultValue.MarshalJSON()
		if err != nil {
			return nil, err
		}
		wire.DefaultValue = raw
	}
	return json.Marshal(wire)
}

// DataSource declares an external read-only value provider. Transform names
// a function registered with the data source manager.
type DataSource struct {
	ID        string            `json:"id"`
	URL       string            `json:"url"`
	Method    string            `json:"method,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Transform string            `json:"transform,omitempty"`
}

// UploadSource declares a file upload target.
type UploadSource struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	Method         string            `json:"method,omitempty"`
	FieldName      string            `json:"fieldName,omitempty"`
	AdditionalData map[string]string `json:"additionalData,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
	Transform      string            `json:"transform,omitempty"`
}
