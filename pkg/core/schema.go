package core

// FieldType is the declared kind of a schema field.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldNumber   FieldType = "number"
	FieldInteger  FieldType = "integer"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
	FieldArray    FieldType = "array"
	FieldObject   FieldType = "object"
)

// Field describes one named entry of a schema. Identity is by Name.
type Field struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`
	Default     *Value    `json:"default,omitempty"`
}

// Schema is a named field contract, optionally extending another schema.
// Fields holds only the schema's own fields; see Registry.ResolvedSchemas
// for the inheritance-applied list.
type Schema struct {
	Name        string  `json:"name"`
	Extends     string  `json:"extends,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

// Extension (a.k.a. plugin) bundles related schemas under one namespace.
type Extension struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     string            `json:"version"`
	Author      string            `json:"author,omitempty"`
	Schemas     map[string]Schema `json:"schemas"`
}

// Diagnostic records a unit skipped during registry discovery or resolution.
type Diagnostic struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

func (d Diagnostic) Error() string {
	return d.Item + ": " + d.Message
}

// Registry aggregates every discovered extension and the resolved field list
// of each schema, keyed by "<extension>/<schema>".
type Registry struct {
	Plugins         map[string]Extension `json:"plugins"`
	ResolvedSchemas map[string][]Field   `json:"resolvedSchemas"`
	Diagnostics     []Diagnostic         `json:"diagnostics,omitempty"`
}

// Plugin returns the extension registered under id.
func (r *Registry) Plugin(id string) (Extension, bool) {
	ext, ok := r.Plugins[id]
	return ext, ok
}

// Resolve returns the resolved fields of a type tag, applying the default namespace.
func (r *Registry) Resolve(typeTag string) ([]Field, bool) {
	fields, ok := r.ResolvedSchemas[QualifiedType(typeTag)]
	return fields, ok
}

// BaseFields returns the fields every inheritance chain starts from.
func BaseFields() []Field {
	emptyTags := Sequence()
	return []Field{
		{Name: "uuid", Type: FieldString, Required: true, Description: "Unique identifier for the artifact"},
		{Name: "type", Type: FieldString, Required: true, Description: "Type of the artifact"},
		{Name: "createdAt", Type: FieldDatetime, Required: true, Description: "Creation timestamp"},
		{Name: "updatedAt", Type: FieldDatetime, Required: true, Description: "Last update timestamp"},
		{Name: "tags", Type: FieldArray, Required: false, Description: "Tags for the artifact", Default: &emptyTags},
		{Name: "schemaVersion", Type: FieldString, Required: true, Description: "Schema version"},
	}
}

// MissingRequired lists required fields without a default that the document lacks.
func MissingRequired(fields []Field, doc Document) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required || f.Default != nil {
			continue
		}
		if !doc.Has(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
