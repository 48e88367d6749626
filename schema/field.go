// Package schema models remote object metadata: the closed set of field
// kinds and the object catalog built from describe calls.
package schema

import "strings"

type Kind string

const (
	KindBoolean  Kind = "boolean"
	KindInteger  Kind = "integer"
	KindPicklist Kind = "picklist"
	KindString   Kind = "string"
	KindEmail    Kind = "email"
	KindDefault  Kind = "default"
)

// Rendering is the input type a form should use for the field.
type Rendering string

const (
	RenderText   Rendering = "text"
	RenderNumber Rendering = "number"
	RenderSelect Rendering = "select"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// NoneOption leads every selectable list.
var NoneOption = Option{Value: "~", Label: "None"}

type PicklistValue struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	Active       bool   `json:"active"`
	DefaultValue bool   `json:"defaultValue"`
}

// Descriptor is one entry of the provider's describe "fields" array.
type Descriptor struct {
	Name           string          `json:"name"`
	Label          string          `json:"label"`
	Type           string          `json:"type"`
	PicklistValues []PicklistValue `json:"picklistValues,omitempty"`
}

type Field struct {
	Name     string
	Label    string
	Subtype  string
	Kind     Kind
	Rendered Rendering
	Options  []Option
}

type kindSpec struct {
	kind      Kind
	rendering Rendering
	options   func(Descriptor) []Option
}

var kindSpecs = map[string]kindSpec{
	"boolean":  {kind: KindBoolean, rendering: RenderSelect, options: booleanOptions},
	"integer":  {kind: KindInteger, rendering: RenderNumber},
	"picklist": {kind: KindPicklist, rendering: RenderSelect, options: picklistOptions},
	"string":   {kind: KindString, rendering: RenderText},
	"email":    {kind: KindEmail, rendering: RenderText},
}

var defaultKindSpec = kindSpec{kind: KindDefault, rendering: RenderText}

// NewField never fails: unknown provider types render as plain text.
func NewField(d Descriptor) Field {
	spec, ok := kindSpecs[strings.ToLower(strings.TrimSpace(d.Type))]
	if !ok {
		spec = defaultKindSpec
	}
	field := Field{
		Name:     d.Name,
		Label:    d.Label,
		Subtype:  d.Type,
		Kind:     spec.kind,
		Rendered: spec.rendering,
	}
	if spec.options != nil {
		field.Options = spec.options(d)
	}
	return field
}

func (f Field) HasOptions() bool {
	return f.Options != nil
}

func booleanOptions(Descriptor) []Option {
	return []Option{
		{Value: "no", Label: "No"},
		{Value: "yes", Label: "Yes"},
	}
}

func picklistOptions(d Descriptor) []Option {
	options := make([]Option, 0, len(d.PicklistValues))
	for _, value := range d.PicklistValues {
		label := value.Label
		if label == "" {
			label = value.Value
		}
		options = append(options, Option{Value: value.Value, Label: label})
	}
	return withNone(options)
}
