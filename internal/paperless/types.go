package paperless

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// List is a paginated API response.
type List[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Correspondent is a document correspondent.
type Correspondent struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DocumentType is a document type.
type DocumentType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Tag is a Paperless document tag.
type Tag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Custom field data types used by the upload workflow.
const (
	FieldTypeSelect       = "select"
	FieldTypeDocumentLink = "documentlink"
	FieldTypeString       = "string"
)

// CustomField is a server-side custom field definition.
type CustomField struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	DataType  string    `json:"data_type"`
	ExtraData ExtraData `json:"extra_data"`
}

// ExtraData holds type specific settings of a custom field.
type ExtraData struct {
	SelectOptions []SelectOption `json:"select_options,omitempty"`
}

// SelectOption is one option of a select field.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

// UnmarshalJSON accepts both option objects and the bare strings older
// servers return.
func (o *SelectOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Label)
	}
	var raw struct {
		ID    json.RawMessage `json:"id"`
		Label string          `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Label = raw.Label
	o.ID = flexString(raw.ID)
	return nil
}

// UnmarshalJSON decodes a custom field and assigns index based ids to
// options that arrived without one. Older servers store a select value as
// the option index.
func (f *CustomField) UnmarshalJSON(data []byte) error {
	type plain CustomField
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	for i := range p.ExtraData.SelectOptions {
		if p.ExtraData.SelectOptions[i].ID == "" {
			p.ExtraData.SelectOptions[i].ID = strconv.Itoa(i)
		}
	}
	*f = CustomField(p)
	return nil
}

// flexString renders a JSON string or number as a plain string.
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// CustomFieldValue is one entry of a document's custom_fields array.
type CustomFieldValue struct {
	Field int `json:"field"`
	Value any `json:"value"`
}

// SelectValue builds the value for a select field: the id of the option
// whose label equals label, as a single string.
func SelectValue(field *CustomField, label string) (CustomFieldValue, error) {
	want := strings.TrimSpace(label)
	for _, opt := range field.ExtraData.SelectOptions {
		if strings.TrimSpace(opt.Label) == want {
			return CustomFieldValue{Field: field.ID, Value: opt.ID}, nil
		}
	}
	return CustomFieldValue{}, fmt.Errorf("field %q has no option %q", field.Name, label)
}

// DocumentLinkValue builds the value for a documentlink field.
func DocumentLinkValue(field *CustomField, ids []int) CustomFieldValue {
	v := make([]int, len(ids))
	copy(v, ids)
	return CustomFieldValue{Field: field.ID, Value: v}
}
