package paperless

import (
	"context"
	"net/http"
	"strings"
)

// ListCustomFields returns all custom field definitions.
func (c *Client) ListCustomFields(ctx context.Context) ([]CustomField, error) {
	var page List[CustomField]
	if err := c.get(ctx, "list custom fields", "/api/custom_fields/", c.listQuery(), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// CreateCustomField creates a custom field. Options only apply to select
// fields.
func (c *Client) CreateCustomField(ctx context.Context, name, dataType string, options []string) (*CustomField, error) {
	body := map[string]any{
		"name":      name,
		"data_type": dataType,
	}
	if len(options) > 0 {
		opts := make([]map[string]string, 0, len(options))
		for _, label := range options {
			opts = append(opts, map[string]string{"label": label})
		}
		body["extra_data"] = map[string]any{"select_options": opts}
	}

	var field CustomField
	if err := c.doJSON(ctx, "create custom field", http.MethodPost, "/api/custom_fields/", body, &field); err != nil {
		return nil, err
	}
	c.logger.Info("custom field created", "name", field.Name, "id", field.ID)
	return &field, nil
}

// GetOrCreateCustomField looks a field up by exact name and creates it when
// missing. When creation fails, possibly because another client just
// created the same field, the list is consulted once more.
func (c *Client) GetOrCreateCustomField(ctx context.Context, name, dataType string, options []string) (*CustomField, error) {
	fields, err := c.ListCustomFields(ctx)
	if err != nil {
		return nil, err
	}
	if f := findField(fields, name); f != nil {
		return f, nil
	}

	created, createErr := c.CreateCustomField(ctx, name, dataType, options)
	if createErr == nil {
		return created, nil
	}

	fields, err = c.ListCustomFields(ctx)
	if err != nil {
		return nil, createErr
	}
	if f := findField(fields, name); f != nil {
		return f, nil
	}
	return nil, createErr
}

func findField(fields []CustomField, name string) *CustomField {
	for i := range fields {
		if fields[i].Name == name {
			return &fields[i]
		}
	}
	return nil
}

// ListDocumentTypes returns all document types.
func (c *Client) ListDocumentTypes(ctx context.Context) ([]DocumentType, error) {
	var page List[DocumentType]
	if err := c.get(ctx, "list document types", "/api/document_types/", c.listQuery(), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GetOrCreateDocumentType looks a document type up by exact name and
// creates it when missing.
func (c *Client) GetOrCreateDocumentType(ctx context.Context, name string) (*DocumentType, error) {
	find := func() (*DocumentType, error) {
		types, err := c.ListDocumentTypes(ctx)
		if err != nil {
			return nil, err
		}
		for i := range types {
			if types[i].Name == name {
				return &types[i], nil
			}
		}
		return nil, nil
	}

	dt, err := find()
	if err != nil || dt != nil {
		return dt, err
	}

	var created DocumentType
	createErr := c.doJSON(ctx, "create document type", http.MethodPost, "/api/document_types/",
		map[string]any{"name": name}, &created)
	if createErr == nil {
		c.logger.Info("document type created", "name", created.Name, "id", created.ID)
		return &created, nil
	}
	if dt, err := find(); err == nil && dt != nil {
		return dt, nil
	}
	return nil, createErr
}

// ListCorrespondents returns all correspondents in one round trip.
func (c *Client) ListCorrespondents(ctx context.Context) ([]Correspondent, error) {
	var page List[Correspondent]
	if err := c.get(ctx, "list correspondents", "/api/correspondents/", c.listQuery(), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// ListTags returns all tags in one round trip.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var page List[Tag]
	if err := c.get(ctx, "list tags", "/api/tags/", c.listQuery(), &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

// GetOrCreateTag resolves a tag by case-insensitive name, creating it when
// missing.
func (c *Client) GetOrCreateTag(ctx context.Context, name string) (*Tag, error) {
	find := func() (*Tag, error) {
		tags, err := c.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		return FindTag(tags, name), nil
	}

	t, err := find()
	if err != nil || t != nil {
		return t, err
	}

	var created Tag
	createErr := c.doJSON(ctx, "create tag", http.MethodPost, "/api/tags/",
		map[string]any{"name": name}, &created)
	if createErr == nil {
		return &created, nil
	}
	if t, err := find(); err == nil && t != nil {
		return t, nil
	}
	return nil, createErr
}

// FindTag returns the tag named name, ignoring case, or nil.
func FindTag(tags []Tag, name string) *Tag {
	name = strings.TrimSpace(name)
	for i := range tags {
		if strings.EqualFold(tags[i].Name, name) {
			return &tags[i]
		}
	}
	return nil
}
