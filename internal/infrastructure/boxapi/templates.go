package boxapi

import (
	"context"
	"net/url"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// Templates lists metadata template schemas, following marker pagination
// until the scope is exhausted.
type Templates struct {
	client *Client
}

func NewTemplates(client *Client) *Templates {
	return &Templates{client: client}
}

type templateEntry struct {
	TemplateKey string  `json:"templateKey"`
	Scope       string  `json:"scope"`
	DisplayName string  `json:"displayName"`
	Hidden      bool    `json:"hidden"`
	Fields      []field `json:"fields"`
}

type field struct {
	Key         string        `json:"key"`
	DisplayName string        `json:"displayName"`
	Type        string        `json:"type"`
	Options     []fieldOption `json:"options"`
}

type fieldOption struct {
	Key string `json:"key"`
}

func (t *Templates) ListTemplates(ctx context.Context, scope string) ([]domain.Template, error) {
	var templates []domain.Template
	marker := ""
	for {
		path := "/2.0/metadata_templates/" + url.PathEscape(scope)
		if marker != "" {
			path += "?marker=" + url.QueryEscape(marker)
		}

		var page struct {
			Entries    []templateEntry `json:"entries"`
			NextMarker string          `json:"next_marker"`
		}
		err := t.client.call(ctx, "box.templates.list", func(ctx context.Context) error {
			return t.client.getJSON(ctx, path, &page, "list templates")
		})
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Entries {
			templates = append(templates, toDomainTemplate(entry))
		}
		if page.NextMarker == "" {
			return templates, nil
		}
		marker = page.NextMarker
	}
}

// toDomainTemplate keys the template by its composite scope_key id so every
// later stage can recover the (scope, key) pair from the id alone.
func toDomainTemplate(entry templateEntry) domain.Template {
	tpl := domain.Template{
		ID:          entry.Scope + "_" + entry.TemplateKey,
		Scope:       entry.Scope,
		Key:         entry.TemplateKey,
		DisplayName: entry.DisplayName,
		Hidden:      entry.Hidden,
	}
	for _, f := range entry.Fields {
		options := make([]string, 0, len(f.Options))
		for _, opt := range f.Options {
			options = append(options, opt.Key)
		}
		if len(options) == 0 {
			options = nil
		}
		tpl.Fields = append(tpl.Fields, domain.TemplateField{
			Key:         f.Key,
			DisplayName: f.DisplayName,
			Type:        domain.FieldType(f.Type),
			Options:     options,
		})
	}
	return tpl
}
