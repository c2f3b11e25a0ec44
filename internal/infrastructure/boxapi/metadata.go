package boxapi

import (
	"context"
	"net/url"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// Writer persists field maps on files. A create that collides with an
// existing record surfaces as a conflict kind; the update path sends the
// change as patch operations.
type Writer struct {
	client *Client
}

func NewWriter(client *Client) *Writer {
	return &Writer{client: client}
}

func metadataPath(fileID string, target domain.TemplateIdentity) string {
	return "/2.0/files/" + url.PathEscape(fileID) +
		"/metadata/" + url.PathEscape(target.Scope) +
		"/" + url.PathEscape(target.Key)
}

func (w *Writer) CreateFileMetadata(ctx context.Context, fileID string, target domain.TemplateIdentity, fields domain.FieldMap) error {
	return w.client.call(ctx, "box.metadata.create", func(ctx context.Context) error {
		return w.client.postJSON(ctx, metadataPath(fileID, target), fields, nil, "create metadata")
	})
}

func (w *Writer) UpdateFileMetadata(ctx context.Context, fileID string, target domain.TemplateIdentity, ops []domain.MetadataOp) error {
	return w.client.call(ctx, "box.metadata.update", func(ctx context.Context) error {
		return w.client.putJSON(ctx, metadataPath(fileID, target), contentTypeJSONPatch, ops, nil, "update metadata")
	})
}
