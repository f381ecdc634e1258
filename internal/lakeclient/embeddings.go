package lakeclient

import "context"

// UpdateEmbeddings replaces a document's embeddings, adding the Embed mixin
// first if the document does not already carry it.
func (c *Client) UpdateEmbeddings(ctx context.Context, id string, doc Document, embeddings []Embedding) (Document, error) {
	var ops []PatchOp
	if !doc.HasMixin(MixinEmbed) {
		if len(doc.Mixins) == 0 {
			ops = append(ops, PatchOp{Op: "add", Path: "/mixins", Value: []string{MixinEmbed}})
		} else {
			ops = append(ops, PatchOp{Op: "add", Path: "/mixins/-", Value: MixinEmbed})
		}
	}
	ops = append(ops, PatchOp{Op: "replace", Path: "/embeddings", Value: embeddings})
	return c.PatchByID(ctx, id, ops)
}

// DeleteEmbeddings clears a document's embeddings. A document without the
// Embed mixin has nothing to clear and this is a no-op.
func (c *Client) DeleteEmbeddings(ctx context.Context, doc Document) (Document, error) {
	if !doc.HasMixin(MixinEmbed) {
		return doc, nil
	}
	ops := []PatchOp{{Op: "replace", Path: "/embeddings", Value: []Embedding{}}}
	return c.PatchByID(ctx, doc.LakeID, ops)
}
