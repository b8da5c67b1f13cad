package pipeline

import (
	"fmt"

	"github.com/avvvet/beckn-intent/internal/models"
)

// Compress reduces a raw search response into the minimal provider/item
// structure used for narration. Providers with no items are dropped;
// counterparty identifiers are taken from each response's own context,
// never from a sibling. The output is deterministic: input order is
// preserved and nothing is generated.
func Compress(raw map[string]any) models.CompressedResponse {
	out := models.CompressedResponse{Providers: []models.CompressedProvider{}}
	if raw == nil {
		return out
	}

	responses, ok := raw["responses"].([]any)
	if !ok {
		// Single-response shape: treat the document itself as the response.
		responses = []any{raw}
	}

	for _, entry := range responses {
		resp, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		bppID, bppURI := responseBpp(resp)

		for _, provider := range providersOf(resp) {
			compressed := models.CompressedProvider{
				ID:     stringField(provider, "id"),
				Name:   descriptorName(provider),
				BppID:  bppID,
				BppURI: bppURI,
				Items:  itemsOf(provider),
			}
			if len(compressed.Items) == 0 {
				continue
			}
			out.Providers = append(out.Providers, compressed)
		}
	}

	return out
}

// CompressedAsMap renders the compressed response as a generic JSON-shaped
// map for narration input.
func CompressedAsMap(c models.CompressedResponse) map[string]any {
	providers := make([]any, 0, len(c.Providers))
	for _, p := range c.Providers {
		items := make([]any, 0, len(p.Items))
		for _, it := range p.Items {
			items = append(items, map[string]any{"id": it.ID, "name": it.Name})
		}
		entry := map[string]any{
			"id":    p.ID,
			"name":  p.Name,
			"items": items,
		}
		if p.BppID != "" {
			entry["bpp_id"] = p.BppID
			entry["bpp_uri"] = p.BppURI
		}
		providers = append(providers, entry)
	}
	return map[string]any{"providers": providers}
}

func responseBpp(resp map[string]any) (string, string) {
	ctx, ok := resp["context"].(map[string]any)
	if !ok {
		return "", ""
	}
	return stringField(ctx, "bpp_id"), stringField(ctx, "bpp_uri")
}

func providersOf(resp map[string]any) []map[string]any {
	message, ok := resp["message"].(map[string]any)
	if !ok {
		return nil
	}
	catalog, ok := message["catalog"].(map[string]any)
	if !ok {
		return nil
	}

	list, ok := catalog["providers"].([]any)
	if !ok {
		// Older catalogs namespace the provider list.
		list, ok = catalog["bpp/providers"].([]any)
		if !ok {
			return nil
		}
	}

	out := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if p, ok := entry.(map[string]any); ok {
			out = append(out, p)
		}
	}
	return out
}

func itemsOf(provider map[string]any) []models.CompressedItem {
	list, ok := provider["items"].([]any)
	if !ok {
		return nil
	}

	out := make([]models.CompressedItem, 0, len(list))
	for _, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := stringField(item, "id")
		name := descriptorName(item)
		if id == "" && name == "" {
			continue
		}
		out = append(out, models.CompressedItem{ID: id, Name: name})
	}
	return out
}

// descriptorName reads descriptor.name, falling back to a flat name field.
func descriptorName(node map[string]any) string {
	if descriptor, ok := node["descriptor"].(map[string]any); ok {
		if name := stringField(descriptor, "name"); name != "" {
			return name
		}
	}
	return stringField(node, "name")
}

func stringField(node map[string]any, key string) string {
	switch v := node[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}
