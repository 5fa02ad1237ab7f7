package tablesync

import (
	"context"
	"strconv"
	"strings"

	"goofish-backend/lib/goofish"
	"goofish-backend/services/bitable"
)

// remote columns read back during reconciliation. The reconcile key is
// built from the numeric price column, not the display string, so a
// record synced once can match again only when id, want count and parsed
// price all agree.
const (
	remoteItemIdField = "商品ID"
	remoteWantField   = "想要人数"
	remotePriceField  = "价格"
)

// ExistingKeys pages through the remote table and collects the composite
// key of every row already present. Rows without an item id are ignored.
func ExistingKeys(ctx context.Context, table Table, tableId string) (map[string]struct{}, error) {
	existing := map[string]struct{}{}
	fields := []string{remoteItemIdField, remoteWantField, remotePriceField}

	err := table.ListRecords(ctx, tableId, fields, func(items []bitable.RecordItem) error {
		for _, item := range items {
			key, ok := remoteKey(item.Fields)
			if !ok {
				continue
			}
			existing[key] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func remoteKey(fields map[string]any) (string, bool) {
	itemId := fieldString(fields[remoteItemIdField])
	if itemId == "" {
		return "", false
	}
	want := int(fieldFloat(fields[remoteWantField]))
	price := fieldFloat(fields[remotePriceField])
	return recordKey(itemId, want, price), true
}

func recordKey(itemId string, wantCnt int, price float64) string {
	return itemId + "_" + strconv.Itoa(wantCnt) + "_" + strconv.FormatFloat(price, 'f', -1, 64)
}

// localKey mirrors remoteKey for a record about to be pushed. It uses the
// parsed price, matching what the remote number column stores.
func localKey(r goofish.ProductRecord) string {
	return recordKey(r.ItemId, r.WantCnt, r.PriceNumber)
}

// FilterSynced drops records whose reconcile key is already present
// remotely, preserving order.
func FilterSynced(records []goofish.ProductRecord, existing map[string]struct{}) []goofish.ProductRecord {
	if len(existing) == 0 {
		return records
	}
	var out []goofish.ProductRecord
	for _, record := range records {
		if _, ok := existing[localKey(record)]; ok {
			continue
		}
		out = append(out, record)
	}
	return out
}

// fieldString flattens the shapes the records API returns for a text
// cell: a plain string, or a list of text segments.
func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		var b strings.Builder
		for _, segment := range v {
			if m, ok := segment.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					b.WriteString(text)
				}
			}
		}
		return strings.TrimSpace(b.String())
	default:
		return ""
	}
}

func fieldFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		n, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n
	default:
		return 0
	}
}
