package schema

import (
	"goofish-backend/lib/goofish"
)

// RemoteRecord is one remote-table row payload: a flat field-name → value
// map wrapped the way the batch_create endpoint expects.
type RemoteRecord struct {
	Fields map[string]any `json:"fields"`
}

// RemoteRecords projects records into remote-table payloads by iterating
// the registry once per record. Fields sharing a remote field name merge
// into one entry, last write in registry order winning; that is how the
// string/number pairs are declared, so the numeric form lands in the
// shared column. The active search keyword is injected as a fixed text
// field on every row.
func RemoteRecords(records []goofish.ProductRecord, keyword string) []RemoteRecord {
	out := make([]RemoteRecord, 0, len(records))
	for _, record := range records {
		out = append(out, remoteRecord(Product, record, keyword))
	}
	return out
}

func remoteRecord(fields []Field, record goofish.ProductRecord, keyword string) RemoteRecord {
	payload := map[string]any{
		KeywordField: keyword,
	}
	for _, f := range fields {
		payload[f.RemoteFieldName()] = remoteValue(f, record)
	}
	return RemoteRecord{Fields: payload}
}

func remoteValue(f Field, record goofish.ProductRecord) any {
	value := f.Value(record)
	switch f.RemoteType {
	case RemoteText:
		return toString(value)
	case RemoteNumber:
		return toFloat(value)
	case RemoteDate:
		// raw epoch millis, or null when the source timestamp is absent
		ms, _ := value.(int64)
		if ms == 0 {
			return nil
		}
		return ms
	case RemoteUrl:
		url := goofish.NormalizeUrl(toString(value))
		if url == "" {
			return nil
		}
		return map[string]any{"link": url}
	default:
		return value
	}
}

func toFloat(value any) float64 {
	switch n := value.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
