package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"goofish-backend/lib/goofish"
)

var ErrNoRecords = errors.New("no records to export")

// ProductCSV renders records as CSV text: csvOrder-sorted columns, a label
// header row, LF-terminated lines. Numeric fields render bare, string
// fields are always quote-wrapped with internal quotes doubled. An empty
// input is a caller-visible error, never a silently empty file.
func ProductCSV(records []goofish.ProductRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("product csv: %w", ErrNoRecords)
	}
	return csvFromFields(csvFields(Product), records), nil
}

func csvFromFields(fields []Field, records []goofish.ProductRecord) string {
	var b strings.Builder

	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Label)
	}
	b.WriteByte('\n')

	for _, record := range records {
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(renderCell(f, record))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderCell(f Field, record goofish.ProductRecord) string {
	value := f.Value(record)
	if value == nil {
		return ""
	}
	if f.Kind == KindNumber {
		return formatNumber(value)
	}
	return quoteCell(toString(value))
}

// quoteCell applies standard CSV escaping: wrap in quotes, double any
// internal quote.
func quoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatNumber(value any) string {
	switch n := value.(type) {
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return toString(value)
	}
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	switch s := value.(type) {
	case string:
		return s
	default:
		return fmt.Sprintf("%v", value)
	}
}

// SellerCSV renders the seller projection: one row per distinct seller
// nick, first-seen city wins.
func SellerCSV(records []goofish.ProductRecord) (string, error) {
	sellers := Sellers(records)
	if len(sellers) == 0 {
		return "", fmt.Errorf("seller csv: %w", ErrNoRecords)
	}

	var b strings.Builder
	b.WriteString(SellerNickField + "," + SellerCityField + "\n")
	for _, seller := range sellers {
		b.WriteString(quoteCell(seller.Nick))
		b.WriteByte(',')
		b.WriteString(quoteCell(seller.City))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
