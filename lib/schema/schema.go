// Package schema holds the single declarative field table every export
// surface derives from. CSV headers and columns, remote-table field
// creation and remote record payloads all read this one registry; there is
// no separately maintained column list anywhere else.
package schema

import (
	"sort"

	"goofish-backend/lib/goofish"
)

type Kind int

const (
	KindString Kind = iota
	KindNumber
)

// RemoteType is the remote table's field type enum.
type RemoteType int

const (
	RemoteText   RemoteType = 1
	RemoteNumber RemoteType = 2
	RemoteDate   RemoteType = 5
	RemoteUrl    RemoteType = 15
)

// Field describes one output field: how it renders in CSV, how it maps to
// the remote table and how its value is read off a record. CSVOrder 0
// excludes the field from CSV. Several fields may share one RemoteField
// (a display string and its parsed number map to a single remote column);
// remote field declarations are deduplicated by name before creation.
type Field struct {
	Key        string
	Kind       Kind
	Label      string
	CSVOrder   int
	RemoteType RemoteType
	// remote column name; empty means Label
	RemoteField string

	Value func(goofish.ProductRecord) any
}

func (f Field) RemoteFieldName() string {
	if f.RemoteField != "" {
		return f.RemoteField
	}
	return f.Label
}

// the remote table carries the active search keyword alongside every
// record even though it is not part of the schema proper
const KeywordField = "关键字"

var Product = []Field{
	{Key: "itemId", Kind: KindString, Label: "商品ID", CSVOrder: 1, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.ItemId }},
	{Key: "title", Kind: KindString, Label: "商品标题", CSVOrder: 2, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.Title }},
	{Key: "price", Kind: KindString, Label: "价格", CSVOrder: 3, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.Price }},
	{Key: "priceNumber", Kind: KindNumber, Label: "价格数值", CSVOrder: 0, RemoteType: RemoteNumber, RemoteField: "价格",
		Value: func(r goofish.ProductRecord) any { return r.PriceNumber }},
	{Key: "originalPrice", Kind: KindString, Label: "原价", CSVOrder: 4, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.OriginalPrice }},
	{Key: "originalPriceNumber", Kind: KindNumber, Label: "原价数值", CSVOrder: 0, RemoteType: RemoteNumber, RemoteField: "原价",
		Value: func(r goofish.ProductRecord) any { return r.OriginalPriceNumber }},
	{Key: "wantCnt", Kind: KindNumber, Label: "想要人数", CSVOrder: 5, RemoteType: RemoteNumber,
		Value: func(r goofish.ProductRecord) any { return r.WantCnt }},
	{Key: "publishTime", Kind: KindString, Label: "发布时间", CSVOrder: 6, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.PublishTime }},
	{Key: "publishTimeMs", Kind: KindNumber, Label: "发布时间戳", CSVOrder: 0, RemoteType: RemoteDate, RemoteField: "发布时间",
		Value: func(r goofish.ProductRecord) any { return r.PublishTimeMs }},
	{Key: "captureTime", Kind: KindString, Label: "采集时间", CSVOrder: 0, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.CaptureTime }},
	{Key: "captureTimeMs", Kind: KindNumber, Label: "采集时间戳", CSVOrder: 0, RemoteType: RemoteDate, RemoteField: "采集时间",
		Value: func(r goofish.ProductRecord) any { return r.CaptureTimeMs }},
	{Key: "sellerNick", Kind: KindString, Label: "卖家昵称", CSVOrder: 7, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.SellerNick }},
	{Key: "sellerCity", Kind: KindString, Label: "地区", CSVOrder: 8, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.SellerCity }},
	{Key: "freeShip", Kind: KindString, Label: "包邮", CSVOrder: 9, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.FreeShip }},
	{Key: "tags", Kind: KindString, Label: "商品标签", CSVOrder: 10, RemoteType: RemoteText,
		Value: func(r goofish.ProductRecord) any { return r.Tags }},
	{Key: "coverUrl", Kind: KindString, Label: "封面URL", CSVOrder: 11, RemoteType: RemoteUrl,
		Value: func(r goofish.ProductRecord) any { return r.CoverUrl }},
	{Key: "detailUrl", Kind: KindString, Label: "商品详情URL", CSVOrder: 12, RemoteType: RemoteUrl,
		Value: func(r goofish.ProductRecord) any { return r.DetailUrl }},
}

// csvFields filters and sorts a registry into its CSV column set.
func csvFields(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		if f.CSVOrder > 0 {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CSVOrder < out[j].CSVOrder
	})
	return out
}

func CSVHeaders() []string {
	fields := csvFields(Product)
	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = f.Label
	}
	return headers
}

// RemoteFieldConfig is one column the remote table must carry before
// records can be written.
type RemoteFieldConfig struct {
	Name string
	Type RemoteType
}

// ProductRemoteFields derives the remote column set from the registry,
// keyword column first, deduplicated by remote field name so paired
// string/number fields declare their shared column once.
func ProductRemoteFields() []RemoteFieldConfig {
	configs := []RemoteFieldConfig{{Name: KeywordField, Type: RemoteText}}
	seen := map[string]struct{}{KeywordField: {}}

	for _, f := range Product {
		name := f.RemoteFieldName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		configs = append(configs, RemoteFieldConfig{Name: name, Type: f.RemoteType})
	}
	return configs
}

const (
	SellerNickField = "商家名称"
	SellerCityField = "地点"
)

var SellerRemoteFields = []RemoteFieldConfig{
	{Name: SellerNickField, Type: RemoteText},
	{Name: SellerCityField, Type: RemoteText},
}
