package goofish

import (
	"fmt"
	"time"
)

// the provider localizes display timestamps to China Standard Time
var Location = time.FixedZone("CST", 8*60*60)

const timeLayout = "2006/01/02 15:04:05"

// ProductRecord is the canonical, normalized form of one marketplace
// listing. String/number pairs (price, original price, publish time,
// capture time) are derived together from the same raw fragment and are
// never mutated independently.
type ProductRecord struct {
	ItemId              string  `json:"itemId"`
	Title               string  `json:"title"`
	Price               string  `json:"price"`
	PriceNumber         float64 `json:"priceNumber"`
	OriginalPrice       string  `json:"originalPrice"`
	OriginalPriceNumber float64 `json:"originalPriceNumber"`
	WantCnt             int     `json:"wantCnt"`
	PublishTime         string  `json:"publishTime"`
	PublishTimeMs       int64   `json:"publishTimeMs"`
	CaptureTime         string  `json:"captureTime"`
	CaptureTimeMs       int64   `json:"captureTimeMs"`
	SellerNick          string  `json:"sellerNick"`
	SellerCity          string  `json:"sellerCity"`
	FreeShip            string  `json:"freeShip"`
	Tags                string  `json:"tags"`
	CoverUrl            string  `json:"coverUrl"`
	DetailUrl           string  `json:"detailUrl"`
}

// Key returns the composite dedup identity of a record. Listings reappear
// with updated counters across paginated re-fetches; keying on the
// (id, want count, display price) triple keeps each distinct observation
// while collapsing true repeats. The display price string is used on
// purpose, not the parsed number.
func (r ProductRecord) Key() string {
	return fmt.Sprintf("%s_%d_%s", r.ItemId, r.WantCnt, r.Price)
}

// FormatTime renders an epoch-millisecond timestamp the way the provider's
// own UI displays it. Returns "" for a zero timestamp.
func FormatTime(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).In(Location).Format(timeLayout)
}
