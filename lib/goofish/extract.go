package goofish

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// the item lacks the data.item.main path entirely
	ErrNoListing = errors.New("result item carries no listing content")
	// neither id source resolved to a non-empty identifier
	ErrNoItemId = errors.New("listing has no resolvable item id")
)

const (
	// free-text tag suffix marking the interest counter, e.g. "56人想要"
	wantCntSuffix = "人想要"
	// internal tag code the provider ships instead of display text
	freeShipIconCode = "freeShippingIcon"
	// display text substituted for the code above
	freeShipLabel = "包邮"

	tagSeparator = "、"

	detailUrlFormat = "https://www.goofish.com/item?id=%s"
)

// Extract builds a canonical ProductRecord from one raw result item.
// It fails only when the nested listing path is missing or no id can be
// resolved; every other field falls back to its zero form ("" or 0), so a
// structurally valid but sparse item never errors.
func Extract(item ResultItem, now time.Time) (ProductRecord, error) {
	main := item.Data.Item.Main
	if main == nil {
		return ProductRecord{}, ErrNoListing
	}

	ex := main.ExContent
	args := main.ClickParam.Args

	// the id lives in the click params on current payloads and in
	// exContent on older ones
	itemId := flexString(args.ItemId)
	if itemId == "" {
		itemId = flexString(ex.ItemId)
	}
	if itemId == "" {
		return ProductRecord{}, ErrNoItemId
	}

	price := priceText(ex.Price)
	publishMs := flexInt64(args.PublishTime)

	return ProductRecord{
		ItemId:              itemId,
		Title:               ex.Title,
		Price:               price,
		PriceNumber:         parseAmount(price),
		OriginalPrice:       ex.OriPrice,
		OriginalPriceNumber: parseAmount(ex.OriPrice),
		WantCnt:             wantCount(ex.FishTags),
		PublishTime:         FormatTime(publishMs),
		PublishTimeMs:       publishMs,
		CaptureTime:         now.In(Location).Format(timeLayout),
		CaptureTimeMs:       now.UnixMilli(),
		SellerNick:          ex.UserNickName,
		SellerCity:          ex.Area,
		FreeShip:            freeShipText(isFreeShip(args, ex.FishTags)),
		Tags:                displayTags(ex.FishTags),
		CoverUrl:            NormalizeUrl(ex.PicUrl),
		DetailUrl:           NormalizeUrl(fmt.Sprintf(detailUrlFormat, itemId)),
	}, nil
}

// flexString decodes a raw JSON scalar that may arrive as a string or a
// number depending on the provider release.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func flexInt64(raw json.RawMessage) int64 {
	n, err := strconv.ParseInt(flexString(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

type priceFragment struct {
	Text string `json:"text"`
}

// priceText joins the price fragment array into one display string; older
// payloads ship the price as a plain string instead.
func priceText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var fragments []priceFragment
	if err := json.Unmarshal(raw, &fragments); err == nil {
		var b strings.Builder
		for _, f := range fragments {
			b.WriteString(f.Text)
		}
		return b.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// parseAmount pulls the numeric value out of a display price like
// "¥128.00". Unparsable input yields 0.
func parseAmount(display string) float64 {
	var b strings.Builder
	for _, r := range display {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return n
}

// regionKeys returns the tag region names in sorted order. The provider
// hands regions as a JSON object whose ordering it never guaranteed, so a
// deterministic order is the strongest property available.
func regionKeys(fishTags map[string]TagRegion) []string {
	keys := make([]string, 0, len(fishTags))
	for k := range fishTags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// wantCount finds the interest counter among the tag regions, recognized
// by its fixed suffix. Counters like "2000+人想要" parse their leading
// digits.
func wantCount(fishTags map[string]TagRegion) int {
	count := 0
	for _, region := range regionKeys(fishTags) {
		for _, tag := range fishTags[region].TagList {
			content := tag.Data.Content
			if content == "" || !strings.HasSuffix(content, wantCntSuffix) {
				continue
			}
			count = parseLeadingInt(strings.TrimSuffix(content, wantCntSuffix))
		}
	}
	return count
}

func parseLeadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// displayTags flattens all tag regions into one deduplicated,
// first-occurrence-ordered display string. The interest counter tag is
// excluded and known internal codes are replaced by display text.
func displayTags(fishTags map[string]TagRegion) string {
	var tags []string
	seen := map[string]struct{}{}

	for _, region := range regionKeys(fishTags) {
		for _, tag := range fishTags[region].TagList {
			content := tag.Data.Content
			if content == "" || strings.HasSuffix(content, wantCntSuffix) {
				continue
			}
			if strings.Contains(content, freeShipIconCode) {
				content = freeShipLabel
			}
			if _, ok := seen[content]; ok {
				continue
			}
			seen[content] = struct{}{}
			tags = append(tags, content)
		}
	}
	return strings.Join(tags, tagSeparator)
}

// isFreeShip ORs the three independent signals the provider may use:
// a click-param tag code, the click-param tag name, or an explicit tag in
// the r1 region.
func isFreeShip(args ClickArgs, fishTags map[string]TagRegion) bool {
	if strings.Contains(args.Tag, "freeship") {
		return true
	}
	if strings.Contains(args.TagName, freeShipLabel) {
		return true
	}
	for _, tag := range fishTags["r1"].TagList {
		if tag.Data.Content == freeShipLabel {
			return true
		}
	}
	return false
}

func freeShipText(free bool) string {
	if free {
		return "是"
	}
	return "否"
}
