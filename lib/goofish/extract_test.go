package goofish

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func parseItem(t testing.TB, payload string) ResultItem {
	var item ResultItem
	err := json.Unmarshal([]byte(payload), &item)
	require.NoError(t, err)
	return item
}

func TestExtractFullItem(t *testing.T) {
	item := parseItem(t, `{
		"data": {"item": {"main": {
			"exContent": {
				"itemId": "ignored-fallback",
				"title": "iPhone 13 128G 国行",
				"price": [{"text": "¥"}, {"text": "2580"}],
				"oriPrice": "¥5999",
				"userNickName": "数码小王",
				"area": "广东深圳",
				"picUrl": "//img.example.com/pic/1.jpg",
				"fishTags": {
					"r2": {"tagList": [
						{"data": {"content": "56人想要"}},
						{"data": {"content": "验货宝"}}
					]},
					"r1": {"tagList": [{"data": {"content": "包邮"}}]}
				}
			},
			"clickParam": {"args": {
				"item_id": "887711",
				"publishTime": "1716800000000"
			}}
		}}}
	}`)

	now := time.Date(2026, 8, 27, 12, 30, 0, 0, Location)
	record, err := Extract(item, now)
	require.NoError(t, err)

	want := ProductRecord{
		ItemId:              "887711",
		Title:               "iPhone 13 128G 国行",
		Price:               "¥2580",
		PriceNumber:         2580,
		OriginalPrice:       "¥5999",
		OriginalPriceNumber: 5999,
		WantCnt:             56,
		PublishTime:         FormatTime(1716800000000),
		PublishTimeMs:       1716800000000,
		CaptureTime:         "2026/08/27 12:30:00",
		CaptureTimeMs:       now.UnixMilli(),
		SellerNick:          "数码小王",
		SellerCity:          "广东深圳",
		FreeShip:            "是",
		Tags:                "包邮、验货宝",
		CoverUrl:            "https://img.example.com/pic/1.jpg",
		DetailUrl:           "https://www.goofish.com/item?id=887711",
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractPlainStringPrice(t *testing.T) {
	item := parseItem(t, `{
		"data": {"item": {"main": {
			"exContent": {"title": "旧款", "price": "¥128.50"},
			"clickParam": {"args": {"item_id": 12345}}
		}}}
	}`)

	record, err := Extract(item, time.Now())
	require.NoError(t, err)
	require.Equal(t, "12345", record.ItemId)
	require.Equal(t, "¥128.50", record.Price)
	require.Equal(t, 128.5, record.PriceNumber)
}

func TestExtractItemIdFallback(t *testing.T) {
	item := parseItem(t, `{
		"data": {"item": {"main": {
			"exContent": {"itemId": 998877, "title": "备用id"},
			"clickParam": {"args": {}}
		}}}
	}`)

	record, err := Extract(item, time.Now())
	require.NoError(t, err)
	require.Equal(t, "998877", record.ItemId)
}

func TestExtractNoListing(t *testing.T) {
	item := parseItem(t, `{"data": {"item": {}}}`)

	_, err := Extract(item, time.Now())
	require.ErrorIs(t, err, ErrNoListing)
}

func TestExtractNoItemId(t *testing.T) {
	item := parseItem(t, `{
		"data": {"item": {"main": {
			"exContent": {"title": "无id商品"},
			"clickParam": {"args": {}}
		}}}
	}`)

	_, err := Extract(item, time.Now())
	require.ErrorIs(t, err, ErrNoItemId)
}

func TestExtractSparseItem(t *testing.T) {
	item := parseItem(t, `{
		"data": {"item": {"main": {
			"exContent": {},
			"clickParam": {"args": {"item_id": "42"}}
		}}}
	}`)

	record, err := Extract(item, time.Now())
	require.NoError(t, err)
	require.Equal(t, "42", record.ItemId)
	require.Equal(t, "", record.Title)
	require.Equal(t, "", record.Price)
	require.Equal(t, float64(0), record.PriceNumber)
	require.Equal(t, 0, record.WantCnt)
	require.Equal(t, "", record.PublishTime)
	require.Equal(t, int64(0), record.PublishTimeMs)
	require.Equal(t, "否", record.FreeShip)
	require.Equal(t, "", record.Tags)
	require.Equal(t, "", record.CoverUrl)
}

func TestWantCountPlus(t *testing.T) {
	fishTags := map[string]TagRegion{
		"r2": {TagList: []Tag{{Data: TagData{Content: "2000+人想要"}}}},
	}
	require.Equal(t, 2000, wantCount(fishTags))
}

func TestDisplayTagsDedupAndSubstitution(t *testing.T) {
	fishTags := map[string]TagRegion{
		"r1": {TagList: []Tag{
			{Data: TagData{Content: "tag:freeShippingIcon"}},
			{Data: TagData{Content: "验货宝"}},
		}},
		"r2": {TagList: []Tag{
			{Data: TagData{Content: "验货宝"}},
			{Data: TagData{Content: "99人想要"}},
			{Data: TagData{Content: "包邮"}},
		}},
	}
	require.Equal(t, "包邮、验货宝", displayTags(fishTags))
}

func TestFreeShipSignals(t *testing.T) {
	require.True(t, isFreeShip(ClickArgs{Tag: "freeship_xyz"}, nil))
	require.True(t, isFreeShip(ClickArgs{TagName: "包邮好物"}, nil))
	require.True(t, isFreeShip(ClickArgs{}, map[string]TagRegion{
		"r1": {TagList: []Tag{{Data: TagData{Content: "包邮"}}}},
	}))
	require.False(t, isFreeShip(ClickArgs{}, map[string]TagRegion{
		"r2": {TagList: []Tag{{Data: TagData{Content: "包邮"}}}},
	}))
}

func TestParseAmount(t *testing.T) {
	require.Equal(t, 128.5, parseAmount("¥128.50"))
	require.Equal(t, float64(2580), parseAmount("2580"))
	require.Equal(t, float64(0), parseAmount("面议"))
	require.Equal(t, float64(0), parseAmount(""))
}
