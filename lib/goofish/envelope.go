// Package goofish models the marketplace's internal search API payloads and
// extracts canonical product records from them. The provider's response
// shape drifts release to release, so every field is pulled out by its own
// small projection that tolerates its own shape variance.
package goofish

import "encoding/json"

// Envelope is one intercepted API call as handed over by the page-side
// producer: url, method, request body, parsed JSON response and the capture
// timestamp in epoch milliseconds.
type Envelope struct {
	Url         string          `json:"url"`
	Method      string          `json:"method"`
	RequestBody json.RawMessage `json:"requestBody"`
	Response    Response        `json:"response"`
	Timestamp   int64           `json:"timestamp"`
}

type Response struct {
	Data ResponseData `json:"data"`
}

type ResponseData struct {
	ResultList []ResultItem `json:"resultList"`
}

// ResultItem wraps one listing. The listing content sits behind the
// data.item.main path; anything missing along the way makes the item
// un-extractable.
type ResultItem struct {
	Data struct {
		Item struct {
			Main *MainData `json:"main"`
		} `json:"item"`
	} `json:"data"`
}

type MainData struct {
	ExContent  ExContent  `json:"exContent"`
	ClickParam ClickParam `json:"clickParam"`
}

type ClickParam struct {
	Args ClickArgs `json:"args"`
}

type ClickArgs struct {
	ItemId      json.RawMessage `json:"item_id"`
	Tag         string          `json:"tag"`
	TagName     string          `json:"tagname"`
	PublishTime json.RawMessage `json:"publishTime"`
}

type ExContent struct {
	ItemId       json.RawMessage      `json:"itemId"`
	Title        string               `json:"title"`
	Price        json.RawMessage      `json:"price"`
	OriPrice     string               `json:"oriPrice"`
	UserNickName string               `json:"userNickName"`
	Area         string               `json:"area"`
	PicUrl       string               `json:"picUrl"`
	FishTags     map[string]TagRegion `json:"fishTags"`
}

type TagRegion struct {
	TagList []Tag `json:"tagList"`
}

type Tag struct {
	Data TagData `json:"data"`
}

type TagData struct {
	Content string `json:"content"`
}
