package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"goofish-backend/lib/goofish"
	"goofish-backend/lib/kvstore"
	"goofish-backend/lib/schema"
	"goofish-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (*Store, *kvstore.DB) {
	cleanup := telemetry.SetupForTesting(t, "test:services/capture")
	t.Cleanup(cleanup)

	db, err := kvstore.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	store, err := NewStore(db.Namespace("capture"))
	require.NoError(t, err)
	return store, db
}

// envelope builds an intercepted search response with one listing per
// (id, wantTag, price) triple
func envelope(url string, timestamp int64, items ...[3]string) goofish.Envelope {
	list := make([]string, 0, len(items))
	for _, item := range items {
		list = append(list, fmt.Sprintf(`{
			"data": {"item": {"main": {
				"exContent": {
					"title": "listing %s",
					"price": [{"text": "%s"}],
					"userNickName": "seller-%s",
					"area": "城市",
					"fishTags": {"r2": {"tagList": [{"data": {"content": "%s"}}]}}
				},
				"clickParam": {"args": {"item_id": "%s"}}
			}}}
		}`, item[0], item[2], item[0], item[1], item[0]))
	}

	payload := fmt.Sprintf(
		`{"url": %q, "timestamp": %d, "response": {"data": {"resultList": [%s]}}}`,
		url, timestamp, joinComma(list),
	)
	var env goofish.Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		panic(err)
	}
	return env
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

func TestRecordDedupsAcrossCaptures(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	added, err := store.Record(ctx, envelope("https://g/search?page=1", 1000,
		[3]string{"1", "5人想要", "¥100"},
		[3]string{"2", "3人想要", "¥50"},
	))
	require.NoError(t, err)
	require.Equal(t, 2, added)

	// same listings again, one with a bumped counter
	added, err = store.Record(ctx, envelope("https://g/search?page=2", 2000,
		[3]string{"1", "5人想要", "¥100"},
		[3]string{"2", "4人想要", "¥50"},
	))
	require.NoError(t, err)
	require.Equal(t, 1, added)

	stats := store.Stats()
	require.Equal(t, 2, stats.PageCount)
	require.Equal(t, 3, stats.ItemCount)

	records := store.Snapshot()
	require.Len(t, records, 3)
	require.Equal(t, "1", records[0].ItemId)
	require.Equal(t, "2", records[1].ItemId)
	require.Equal(t, "2", records[2].ItemId)
	require.Equal(t, 4, records[2].WantCnt)
}

func TestRecordAllDuplicatesAddsNoPage(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	env := envelope("https://g/search?page=1", 1000, [3]string{"1", "5人想要", "¥100"})
	_, err := store.Record(ctx, env)
	require.NoError(t, err)

	added, err := store.Record(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 0, added)

	require.Equal(t, 1, store.Stats().PageCount)
	require.Equal(t, 1, store.Stats().ItemCount)
	// the request log records the no-op capture regardless
	require.Len(t, store.RequestLogs(), 2)
}

// capture with one broken item, export, re-capture: the broken item is
// skipped, the export is stable across the duplicate capture
func TestCaptureExportRecapture(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	payload := `{
		"url": "https://g/search?page=1", "timestamp": 1000,
		"response": {"data": {"resultList": [
			{"data": {"item": {"main": {
				"exContent": {"title": "甲", "price": [{"text": "¥10"}]},
				"clickParam": {"args": {"item_id": "1"}}
			}}}},
			{"data": {"item": {"main": {
				"exContent": {"title": "乙", "price": [{"text": "¥20"}]},
				"clickParam": {"args": {"item_id": "2"}}
			}}}},
			{"data": {"item": {"main": {
				"exContent": {"title": "无id"},
				"clickParam": {"args": {}}
			}}}}
		]}}
	}`
	var env goofish.Envelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))

	added, err := store.Record(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 2, added)
	require.Equal(t, 2, store.Stats().ItemCount)

	out, err := schema.ProductCSV(store.Snapshot())
	require.NoError(t, err)
	require.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 3) // header + 2 rows

	added, err = store.Record(ctx, env)
	require.NoError(t, err)
	require.Equal(t, 0, added)

	again, err := schema.ProductCSV(store.Snapshot())
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestRestartRecovery(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/capture")
	defer cleanup()

	dir := t.TempDir()
	ctx := context.Background()

	db, err := kvstore.Open(dir)
	require.NoError(t, err)

	store, err := NewStore(db.Namespace("capture"))
	require.NoError(t, err)

	_, err = store.Record(ctx, envelope("https://g/search?page=1", 1000,
		[3]string{"1", "5人想要", "¥100"},
	))
	require.NoError(t, err)
	require.NoError(t, store.SetKeyword(ctx, "iphone"))
	require.NoError(t, db.Close())

	db, err = kvstore.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	restored, err := NewStore(db.Namespace("capture"))
	require.NoError(t, err)

	require.Equal(t, 1, restored.Stats().ItemCount)
	require.Len(t, restored.Snapshot(), 1)
	require.Equal(t, "iphone", restored.Keyword())
	require.Len(t, restored.RequestLogs(), 1)

	// the restored seen set still dedups
	added, err := restored.Record(ctx, envelope("https://g/search?page=1", 2000,
		[3]string{"1", "5人想要", "¥100"},
	))
	require.NoError(t, err)
	require.Equal(t, 0, added)
}

func TestResetKeepsConfiguration(t *testing.T) {
	store, db := setup(t)
	ctx := context.Background()

	_, err := store.Record(ctx, envelope("https://g/search?page=1", 1000,
		[3]string{"1", "5人想要", "¥100"},
	))
	require.NoError(t, err)
	require.NoError(t, store.SetKeyword(ctx, "iphone"))
	require.NoError(t, store.SetFilter(ctx, FilterConfig{MinWantCnt: 3}))

	require.NoError(t, store.Reset(ctx))

	require.Equal(t, Statistics{}, store.Stats())
	require.Empty(t, store.Snapshot())
	require.Empty(t, store.RequestLogs())
	require.Equal(t, "iphone", store.Keyword())
	require.Equal(t, FilterConfig{MinWantCnt: 3}, store.Filter())

	// previously seen records capture again after a reset
	added, err := store.Record(ctx, envelope("https://g/search?page=1", 2000,
		[3]string{"1", "5人想要", "¥100"},
	))
	require.NoError(t, err)
	require.Equal(t, 1, added)

	// a store reopened after reset sees the cleared state
	restored, err := NewStore(db.Namespace("capture"))
	require.NoError(t, err)
	require.Equal(t, "iphone", restored.Keyword())
}

func TestFilterConfig(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.SetFilter(ctx, FilterConfig{MinWantCnt: 4, MinPrice: 60}))

	added, err := store.Record(ctx, envelope("https://g/search?page=1", 1000,
		[3]string{"1", "5人想要", "¥100"}, // passes
		[3]string{"2", "3人想要", "¥100"}, // below want threshold
		[3]string{"3", "9人想要", "¥50"},  // below price threshold
	))
	require.NoError(t, err)
	require.Equal(t, 1, added)

	records := store.Snapshot()
	require.Len(t, records, 1)
	require.Equal(t, "1", records[0].ItemId)
}

func TestRequestLogCSV(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	_, err := store.Record(ctx, envelope("https://g/search?page=1&q=iphone", 1000,
		[3]string{"1", "5人想要", "¥100"},
	))
	require.NoError(t, err)

	out, err := store.RequestLogCSV()
	require.NoError(t, err)
	require.Contains(t, out, "序号,请求时间,请求方法,请求URL,基础URL,URL参数,请求体,返回商品数")
	require.Contains(t, out, `"page=1&q=iphone"`)
	require.Contains(t, out, `"GET"`)

	logs := store.RequestLogs()
	require.Len(t, logs, 1)
	require.Equal(t, "https://g/search", logs[0].BaseUrl)
	require.Equal(t, 1, logs[0].ItemCount)
}

func TestRequestLogCSVEmpty(t *testing.T) {
	store, _ := setup(t)
	_, err := store.RequestLogCSV()
	require.Error(t, err)
}
