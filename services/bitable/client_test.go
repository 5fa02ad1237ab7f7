package bitable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"goofish-backend/lib/schema"
	"goofish-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeFeishu struct {
	mux *http.ServeMux

	tokenCalls  atomic.Int64
	fieldsPosts []map[string]any
	batchPosts  [][]map[string]any
}

func newFakeFeishu(t testing.TB, existingFields []string) *fakeFeishu {
	f := &fakeFeishu{mux: http.NewServeMux()}

	f.mux.HandleFunc("POST /open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		fmt.Fprint(w, `{"code": 0, "msg": "ok", "tenant_access_token": "test-token", "expire": 7200}`)
	})

	f.mux.HandleFunc("GET /open-apis/bitable/v1/apps/{app}/tables/{table}/fields", func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{}
		for _, name := range existingFields {
			items = append(items, map[string]any{"field_name": name, "type": 1})
		}
		writeEnvelope(w, map[string]any{"items": items})
	})

	f.mux.HandleFunc("POST /open-apis/bitable/v1/apps/{app}/tables/{table}/fields", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		f.fieldsPosts = append(f.fieldsPosts, body)
		writeEnvelope(w, map[string]any{})
	})

	f.mux.HandleFunc("GET /open-apis/bitable/v1/apps/{app}/tables/{table}/records", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_token") == "" {
			writeEnvelope(w, map[string]any{
				"items":      []map[string]any{{"fields": map[string]any{"商品ID": "1"}}},
				"has_more":   true,
				"page_token": "page2",
			})
			return
		}
		writeEnvelope(w, map[string]any{
			"items":    []map[string]any{{"fields": map[string]any{"商品ID": "2"}}},
			"has_more": false,
		})
	})

	f.mux.HandleFunc("POST /open-apis/bitable/v1/apps/{app}/tables/{table}/records/batch_create", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Records []map[string]any `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Error(err)
		}
		f.batchPosts = append(f.batchPosts, body.Records)
		writeEnvelope(w, map[string]any{"records": body.Records})
	})

	return f
}

func writeEnvelope(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"code": 0, "msg": "ok", "data": data})
}

func setup(t testing.TB, existingFields []string) (*Client, *fakeFeishu) {
	cleanup := telemetry.SetupForTesting(t, "test:services/bitable")
	t.Cleanup(cleanup)

	fake := newFakeFeishu(t, existingFields)
	server := httptest.NewServer(fake.mux)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		AppId:            "app",
		AppSecret:        "secret",
		SpreadsheetToken: "spreadsheet",
		ProductTableId:   "tbl_products",
		Enabled:          true,
	})
	client.http.SetBaseURL(server.URL)
	return client, fake
}

func TestTokenCached(t *testing.T) {
	client, fake := setup(t, nil)
	ctx := context.Background()

	_, err := client.ListFields(ctx, "tbl_products")
	require.NoError(t, err)
	_, err = client.ListFields(ctx, "tbl_products")
	require.NoError(t, err)

	require.Equal(t, int64(1), fake.tokenCalls.Load())
}

func TestEnsureFieldsIdempotent(t *testing.T) {
	client, fake := setup(t, []string{"商品ID", "价格"})
	ctx := context.Background()

	wanted := []schema.RemoteFieldConfig{
		{Name: "商品ID", Type: schema.RemoteText},
		{Name: "价格", Type: schema.RemoteText},
		{Name: "想要人数", Type: schema.RemoteNumber},
	}
	require.NoError(t, client.EnsureFields(ctx, "tbl_products", wanted))

	require.Len(t, fake.fieldsPosts, 1)
	require.Equal(t, "想要人数", fake.fieldsPosts[0]["field_name"])
	require.Equal(t, float64(schema.RemoteNumber), fake.fieldsPosts[0]["type"])
}

func TestListRecordsPagination(t *testing.T) {
	client, _ := setup(t, nil)

	var ids []string
	err := client.ListRecords(context.Background(), "tbl_products", []string{"商品ID"}, func(items []RecordItem) error {
		for _, item := range items {
			ids = append(ids, item.Fields["商品ID"].(string))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, ids)
}

func TestListRecordsCancelled(t *testing.T) {
	client, _ := setup(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := client.ListRecords(ctx, "tbl_products", []string{"商品ID"}, func(items []RecordItem) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatchCreateChunks(t *testing.T) {
	client, fake := setup(t, nil)
	client.batchSize = 2

	records := make([]schema.RemoteRecord, 5)
	for i := range records {
		records[i] = schema.RemoteRecord{Fields: map[string]any{"商品ID": fmt.Sprint(i)}}
	}

	created, err := client.BatchCreateRecords(context.Background(), "tbl_products", records)
	require.NoError(t, err)
	require.Equal(t, 5, created)

	require.Len(t, fake.batchPosts, 3)
	require.Len(t, fake.batchPosts[0], 2)
	require.Len(t, fake.batchPosts[1], 2)
	require.Len(t, fake.batchPosts[2], 1)
}

func TestTestConnection(t *testing.T) {
	client, _ := setup(t, nil)
	require.NoError(t, client.TestConnection(context.Background()))
}

func TestApiError(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/bitable")
	t.Cleanup(cleanup)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /open-apis/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code": 99991663, "msg": "app not found"}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewClient(Config{AppId: "bad", AppSecret: "bad"})
	client.http.SetBaseURL(server.URL)

	_, err := client.ListFields(context.Background(), "tbl")
	require.ErrorContains(t, err, "app not found")
}
