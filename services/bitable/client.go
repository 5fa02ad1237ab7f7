// Package bitable is a client for the Feishu Bitable open API: tenant
// token management, table field management, paginated record reads and
// batched record writes. All pacing between calls is expressed through
// named constants driving rate limiters, never inline sleeps.
package bitable

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"goofish-backend/lib/schema"
	"goofish-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("services/bitable")

const (
	DefaultBaseUrl = "https://open.feishu.cn"

	// the batch_create endpoint accepts at most this many records per call
	MaxBatchSize = 500
	// page size used when walking existing records during reconciliation
	ListPageSize = 500

	// pacing between consecutive record-write batches
	WriteInterval = 200 * time.Millisecond
	// pacing between consecutive field-creation calls
	FieldCreateInterval = 200 * time.Millisecond
	// pacing between consecutive record-list pages
	ListPageInterval = 100 * time.Millisecond

	// tokens are refreshed this long before the server-reported expiry
	tokenEarlyExpiry = 5 * time.Minute
	tokenCacheSize   = 8
)

type cachedToken struct {
	token     string
	expiresAt time.Time
}

type Client struct {
	http   *resty.Client
	config Config

	tokens       *lru.LRU[string, cachedToken]
	writeLimiter *rate.Limiter
	fieldLimiter *rate.Limiter
	pageLimiter  *rate.Limiter

	// overridable for tests; defaults to MaxBatchSize
	batchSize int
}

func NewClient(config Config) *Client {
	client := resty.New()
	client.SetBaseURL(DefaultBaseUrl)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "services/bitable/http")

	return &Client{
		http:         client,
		config:       config,
		tokens:       lru.NewLRU[string, cachedToken](tokenCacheSize, nil, time.Hour),
		writeLimiter: rate.NewLimiter(rate.Every(WriteInterval), 1),
		fieldLimiter: rate.NewLimiter(rate.Every(FieldCreateInterval), 1),
		pageLimiter:  rate.NewLimiter(rate.Every(ListPageInterval), 1),
		batchSize:    MaxBatchSize,
	}
}

type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte, operation string) (apiEnvelope, error) {
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return apiEnvelope{}, fmt.Errorf("%s: decode response: %w", operation, err)
	}
	if envelope.Code != 0 {
		return apiEnvelope{}, fmt.Errorf("%s: code %d: %s", operation, envelope.Code, envelope.Msg)
	}
	return envelope, nil
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

func (c *Client) tenantAccessToken(ctx context.Context) (string, error) {
	if cached, ok := c.tokens.Get(c.config.AppId); ok {
		if time.Now().Before(cached.expiresAt) {
			return cached.token, nil
		}
	}

	ctx, span := tracer.Start(ctx, "tenantAccessToken")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"app_id":     c.config.AppId,
			"app_secret": c.config.AppSecret,
		}).
		Post("/open-apis/auth/v3/tenant_access_token/internal")
	if err != nil {
		return "", err
	}

	var token tokenResponse
	if err := json.Unmarshal(res.Body(), &token); err != nil {
		return "", fmt.Errorf("tenant access token: decode response: %w", err)
	}
	if token.Code != 0 {
		return "", fmt.Errorf("tenant access token: code %d: %s", token.Code, token.Msg)
	}

	c.tokens.Add(c.config.AppId, cachedToken{
		token:     token.TenantAccessToken,
		expiresAt: time.Now().Add(time.Duration(token.Expire)*time.Second - tokenEarlyExpiry),
	})
	return token.TenantAccessToken, nil
}

func (c *Client) tablePath(tableId, suffix string) string {
	return fmt.Sprintf(
		"/open-apis/bitable/v1/apps/%s/tables/%s/%s",
		c.config.SpreadsheetToken, tableId, suffix,
	)
}

type FieldInfo struct {
	FieldName string `json:"field_name"`
	Type      int    `json:"type"`
}

func (c *Client) ListFields(ctx context.Context, tableId string) ([]FieldInfo, error) {
	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(c.tablePath(tableId, "fields"))
	if err != nil {
		return nil, err
	}
	envelope, err := decodeEnvelope(res.Body(), "list fields")
	if err != nil {
		return nil, err
	}

	var data struct {
		Items []FieldInfo `json:"items"`
	}
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("list fields: decode items: %w", err)
	}
	return data.Items, nil
}

func (c *Client) CreateField(ctx context.Context, tableId string, field schema.RemoteFieldConfig) error {
	if err := c.fieldLimiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return err
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]any{
			"field_name": field.Name,
			"type":       int(field.Type),
		}).
		Post(c.tablePath(tableId, "fields"))
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(res.Body(), fmt.Sprintf("create field %q", field.Name))
	return err
}

// EnsureFields creates whichever of the wanted columns the table does not
// carry yet. Idempotent: fields already present are skipped.
func (c *Client) EnsureFields(ctx context.Context, tableId string, wanted []schema.RemoteFieldConfig) error {
	ctx, span := tracer.Start(ctx, "EnsureFields")
	defer span.End()

	existing, err := c.ListFields(ctx, tableId)
	if err != nil {
		return err
	}
	present := map[string]struct{}{}
	for _, field := range existing {
		present[field.FieldName] = struct{}{}
	}

	for _, field := range wanted {
		if _, ok := present[field.Name]; ok {
			continue
		}
		if err := c.CreateField(ctx, tableId, field); err != nil {
			return err
		}
		slog.InfoContext(ctx, "created remote field", "table", tableId, "field", field.Name)
	}
	return nil
}

type RecordItem struct {
	Fields map[string]any `json:"fields"`
}

// ListRecords walks every page of a table's records, invoking fn per page.
// It stops early only on fn error or context cancellation, both checked at
// page boundaries; stopping before has_more goes false would leave the
// caller with an incomplete view.
func (c *Client) ListRecords(ctx context.Context, tableId string, fieldNames []string, fn func(items []RecordItem) error) error {
	ctx, span := tracer.Start(ctx, "ListRecords")
	defer span.End()

	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return err
	}

	names, err := json.Marshal(fieldNames)
	if err != nil {
		return err
	}

	pageToken := ""
	for {
		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParam("page_size", fmt.Sprint(ListPageSize)).
			SetQueryParam("field_names", string(names))
		if pageToken != "" {
			req.SetQueryParam("page_token", pageToken)
		}

		res, err := req.Get(c.tablePath(tableId, "records"))
		if err != nil {
			return err
		}
		envelope, err := decodeEnvelope(res.Body(), "list records")
		if err != nil {
			return err
		}

		var data struct {
			Items     []RecordItem `json:"items"`
			HasMore   bool         `json:"has_more"`
			PageToken string       `json:"page_token"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return fmt.Errorf("list records: decode items: %w", err)
		}
		if err := fn(data.Items); err != nil {
			return err
		}

		if !data.HasMore {
			return nil
		}
		pageToken = data.PageToken
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return err
		}
	}
}

// BatchCreateRecords writes records in chunks of the endpoint's maximum
// batch size, pacing consecutive batches. A mid-way failure leaves the
// batches already written in place; callers must treat writes as
// at-least-once.
func (c *Client) BatchCreateRecords(ctx context.Context, tableId string, records []schema.RemoteRecord) (int, error) {
	ctx, span := tracer.Start(ctx, "BatchCreateRecords")
	defer span.End()

	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for start := 0; start < len(records); start += c.batchSize {
		if err := c.writeLimiter.Wait(ctx); err != nil {
			return created, err
		}

		end := start + c.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		res, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(map[string]any{"records": batch}).
			Post(c.tablePath(tableId, "records/batch_create"))
		if err != nil {
			return created, err
		}
		envelope, err := decodeEnvelope(res.Body(), "batch create records")
		if err != nil {
			return created, err
		}

		var data struct {
			Records []json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return created, fmt.Errorf("batch create records: decode records: %w", err)
		}
		created += len(data.Records)
		slog.InfoContext(ctx, "created remote records", "table", tableId, "count", len(batch))
	}
	return created, nil
}

// TestConnection verifies the credentials and, when a product table is
// configured, that the table is readable.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "TestConnection")
	defer span.End()

	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return err
	}
	if c.config.SpreadsheetToken == "" || c.config.ProductTableId == "" {
		return nil
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("page_size", "1").
		Get(c.tablePath(c.config.ProductTableId, "records"))
	if err != nil {
		return err
	}
	_, err = decodeEnvelope(res.Body(), "table access")
	return err
}
