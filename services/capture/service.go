// Package capture owns the process-wide capture state: every intercepted
// page of listings, the composite-key seen set and the running statistics.
// All three update atomically under one lock and every mutation is written
// through to the durable KV namespace, so a crash loses at most the
// in-flight capture.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"goofish-backend/lib/goofish"
	"goofish-backend/lib/kvstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/capture")

// durable keys inside the capture namespace. Reset removes the first four
// and must leave keyword and filter configuration untouched.
const (
	keyCapturedData = "capturedData"
	keySeenKeys     = "capturedItemIds"
	keyRequestLogs  = "requestLogs"
	keyStatistics   = "statistics"
	keyKeyword      = "currentKeyword"
	keyFilterConfig = "filterConfig"
)

// PageCapture is one API response's worth of already-deduplicated new
// records. Pages are append-only and cleared only by Reset.
type PageCapture struct {
	Url         string                  `json:"url"`
	Records     []goofish.ProductRecord `json:"records"`
	Timestamp   int64                   `json:"timestamp"`
	CaptureTime string                  `json:"captureTime"`
}

type Statistics struct {
	PageCount       int    `json:"pageCount"`
	ItemCount       int    `json:"itemCount"`
	LastCaptureTime string `json:"lastCaptureTime"`
}

// FilterConfig gates candidates before they reach the deduplicator. Zero
// values disable the corresponding check.
type FilterConfig struct {
	MinWantCnt   int     `json:"minWantCnt"`
	MinPrice     float64 `json:"minPrice"`
	MaxPrice     float64 `json:"maxPrice"`
	OnlyFreeShip bool    `json:"onlyFreeShip"`
}

func (f FilterConfig) allows(r goofish.ProductRecord) bool {
	if f.MinWantCnt > 0 && r.WantCnt < f.MinWantCnt {
		return false
	}
	if f.MinPrice > 0 && r.PriceNumber < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && r.PriceNumber > f.MaxPrice {
		return false
	}
	if f.OnlyFreeShip && r.FreeShip != "是" {
		return false
	}
	return true
}

type Store struct {
	mu sync.Mutex
	kv kvstore.Namespace

	pages    []PageCapture
	seen     map[string]struct{}
	requests []RequestLog
	stats    Statistics
	keyword  string
	filter   FilterConfig
}

// NewStore rehydrates the store from the durable namespace; a namespace
// that has never been written yields an empty store.
func NewStore(kv kvstore.Namespace) (*Store, error) {
	s := &Store{
		kv:   kv,
		seen: map[string]struct{}{},
	}

	if err := s.load(keyCapturedData, &s.pages); err != nil {
		return nil, err
	}
	var seenKeys []string
	if err := s.load(keySeenKeys, &seenKeys); err != nil {
		return nil, err
	}
	for _, key := range seenKeys {
		s.seen[key] = struct{}{}
	}
	if err := s.load(keyRequestLogs, &s.requests); err != nil {
		return nil, err
	}
	if err := s.load(keyStatistics, &s.stats); err != nil {
		return nil, err
	}
	if err := s.load(keyKeyword, &s.keyword); err != nil {
		return nil, err
	}
	if err := s.load(keyFilterConfig, &s.filter); err != nil {
		return nil, err
	}

	if len(s.pages) > 0 {
		slog.Info(
			"restored capture state",
			"pages", len(s.pages),
			"seen_keys", len(s.seen),
			"items", s.stats.ItemCount,
		)
	}
	return s, nil
}

func (s *Store) load(key string, out any) error {
	err := s.kv.Get(key, out)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	return err
}

// Record extracts every item in the envelope, applies the filter config,
// dedupes against the seen set and appends a page when at least one record
// survives. State is persisted even on a no-op capture so durable and
// in-memory state never diverge.
func (s *Store) Record(ctx context.Context, env goofish.Envelope) (added int, err error) {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	resultList := env.Response.Data.ResultList
	now := time.Now()

	var candidates []goofish.ProductRecord
	for _, item := range resultList {
		record, err := goofish.Extract(item, now)
		if err != nil {
			slog.WarnContext(ctx, "skipping unextractable item", "err", err)
			continue
		}
		if !s.filter.allows(record) {
			slog.DebugContext(ctx, "filtered out item", "item_id", record.ItemId)
			continue
		}
		candidates = append(candidates, record)
	}

	fresh := goofish.FilterNew(candidates, s.seen)
	s.requests = append(s.requests, newRequestLog(env, len(resultList)))

	if len(fresh) > 0 {
		s.pages = append(s.pages, PageCapture{
			Url:         env.Url,
			Records:     fresh,
			Timestamp:   env.Timestamp,
			CaptureTime: goofish.FormatTime(env.Timestamp),
		})
		s.stats.PageCount = len(s.pages)
		s.stats.ItemCount += len(fresh)
		s.stats.LastCaptureTime = goofish.FormatTime(env.Timestamp)
	}

	span.SetAttributes(
		attribute.Int("custom.result_count", len(resultList)),
		attribute.Int("custom.new_count", len(fresh)),
	)

	if err := s.persist(); err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// persist writes the full capture state through to the durable namespace.
// Caller must hold s.mu.
func (s *Store) persist() error {
	seenKeys := make([]string, 0, len(s.seen))
	for key := range s.seen {
		seenKeys = append(seenKeys, key)
	}

	if err := s.kv.Set(keyCapturedData, s.pages); err != nil {
		return err
	}
	if err := s.kv.Set(keySeenKeys, seenKeys); err != nil {
		return err
	}
	if err := s.kv.Set(keyRequestLogs, s.requests); err != nil {
		return err
	}
	return s.kv.Set(keyStatistics, s.stats)
}

// Reset clears all captured data, in memory and durable. Keyword and
// filter configuration are deliberately not part of a reset.
func (s *Store) Reset(ctx context.Context) error {
	_, span := tracer.Start(ctx, "Reset")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = nil
	s.seen = map[string]struct{}{}
	s.requests = nil
	s.stats = Statistics{}

	return s.kv.Delete(keyCapturedData, keySeenKeys, keyRequestLogs, keyStatistics)
}

func (s *Store) Stats() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Snapshot returns every captured record in capture order: page order is
// append order, item order within a page is provider response order
// post-filtering.
func (s *Store) Snapshot() []goofish.ProductRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []goofish.ProductRecord
	for _, page := range s.pages {
		records = append(records, page.Records...)
	}
	return records
}

func (s *Store) Keyword() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyword
}

func (s *Store) SetKeyword(ctx context.Context, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyword = keyword
	return s.kv.Set(keyKeyword, keyword)
}

func (s *Store) Filter() FilterConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *Store) SetFilter(ctx context.Context, filter FilterConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = filter
	return s.kv.Set(keyFilterConfig, filter)
}
