// Package tablesync pushes captured records to the remote table:
// ensure the column set, reconcile against rows already present, write
// what is missing, then mirror the seller projection into its own table.
package tablesync

import (
	"context"
	"fmt"
	"log/slog"

	"goofish-backend/lib/goofish"
	"goofish-backend/lib/kvstore"
	"goofish-backend/lib/schema"
	"goofish-backend/services/bitable"
	"goofish-backend/services/capture"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("services/tablesync")

// Table is the slice of the bitable client a sync needs. Tests substitute
// an in-memory implementation.
type Table interface {
	EnsureFields(ctx context.Context, tableId string, wanted []schema.RemoteFieldConfig) error
	ListRecords(ctx context.Context, tableId string, fieldNames []string, fn func(items []bitable.RecordItem) error) error
	BatchCreateRecords(ctx context.Context, tableId string, records []schema.RemoteRecord) (int, error)
}

type Service struct {
	store    *capture.Store
	configKV kvstore.Namespace

	// swapped out by tests
	newTable func(bitable.Config) Table
}

func NewService(store *capture.Store, configKV kvstore.Namespace) *Service {
	return &Service{
		store:    store,
		configKV: configKV,
		newTable: func(config bitable.Config) Table {
			return bitable.NewClient(config)
		},
	}
}

// Result reports what a sync pass did. Success false with a nil-error
// Message means the sync was skipped, not that it failed.
type Result struct {
	Success      bool   `json:"success"`
	ProductCount int    `json:"productCount"`
	SellerCount  int    `json:"sellerCount"`
	Message      string `json:"message"`
}

// Sync pushes all captured records not yet present remotely. Reconciliation
// is fail-open: when the existing rows cannot be fetched, every record is
// pushed and the remote table may gain duplicates, which beats silently
// losing data.
func (s *Service) Sync(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	config, err := bitable.LoadConfig(s.configKV)
	if err != nil {
		return Result{}, err
	}
	if !config.Enabled {
		return Result{Message: "远程同步未启用"}, nil
	}
	if config.AppId == "" || config.AppSecret == "" ||
		config.SpreadsheetToken == "" || config.ProductTableId == "" {
		return Result{Message: "远程同步配置不完整"}, nil
	}

	records := exportable(s.store.Snapshot())
	if len(records) == 0 {
		return Result{Message: "没有可同步的数据"}, nil
	}

	table := s.newTable(config)
	if err := table.EnsureFields(ctx, config.ProductTableId, schema.ProductRemoteFields()); err != nil {
		return Result{}, fmt.Errorf("ensure product fields: %w", err)
	}

	existing, err := ExistingKeys(ctx, table, config.ProductTableId)
	if err != nil {
		slog.WarnContext(ctx, "fetching existing records failed, syncing everything", "err", err)
		existing = nil
	}
	fresh := FilterSynced(records, existing)
	span.SetAttributes(
		attribute.Int("custom.captured", len(records)),
		attribute.Int("custom.existing", len(existing)),
		attribute.Int("custom.fresh", len(fresh)),
	)
	if len(fresh) == 0 {
		return Result{Success: true, Message: "远程表已是最新"}, nil
	}

	productCount, err := table.BatchCreateRecords(
		ctx, config.ProductTableId,
		schema.RemoteRecords(fresh, s.store.Keyword()),
	)
	if err != nil {
		return Result{ProductCount: productCount}, fmt.Errorf("create product records: %w", err)
	}

	result := Result{
		Success:      true,
		ProductCount: productCount,
		Message:      fmt.Sprintf("同步完成，新增 %d 条记录", productCount),
	}

	if config.SellerTableId != "" {
		count, err := s.syncSellers(ctx, table, config.SellerTableId, fresh)
		if err != nil {
			// product records landed; report the partial result
			slog.WarnContext(ctx, "seller table sync failed", "err", err)
			result.Message = fmt.Sprintf("%s（卖家表同步失败）", result.Message)
			return result, nil
		}
		result.SellerCount = count
	}

	slog.InfoContext(ctx, "sync finished",
		"products", result.ProductCount,
		"sellers", result.SellerCount,
	)
	return result, nil
}

func (s *Service) syncSellers(ctx context.Context, table Table, tableId string, records []goofish.ProductRecord) (int, error) {
	if err := table.EnsureFields(ctx, tableId, schema.SellerRemoteFields); err != nil {
		return 0, err
	}
	rows := schema.SellerRemoteRecords(records)
	if len(rows) == 0 {
		return 0, nil
	}
	return table.BatchCreateRecords(ctx, tableId, rows)
}

// exportable drops records unusable as remote rows: no item id means no
// reconcile key, no title means a row nobody can act on.
func exportable(records []goofish.ProductRecord) []goofish.ProductRecord {
	var out []goofish.ProductRecord
	for _, record := range records {
		if record.ItemId == "" || record.Title == "" {
			continue
		}
		out = append(out, record)
	}
	return out
}
