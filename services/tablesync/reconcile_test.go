package tablesync

import (
	"context"
	"errors"
	"testing"

	"goofish-backend/lib/goofish"
	"goofish-backend/services/bitable"

	"github.com/stretchr/testify/require"
)

func TestExistingKeysPagination(t *testing.T) {
	table := &fakeTable{
		rows: map[string][][]bitable.RecordItem{
			"tbl1": {
				{
					{Fields: map[string]any{"商品ID": "1", "想要人数": float64(5), "价格": float64(100)}},
					{Fields: map[string]any{"商品ID": "2", "想要人数": float64(3), "价格": 50.5}},
				},
				{
					{Fields: map[string]any{"商品ID": "3", "想要人数": float64(0), "价格": float64(0)}},
					// no item id, ignored
					{Fields: map[string]any{"想要人数": float64(9)}},
				},
			},
		},
	}

	existing, err := ExistingKeys(context.Background(), table, "tbl1")
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{
		"1_5_100":  {},
		"2_3_50.5": {},
		"3_0_0":    {},
	}, existing)
}

func TestExistingKeysError(t *testing.T) {
	table := &fakeTable{listErr: errors.New("remote unavailable")}
	_, err := ExistingKeys(context.Background(), table, "tbl1")
	require.Error(t, err)
}

func TestRemoteKeyTextSegments(t *testing.T) {
	key, ok := remoteKey(map[string]any{
		"商品ID": []any{map[string]any{"text": "887711"}},
		"想要人数": float64(56),
		"价格":   float64(2580),
	})
	require.True(t, ok)
	require.Equal(t, "887711_56_2580", key)
}

func TestRemoteKeyStringPrice(t *testing.T) {
	key, ok := remoteKey(map[string]any{
		"商品ID": "1",
		"价格":   "128.5",
	})
	require.True(t, ok)
	require.Equal(t, "1_0_128.5", key)
}

// the reconcile key uses the parsed numeric price, so two records with the
// same number but different display strings collide here even though the
// capture dedup key keeps them apart
func TestFilterSynced(t *testing.T) {
	records := []goofish.ProductRecord{
		{ItemId: "1", WantCnt: 5, Price: "¥100", PriceNumber: 100},
		{ItemId: "1", WantCnt: 5, Price: "100元", PriceNumber: 100},
		{ItemId: "2", WantCnt: 3, Price: "¥50.50", PriceNumber: 50.5},
	}

	existing := map[string]struct{}{"1_5_100": {}}
	fresh := FilterSynced(records, existing)
	require.Len(t, fresh, 1)
	require.Equal(t, "2", fresh[0].ItemId)

	// nil set passes everything through
	require.Len(t, FilterSynced(records, nil), 3)
}
