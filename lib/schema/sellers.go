package schema

import "goofish-backend/lib/goofish"

type Seller struct {
	Nick string `json:"nick"`
	City string `json:"city"`
}

// Sellers projects records down to distinct sellers, keyed by nick alone.
// The first occurrence wins (including its city); records with an empty
// nick are dropped.
func Sellers(records []goofish.ProductRecord) []Seller {
	var out []Seller
	seen := map[string]struct{}{}

	for _, record := range records {
		if record.SellerNick == "" {
			continue
		}
		if _, ok := seen[record.SellerNick]; ok {
			continue
		}
		seen[record.SellerNick] = struct{}{}
		out = append(out, Seller{Nick: record.SellerNick, City: record.SellerCity})
	}
	return out
}

// SellerRemoteRecords renders the seller projection as remote-table rows.
func SellerRemoteRecords(records []goofish.ProductRecord) []RemoteRecord {
	sellers := Sellers(records)
	out := make([]RemoteRecord, 0, len(sellers))
	for _, seller := range sellers {
		out = append(out, RemoteRecord{Fields: map[string]any{
			SellerNickField: seller.Nick,
			SellerCityField: seller.City,
		}})
	}
	return out
}
