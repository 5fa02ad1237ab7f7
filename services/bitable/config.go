package bitable

import (
	"errors"

	"goofish-backend/lib/kvstore"
)

// key inside the config KV namespace; capture resets never touch this
// namespace
const configKey = "feishuConfig"

// Config carries the remote table credentials and table ids. Sync is a
// no-op until Enabled is set and the credentials are filled in.
type Config struct {
	AppId            string `json:"appId"`
	AppSecret        string `json:"appSecret"`
	SpreadsheetToken string `json:"spreadsheetToken"`
	ProductTableId   string `json:"productTableId"`
	SellerTableId    string `json:"sellerTableId"`
	Enabled          bool   `json:"enabled"`
}

func LoadConfig(kv kvstore.Namespace) (Config, error) {
	var config Config
	err := kv.Get(configKey, &config)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Config{}, nil
	}
	return config, err
}

func SaveConfig(kv kvstore.Namespace, config Config) error {
	return kv.Set(configKey, config)
}
