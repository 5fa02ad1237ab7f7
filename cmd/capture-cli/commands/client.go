package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

func newClient() *resty.Client {
	client := resty.New()
	client.SetBaseURL(*baseUrl)
	client.SetTimeout(time.Minute * 5)
	return client
}

func getJson(ctx context.Context, path string, out any) error {
	res, err := newClient().R().SetContext(ctx).Get(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("GET %s: %s: %s", path, res.Status(), res.Body())
	}
	return json.Unmarshal(res.Body(), out)
}

func postJson(ctx context.Context, path string, body, out any) error {
	res, err := newClient().R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("POST %s: %s: %s", path, res.Status(), res.Body())
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res.Body(), out)
}
