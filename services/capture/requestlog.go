package capture

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"goofish-backend/lib/goofish"
)

// RequestLog records one intercepted request regardless of whether it
// yielded new records, so a capture session can be audited afterwards.
type RequestLog struct {
	Timestamp   int64             `json:"timestamp"`
	CaptureTime string            `json:"captureTime"`
	Url         string            `json:"url"`
	Method      string            `json:"method"`
	BaseUrl     string            `json:"baseUrl"`
	UrlParams   map[string]string `json:"urlParams"`
	RequestBody string            `json:"requestBody"`
	ItemCount   int               `json:"itemCount"`
}

func newRequestLog(env goofish.Envelope, itemCount int) RequestLog {
	log := RequestLog{
		Timestamp:   env.Timestamp,
		CaptureTime: goofish.FormatTime(env.Timestamp),
		Url:         env.Url,
		Method:      env.Method,
		RequestBody: string(env.RequestBody),
		ItemCount:   itemCount,
	}
	if log.Method == "" {
		log.Method = "GET"
	}

	parsed, err := url.Parse(goofish.NormalizeUrl(env.Url))
	if err != nil {
		return log
	}
	log.BaseUrl = parsed.Scheme + "://" + parsed.Host + parsed.Path
	log.UrlParams = map[string]string{}
	for key, values := range parsed.Query() {
		if len(values) > 0 {
			log.UrlParams[key] = values[0]
		}
	}
	return log
}

// RequestLogs returns a copy of the request log in capture order.
func (s *Store) RequestLogs() []RequestLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RequestLog, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestLogCSV renders the request log for export. Unlike the product
// CSV this is not schema-registry driven; the columns describe requests,
// not listings.
func (s *Store) RequestLogCSV() (string, error) {
	logs := s.RequestLogs()
	if len(logs) == 0 {
		return "", fmt.Errorf("request log csv: no requests captured")
	}

	var b strings.Builder
	b.WriteString("序号,请求时间,请求方法,请求URL,基础URL,URL参数,请求体,返回商品数\n")
	for i, log := range logs {
		params := make([]string, 0, len(log.UrlParams))
		for key, value := range log.UrlParams {
			params = append(params, key+"="+value)
		}
		sort.Strings(params)

		cells := []string{
			strconv.Itoa(i + 1),
			quote(log.CaptureTime),
			quote(log.Method),
			quote(log.Url),
			quote(log.BaseUrl),
			quote(strings.Join(params, "&")),
			quote(log.RequestBody),
			strconv.Itoa(log.ItemCount),
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
