// internal/geocode/nominatim.go
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

var ErrNoResults = errors.New("geocode: no results")

// Result — одна позиция из ответа поиска. Nominatim отдаёт координаты
// строками.
type Result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client ищет места через Nominatim-совместимый endpoint. Точность
// геокодирования — забота внешнего сервиса, мы берём первый результат.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			// Nominatim требует осмысленный User-Agent
			SetHeader("User-Agent", "alerta-vecinal/1.0"),
	}
}

// Search возвращает координаты первого результата по текстовому запросу.
func (c *Client) Search(ctx context.Context, query string) (lat, lng float64, err error) {
	var results []Result
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"limit":  "1",
			"q":      query,
		}).
		SetResult(&results).
		Get("")
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request: %w", err)
	}
	if resp.IsError() {
		return 0, 0, fmt.Errorf("geocode: status %d", resp.StatusCode())
	}
	if len(results) == 0 {
		return 0, 0, ErrNoResults
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: bad latitude %q: %w", results[0].Lat, err)
	}
	lng, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: bad longitude %q: %w", results[0].Lon, err)
	}
	return lat, lng, nil
}
