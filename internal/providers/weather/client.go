package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sandevgo/nimbus/internal/config"
	"github.com/sandevgo/nimbus/internal/core"
	"github.com/sandevgo/nimbus/pkg/log"
	"github.com/sandevgo/nimbus/pkg/retry"
)

const maxForecastDays = 5

// Client talks to the OpenWeather HTTP API. All values are fetched in metric
// units; unit conversion happens at answer composition time.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retrier *retry.Retrier
}

func NewClient(cfg *config.WeatherConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2.0,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Jitter:        50 * time.Millisecond,
		}),
	}
}

func (c *Client) Current(ctx context.Context, city string) (*Current, error) {
	var payload struct {
		Name string `json:"name"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := c.get(ctx, "/data/2.5/weather", city, &payload); err != nil {
		return nil, err
	}

	description := "no description"
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		description = payload.Weather[0].Description
	}
	name := payload.Name
	if name == "" {
		name = city
	}

	return &Current{
		City:         name,
		TemperatureC: round1(payload.Main.Temp),
		FeelsLikeC:   round1(payload.Main.FeelsLike),
		Humidity:     payload.Main.Humidity,
		WindSpeedMPS: round1(payload.Wind.Speed),
		Description:  description,
	}, nil
}

func (c *Client) Forecast(ctx context.Context, city string, days int) (*Forecast, error) {
	if days < 1 {
		days = 1
	}
	if days > maxForecastDays {
		days = maxForecastDays
	}

	var payload struct {
		City struct {
			Name string `json:"name"`
		} `json:"city"`
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				TempMin float64 `json:"temp_min"`
				TempMax float64 `json:"temp_max"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := c.get(ctx, "/data/2.5/forecast", city, &payload); err != nil {
		return nil, err
	}

	name := payload.City.Name
	if name == "" {
		name = city
	}

	// The 5-day endpoint returns 3h slots; aggregate them per calendar day.
	type dayAgg struct {
		min, max     float64
		descriptions map[string]int
	}
	byDate := make(map[string]*dayAgg)
	var order []string

	for _, slot := range payload.List {
		if len(slot.DtTxt) < 10 {
			continue
		}
		date := slot.DtTxt[:10]
		agg, ok := byDate[date]
		if !ok {
			agg = &dayAgg{min: slot.Main.TempMin, max: slot.Main.TempMax, descriptions: map[string]int{}}
			byDate[date] = agg
			order = append(order, date)
		}
		agg.min = math.Min(agg.min, slot.Main.TempMin)
		agg.max = math.Max(agg.max, slot.Main.TempMax)
		if len(slot.Weather) > 0 {
			agg.descriptions[slot.Weather[0].Description]++
		}
	}

	forecast := &Forecast{City: name}
	for _, date := range order {
		if len(forecast.Days) >= days {
			break
		}
		agg := byDate[date]
		forecast.Days = append(forecast.Days, ForecastDay{
			Date:        date,
			TempMinC:    round1(agg.min),
			TempMaxC:    round1(agg.max),
			Description: dominantDescription(agg.descriptions),
		})
	}

	if len(forecast.Days) == 0 {
		return nil, fmt.Errorf("%w: empty forecast for %q", ErrUnavailable, city)
	}
	return forecast, nil
}

func (c *Client) get(ctx context.Context, path, city string, out any) error {
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}.Encode())

	var body []byte
	err := c.retrier.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", core.NimbusUserAgent)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return retry.Unrecoverable(fmt.Errorf("%w: %q", ErrCityNotFound, city))
		case resp.StatusCode == http.StatusTooManyRequests:
			return retry.Unrecoverable(ErrRateLimited)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
		default:
			return retry.Unrecoverable(fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode))
		}
	})
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Str("city", city).Str("path", path).Msg("weather request failed")
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

func dominantDescription(counts map[string]int) string {
	if len(counts) == 0 {
		return "no description"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys[0]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
