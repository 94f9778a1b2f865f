package coretools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/harun/neuron/pkg/tool"
)

// WeatherToolName is the name advertised to the model
const WeatherToolName = "weather_gov_query"

// DefaultWeatherBaseURL is the National Weather Service API
const DefaultWeatherBaseURL = "https://api.weather.gov"

const weatherUserAgent = "neuron (github.com/harun/neuron)"

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []struct {
			Name             string `json:"name"`
			DetailedForecast string `json:"detailedForecast"`
		} `json:"periods"`
	} `json:"properties"`
}

// WeatherGov returns a tool that looks up the forecast for a coordinate
// through the weather.gov points and forecast endpoints.
func WeatherGov(client *http.Client, baseURL string) *tool.Tool {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultWeatherBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	return mustTool(WeatherToolName, "Fetches real-time weather data from weather.gov.", &tool.Config{
		Properties: map[string]tool.Property{
			"latitude":     {Type: "number|string", Description: "latitude of the location where weather data is required", Required: true},
			"longitude":    {Type: "number|string", Description: "longitude of the location where weather data is required", Required: true},
			"locationName": {Type: "string", Description: "name of the location where weather data is required", Required: true},
		},
	}, func(ctx context.Context, input map[string]interface{}, secrets map[string]string) (string, error) {
		lat := coordinate(input["latitude"])
		lon := coordinate(input["longitude"])
		location, _ := input["locationName"].(string)

		var points pointsResponse
		if err := getJSON(ctx, client, fmt.Sprintf("%s/points/%s,%s", baseURL, lat, lon), &points); err != nil {
			return "", fmt.Errorf("points lookup failed: %w", err)
		}
		if points.Properties.Forecast == "" {
			return "", fmt.Errorf("no forecast available for %s,%s", lat, lon)
		}

		var forecast forecastResponse
		if err := getJSON(ctx, client, points.Properties.Forecast, &forecast); err != nil {
			return "", fmt.Errorf("forecast lookup failed: %w", err)
		}
		if len(forecast.Properties.Periods) == 0 {
			return "", fmt.Errorf("forecast for %s has no periods", location)
		}

		return fmt.Sprintf("Weather forecast in %s is %s", location, forecast.Properties.Periods[0].DetailedForecast), nil
	})
}

// coordinate renders a latitude or longitude sent as a JSON string or number
func coordinate(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", weatherUserAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
