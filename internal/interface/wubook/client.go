package wubook

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"roomsync-service/internal/domain/entity"
	"roomsync-service/internal/domain/repository"
	"roomsync-service/pkg/logger"

	"github.com/go-resty/resty/v2"
)

// Client talks to the WuBook channel manager API. Every failure is returned
// as an entity.RemoteError so callers can tell transient from permanent.
type Client struct {
	http   *resty.Client
	logger logger.Logger
}

// NewClient creates a new WuBook client
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   client,
		logger: log,
	}
}

var _ repository.ChannelClient = (*Client)(nil)

type apiEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type availabilityItem struct {
	RoomCode  string   `json:"roomCode"`
	Date      string   `json:"date"`
	Available bool     `json:"available"`
	Rate      *float64 `json:"rate,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

type restrictionItem struct {
	RoomCode  string `json:"roomCode"`
	Kind      string `json:"kind"`
	Value     int    `json:"value"`
	Flag      bool   `json:"flag"`
	DateFrom  string `json:"dateFrom"`
	DateTo    string `json:"dateTo"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type rateItem struct {
	RoomCode  string  `json:"roomCode"`
	Date      string  `json:"date"`
	Rate      float64 `json:"rate"`
	UpdatedAt string  `json:"updatedAt,omitempty"`
}

const dateLayout = "2006-01-02"

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// classify maps a transport or HTTP failure to a RemoteError
func classify(resp *resty.Response, err error, env *apiEnvelope) error {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &entity.RemoteError{Code: entity.RemoteErrTimeout, Message: err.Error(), Transient: true}
		}
		return &entity.RemoteError{Code: entity.RemoteErrServer, Message: err.Error(), Transient: true}
	}

	status := resp.StatusCode()
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &entity.RemoteError{Code: entity.RemoteErrAuth, Message: env.Error.Message, Status: status, Transient: false}
	case status == http.StatusNotFound:
		return &entity.RemoteError{Code: entity.RemoteErrNotFound, Message: env.Error.Message, Status: status, Transient: false}
	case status == http.StatusTooManyRequests:
		return &entity.RemoteError{Code: entity.RemoteErrRateLimit, Message: env.Error.Message, Status: status, Transient: true}
	case status >= http.StatusInternalServerError:
		return &entity.RemoteError{Code: entity.RemoteErrServer, Message: env.Error.Message, Status: status, Transient: true}
	case status >= http.StatusBadRequest:
		return &entity.RemoteError{Code: entity.RemoteErrBadInput, Message: env.Error.Message, Status: status, Transient: false}
	}
	if !env.Success {
		code := env.Error.Code
		if code == "" {
			code = entity.RemoteErrServer
		}
		return &entity.RemoteError{Code: code, Message: env.Error.Message, Status: status, Transient: false}
	}
	return nil
}

// FetchAvailability pulls room-night state for the property
func (c *Client) FetchAvailability(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time, roomCodes []string) ([]entity.RemoteAvailability, error) {
	var result struct {
		apiEnvelope
		Data []availabilityItem `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-WuBook-Key", creds.APIKey).
		SetBody(map[string]interface{}{
			"propertyCode": creds.PropertyCode,
			"dateFrom":     from.Format(dateLayout),
			"dateTo":       to.Format(dateLayout),
			"roomCodes":    roomCodes,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/availability/fetch")

	if cerr := classify(resp, err, &result.apiEnvelope); cerr != nil {
		return nil, cerr
	}

	items := make([]entity.RemoteAvailability, len(result.Data))
	for i, it := range result.Data {
		items[i] = entity.RemoteAvailability{
			RoomCode:  it.RoomCode,
			Date:      parseDate(it.Date),
			Available: it.Available,
			Rate:      it.Rate,
			UpdatedAt: parseTimestamp(it.UpdatedAt),
		}
	}

	c.logger.Debug("Fetched remote availability", "items", len(items))
	return items, nil
}

// PushAvailability pushes one room-night to the channel
func (c *Client) PushAvailability(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteAvailability) error {
	var result struct {
		apiEnvelope
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-WuBook-Key", creds.APIKey).
		SetBody(map[string]interface{}{
			"propertyCode": creds.PropertyCode,
			"item": availabilityItem{
				RoomCode:  item.RoomCode,
				Date:      item.Date.Format(dateLayout),
				Available: item.Available,
				Rate:      item.Rate,
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/availability/update")

	return classify(resp, err, &result.apiEnvelope)
}

// FetchRestrictions pulls booking rules for the property
func (c *Client) FetchRestrictions(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRestriction, error) {
	var result struct {
		apiEnvelope
		Data []restrictionItem `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-WuBook-Key", creds.APIKey).
		SetBody(map[string]interface{}{
			"propertyCode": creds.PropertyCode,
			"dateFrom":     from.Format(dateLayout),
			"dateTo":       to.Format(dateLayout),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/restrictions/fetch")

	if cerr := classify(resp, err, &result.apiEnvelope); cerr != nil {
		return nil, cerr
	}

	items := make([]entity.RemoteRestriction, len(result.Data))
	for i, it := range result.Data {
		items[i] = entity.RemoteRestriction{
			RoomCode:  it.RoomCode,
			Kind:      it.Kind,
			Value:     it.Value,
			Flag:      it.Flag,
			DateFrom:  parseDate(it.DateFrom),
			DateTo:    parseDate(it.DateTo),
			UpdatedAt: parseTimestamp(it.UpdatedAt),
		}
	}
	return items, nil
}

// PushRestriction pushes one booking rule to the channel
func (c *Client) PushRestriction(ctx context.Context, creds entity.ChannelCredentials, item entity.RemoteRestriction) error {
	var result struct {
		apiEnvelope
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-WuBook-Key", creds.APIKey).
		SetBody(map[string]interface{}{
			"propertyCode": creds.PropertyCode,
			"item": restrictionItem{
				RoomCode: item.RoomCode,
				Kind:     item.Kind,
				Value:    item.Value,
				Flag:     item.Flag,
				DateFrom: item.DateFrom.Format(dateLayout),
				DateTo:   item.DateTo.Format(dateLayout),
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/restrictions/update")

	return classify(resp, err, &result.apiEnvelope)
}

// FetchRates pulls nightly prices for the property
func (c *Client) FetchRates(ctx context.Context, creds entity.ChannelCredentials, from, to time.Time) ([]entity.RemoteRate, error) {
	var result struct {
		apiEnvelope
		Data []rateItem `json:"data"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-WuBook-Key", creds.APIKey).
		SetBody(map[string]interface{}{
			"propertyCode": creds.PropertyCode,
			"dateFrom":     from.Format(dateLayout),
			"dateTo":       to.Format(dateLayout),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/rates/fetch")

	if cerr := classify(resp, err, &result.apiEnvelope); cerr != nil {
		return nil, cerr
	}

	items := make([]entity.RemoteRate, len(result.Data))
	for i, it := range result.Data {
		items[i] = entity.RemoteRate{
			RoomCode:  it.RoomCode,
			Date:      parseDate(it.Date),
			Rate:      it.Rate,
			UpdatedAt: parseTimestamp(it.UpdatedAt),
		}
	}
	return items, nil
}
