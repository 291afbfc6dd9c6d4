// Package ancillary предоставляет клиент для внешней кассовой системы ресторана (POS),
// которая хранит дополнительные услуги, оказанные за время проживания.
package ancillary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalanadidulanga/hotel-management-system-sub007/internal/model"
)

// Client инкапсулирует HTTP-взаимодействие с кассовой системой.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Charge описывает ответ кассовой системы по одной позиции.
type Charge struct {
	Source      string          `json:"source"`
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// RateLimitedError возвращается, если кассовая система попросила повторить запрос позже.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("ancillary system rate limited, retry after %s", e.RetryAfter)
}

// NewClient создаёт HTTP-клиент для обращения к кассовой системе по указанному адресу.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// LineItems запрашивает дополнительные услуги бронирования.
func (c *Client) LineItems(ctx context.Context, reservationID int64) ([]model.LineItem, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("ancillary client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/reservations/%d/charges", base, reservationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusNotFound:
		return nil, nil
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	default:
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var charges []Charge
	if err := json.NewDecoder(resp.Body).Decode(&charges); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]model.LineItem, 0, len(charges))
	for _, ch := range charges {
		if ch.Amount.IsNegative() {
			return nil, fmt.Errorf("charge %q has negative amount %s", ch.Reference, ch.Amount)
		}
		items = append(items, model.LineItem{
			Source:      ch.Source,
			Reference:   ch.Reference,
			Description: ch.Description,
			Amount:      ch.Amount,
		})
	}

	return items, nil
}
