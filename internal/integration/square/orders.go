package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cenkalti/backoff/v4"

	"github.com/ditch-app/billing-service/internal/domain"
)

const operationRetrieveOrder = "retrieve_order"

type retrieveOrderResponse struct {
	Order  *Order     `json:"order"`
	Errors []APIError `json:"errors"`
}

// RetrieveOrder получает заказ по ID.
// Сетевые ошибки, 429 и 5xx повторяются с экспоненциальной задержкой в пределах LookupMaxElapsed,
// остальные 4xx возвращаются сразу.
func (c *Client) RetrieveOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, errors.New("square: order id is empty")
	}
	path := "/v2/orders/" + url.PathEscape(orderID)

	var order *Order
	attempt := 0
	operation := func() error {
		attempt++
		status, body, err := c.do(ctx, operationRetrieveOrder, http.MethodGet, path, nil)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			c.log.Warnw("Square order lookup failed, will retry", "orderID", orderID, "attempt", attempt, "error", err)
			return err
		}

		if !isSuccess(status) {
			message := firstErrorDetail(body)
			if message == "" {
				message = http.StatusText(status)
			}
			perr := domain.NewProviderError(serviceName, status, message, nil)
			if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
				c.log.Warnw("Square order lookup returned retryable status", "orderID", orderID, "attempt", attempt, "status", statusLabel(status))
				return perr
			}
			return backoff.Permanent(perr)
		}

		var out retrieveOrderResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("square: failed to decode order response: %w", err))
		}
		if out.Order == nil {
			return backoff.Permanent(fmt.Errorf("square: order %s missing in response", orderID))
		}
		order = out.Order
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.LookupInitialBackoff
	bo.MaxInterval = c.cfg.LookupMaxElapsed
	bo.MaxElapsedTime = c.cfg.LookupMaxElapsed
	bo.Reset()

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return order, nil
}
