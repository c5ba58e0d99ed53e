package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ditch-app/billing-service/internal/domain"
	"github.com/ditch-app/billing-service/pkg/logger"
)

const subscriptionsTable = "subscriptions"

// SupabaseConfig доступ к PostgREST API проекта Supabase
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	HTTPTimeout    time.Duration
}

// SupabaseSubscriptionStore реализует SubscriptionStore через REST API Supabase
// с сервисным ключом (в обход RLS).
type SupabaseSubscriptionStore struct {
	baseURL    string
	key        string
	httpClient *http.Client
	log        *logger.Logger
}

type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// NewSupabaseSubscriptionStore создает хранилище поверх Supabase REST
func NewSupabaseSubscriptionStore(cfg SupabaseConfig, log *logger.Logger) *SupabaseSubscriptionStore {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SupabaseSubscriptionStore{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + subscriptionsTable,
		key:        cfg.ServiceRoleKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (r *SupabaseSubscriptionStore) newRequest(ctx context.Context, method string, query url.Values, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+"?"+query.Encode(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", r.key)
	req.Header.Set("Authorization", "Bearer "+r.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (r *SupabaseSubscriptionStore) send(req *http.Request) (int, []byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// UpdateByUserID выполняет PATCH /rest/v1/subscriptions?user_id=eq.<id>
func (r *SupabaseSubscriptionStore) UpdateByUserID(ctx context.Context, userID string, upd domain.SubscriptionUpdate) (int64, error) {
	body, err := json.Marshal(upd)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to marshal subscription update: %w", err)
	}

	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "id")

	req, err := r.newRequest(ctx, http.MethodPatch, query, body)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to build supabase request: %w", err)
	}
	req.Header.Set("Prefer", "return=representation")

	status, data, err := r.send(req)
	if err != nil {
		r.log.Errorw("Supabase update request failed", "error", err, "userID", userID)
		return 0, fmt.Errorf("repository: supabase update failed: %w", err)
	}
	if status < 200 || status >= 300 {
		perr := parsePostgrestError(data)
		if perr.Code == pgInvalidTextRepresentation {
			r.log.Warnw("User id is not a valid UUID, nothing to update", "userID", userID)
			return 0, nil
		}
		r.log.Errorw("Supabase update returned error", "status", status, "code", perr.Code, "message", perr.Message, "userID", userID)
		return 0, fmt.Errorf("repository: supabase update failed with status %d: %s", status, perr.Message)
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return 0, fmt.Errorf("repository: failed to decode supabase response: %w", err)
		}
	}

	r.log.Debugw("Successfully updated subscriptions via Supabase", "userID", userID, "rowsAffected", len(rows))
	return int64(len(rows)), nil
}

// GetByUserID выполняет GET /rest/v1/subscriptions?user_id=eq.<id>&order=created_at.desc&limit=1
func (r *SupabaseSubscriptionStore) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+userID)
	query.Set("select", "*")
	query.Set("order", "created_at.desc")
	query.Set("limit", "1")

	req, err := r.newRequest(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build supabase request: %w", err)
	}

	status, data, err := r.send(req)
	if err != nil {
		r.log.Errorw("Supabase select request failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("repository: supabase select failed: %w", err)
	}
	if status < 200 || status >= 300 {
		perr := parsePostgrestError(data)
		if perr.Code == pgInvalidTextRepresentation {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: supabase select failed with status %d: %s", status, perr.Message)
	}

	var subs []domain.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode supabase response: %w", err)
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return &subs[0], nil
}

func parsePostgrestError(data []byte) postgrestError {
	var perr postgrestError
	if err := json.Unmarshal(data, &perr); err != nil || perr.Message == "" {
		perr.Message = strings.TrimSpace(string(data))
	}
	return perr
}
