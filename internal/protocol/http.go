package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/models"
)

// HTTPClientConfig configures the REST protocol client.
type HTTPClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

type httpClient struct {
	client *resty.Client
	logger *logger.Logger

	results chan models.Result
	wg      sync.WaitGroup

	mu     sync.RWMutex
	token  string
	closed bool
}

// NewHTTPClient constructs a resty-based [Client] speaking the table server's
// REST protocol. Every request runs on its own goroutine and its outcome is
// delivered on the result channel; HTTP is therefore always "connected" until
// Close is called.
func NewHTTPClient(cfg HTTPClientConfig, log *logger.Logger) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if !strings.Contains(cfg.BaseURL, "://") {
		cfg.BaseURL = "http://" + cfg.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &httpClient{
		client:  cli,
		logger:  log,
		results: make(chan models.Result, 64),
		token:   strings.TrimSpace(cfg.Token),
	}
}

func (h *httpClient) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

func (h *httpClient) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Connected implements Client. The REST transport has no persistent
// connection, so it accepts requests until Close.
func (h *httpClient) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.closed
}

func (h *httpClient) Results() <-chan models.Result {
	return h.results
}

// Close stops accepting requests, waits for in-flight ones to emit their
// results, then closes the result channel. Callers must keep draining
// Results until it is closed.
func (h *httpClient) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.wg.Wait()
	close(h.results)
	return nil
}

func (h *httpClient) Save(ctx context.Context, req models.SaveRequest) (models.OpID, error) {
	return h.dispatch(models.ResultSave, req.TempID, func() models.Result {
		resp, err := h.authedRequest(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			Post("/api/entities/")
		if err != nil {
			return models.Result{Err: fmt.Errorf("save request: %w", err)}
		}
		if err = mapHTTPError(resp); err != nil {
			return models.Result{Err: err}
		}

		var sr models.SaveResult
		if err = json.Unmarshal(resp.Body(), &sr); err != nil {
			return models.Result{Err: fmt.Errorf("decode save response: %w", err)}
		}
		return models.Result{Save: &sr}
	})
}

func (h *httpClient) Update(ctx context.Context, req models.UpdateRequest) (models.OpID, error) {
	return h.dispatch(models.ResultUpdate, req.EntityID, func() models.Result {
		resp, err := h.authedRequest(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(req).
			Put("/api/entities/" + req.EntityID)
		if err != nil {
			return models.Result{Err: fmt.Errorf("update request: %w", err)}
		}

		if resp.StatusCode() == http.StatusConflict {
			var body struct {
				CurrentVersion int64 `json:"current_version"`
			}
			if err = json.Unmarshal(resp.Body(), &body); err != nil {
				return models.Result{Err: fmt.Errorf("decode conflict response: %w", err)}
			}
			return models.Result{Update: &models.UpdateResult{Conflict: &models.VersionConflict{
				EntityID:       req.EntityID,
				ClaimedVersion: req.ExpectedVersion,
				CurrentVersion: body.CurrentVersion,
			}}}
		}

		if err = mapHTTPError(resp); err != nil {
			return models.Result{Err: err}
		}

		var ur models.UpdateResult
		if err = json.Unmarshal(resp.Body(), &ur); err != nil {
			return models.Result{Err: fmt.Errorf("decode update response: %w", err)}
		}
		return models.Result{Update: &ur}
	})
}

func (h *httpClient) Delete(ctx context.Context, req models.DeleteRequest) (models.OpID, error) {
	return h.dispatch(models.ResultDelete, req.EntityID, func() models.Result {
		resp, err := h.authedRequest(ctx).Delete("/api/entities/" + req.EntityID)
		if err != nil {
			return models.Result{Err: fmt.Errorf("delete request: %w", err)}
		}
		if err = mapHTTPError(resp); err != nil {
			return models.Result{Err: err}
		}
		return models.Result{Delete: &models.DeleteResult{}}
	})
}

func (h *httpClient) Load(ctx context.Context, entityID string) (models.OpID, error) {
	return h.dispatch(models.ResultLoad, entityID, func() models.Result {
		resp, err := h.authedRequest(ctx).Get("/api/entities/" + entityID)
		if err != nil {
			return models.Result{Err: fmt.Errorf("load request: %w", err)}
		}
		if err = mapHTTPError(resp); err != nil {
			return models.Result{Err: err}
		}

		var entity models.Entity
		if err = json.Unmarshal(resp.Body(), &entity); err != nil {
			return models.Result{Err: fmt.Errorf("decode load response: %w", err)}
		}
		return models.Result{Load: &models.LoadResult{Entity: entity}}
	})
}

func (h *httpClient) List(ctx context.Context) (models.OpID, error) {
	return h.dispatch(models.ResultList, "", func() models.Result {
		resp, err := h.authedRequest(ctx).Get("/api/entities/")
		if err != nil {
			return models.Result{Err: fmt.Errorf("list request: %w", err)}
		}
		if err = mapHTTPError(resp); err != nil {
			return models.Result{Err: err}
		}

		var entities []models.Entity
		if err = json.Unmarshal(resp.Body(), &entities); err != nil {
			return models.Result{Err: fmt.Errorf("decode list response: %w", err)}
		}
		return models.Result{List: &models.ListResult{Entities: entities}}
	})
}

// dispatch registers an in-flight request, runs do on its own goroutine, and
// stamps the correlation id onto the emitted result.
func (h *httpClient) dispatch(kind models.ResultKind, entityID string, do func() models.Result) (models.OpID, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return "", ErrNotConnected
	}
	h.wg.Add(1)
	h.mu.RUnlock()

	opID := models.OpID(uuid.NewString())
	go func() {
		defer h.wg.Done()

		res := do()
		res.OpID = opID
		res.Kind = kind
		if res.EntityID == "" {
			res.EntityID = entityID
		}
		if res.Err != nil {
			h.logger.Debug().
				Str("op_id", string(opID)).
				Str("kind", string(kind)).
				Err(res.Err).
				Msg("request failed")
		}
		h.results <- res
	}()

	return opID, nil
}

func (h *httpClient) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

func mapHTTPError(resp *resty.Response) error {
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}

	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(resp.StatusCode())
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	}

	return fmt.Errorf("%w: http %d: %s", ErrRejected, resp.StatusCode(), body)
}
