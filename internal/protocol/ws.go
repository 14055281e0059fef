package protocol

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vttkit/sheetsync/internal/logger"
	"github.com/vttkit/sheetsync/models"
)

// WSClientConfig configures the WebSocket protocol client.
type WSClientConfig struct {
	// URL is the WebSocket endpoint (e.g. "ws://host:port/sync").
	URL string
	// Token is attached as a bearer Authorization header during the
	// handshake.
	Token string
	// HandshakeTimeout bounds the dial; defaults to 15s.
	HandshakeTimeout time.Duration
}

// wireFrame is the JSON envelope exchanged over the socket, for both
// directions. Outbound frames carry one of the request fields; inbound frames
// carry one of the result fields or an error.
type wireFrame struct {
	OpID     models.OpID       `json:"op_id"`
	Kind     models.ResultKind `json:"kind"`
	EntityID string            `json:"entity_id,omitempty"`

	SaveReq   *models.SaveRequest   `json:"save_req,omitempty"`
	UpdateReq *models.UpdateRequest `json:"update_req,omitempty"`
	DeleteReq *models.DeleteRequest `json:"delete_req,omitempty"`

	Save   *models.SaveResult   `json:"save,omitempty"`
	Update *models.UpdateResult `json:"update,omitempty"`
	Delete *models.DeleteResult `json:"delete,omitempty"`
	Load   *models.LoadResult   `json:"load,omitempty"`
	List   *models.ListResult   `json:"list,omitempty"`

	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const wireErrorUnauthorized = "unauthorized"

type wsClient struct {
	conn   *websocket.Conn
	logger *logger.Logger

	results   chan models.Result
	closeOnce sync.Once

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu        sync.RWMutex
	token     string
	connected bool
}

// NewWSClient dials the table server's WebSocket endpoint and returns a
// [Client] that correlates frames by op id. The result channel is closed when
// the connection goes down, whether by Close or by a read failure.
func NewWSClient(cfg WSClientConfig, log *logger.Logger) (Client, error) {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 15 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	header := http.Header{}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := dialer.Dial(cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: %w", cfg.URL, ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	c := &wsClient{
		conn:      conn,
		logger:    log,
		results:   make(chan models.Result, 64),
		token:     strings.TrimSpace(cfg.Token),
		connected: true,
	}

	go c.readLoop()

	return c, nil
}

// SetToken stores the bearer token. The WebSocket handshake has already
// happened, so the new token takes effect on the next reconnect; it is kept
// here so callers can treat all Client implementations uniformly.
func (c *wsClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

func (c *wsClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *wsClient) Results() <-chan models.Result {
	return c.results
}

// Close tears down the socket. The read loop notices the closed connection
// and closes the result channel.
func (c *wsClient) Close() error {
	c.markDisconnected()
	return c.conn.Close()
}

func (c *wsClient) Save(ctx context.Context, req models.SaveRequest) (models.OpID, error) {
	return c.send(ctx, wireFrame{
		Kind:     models.ResultSave,
		EntityID: req.TempID,
		SaveReq:  &req,
	})
}

func (c *wsClient) Update(ctx context.Context, req models.UpdateRequest) (models.OpID, error) {
	return c.send(ctx, wireFrame{
		Kind:      models.ResultUpdate,
		EntityID:  req.EntityID,
		UpdateReq: &req,
	})
}

func (c *wsClient) Delete(ctx context.Context, req models.DeleteRequest) (models.OpID, error) {
	return c.send(ctx, wireFrame{
		Kind:      models.ResultDelete,
		EntityID:  req.EntityID,
		DeleteReq: &req,
	})
}

func (c *wsClient) Load(ctx context.Context, entityID string) (models.OpID, error) {
	return c.send(ctx, wireFrame{
		Kind:     models.ResultLoad,
		EntityID: entityID,
	})
}

func (c *wsClient) List(ctx context.Context) (models.OpID, error) {
	return c.send(ctx, wireFrame{
		Kind: models.ResultList,
	})
}

// send writes one frame under the write mutex. A write failure is a
// synchronous transport error: the caller gets ErrNotConnected and no result
// will arrive for the frame.
func (c *wsClient) send(ctx context.Context, frame wireFrame) (models.OpID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !c.Connected() {
		return "", ErrNotConnected
	}

	frame.OpID = models.OpID(uuid.NewString())

	c.writeMu.Lock()
	err := c.conn.WriteJSON(frame)
	c.writeMu.Unlock()
	if err != nil {
		c.markDisconnected()
		return "", fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	return frame.OpID, nil
}

func (c *wsClient) readLoop() {
	defer c.closeOnce.Do(func() { close(c.results) })

	for {
		var frame wireFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.markDisconnected()
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		c.results <- frameToResult(frame)
	}
}

func frameToResult(frame wireFrame) models.Result {
	res := models.Result{
		OpID:     frame.OpID,
		Kind:     frame.Kind,
		EntityID: frame.EntityID,
		Save:     frame.Save,
		Update:   frame.Update,
		Delete:   frame.Delete,
		Load:     frame.Load,
		List:     frame.List,
	}

	if frame.Error != nil {
		if frame.Error.Code == wireErrorUnauthorized {
			res.Err = fmt.Errorf("%w: %s", ErrUnauthorized, frame.Error.Message)
		} else {
			res.Err = fmt.Errorf("%w: %s: %s", ErrRejected, frame.Error.Code, frame.Error.Message)
		}
	}

	return res
}

func (c *wsClient) markDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}
