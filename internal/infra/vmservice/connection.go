package vmservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"flutterctl/internal/domain"
)

// notificationBuffer bounds the event channel. The VM service streams events
// the CLI usually does not consume; overflow is dropped, not blocked on.
const notificationBuffer = 64

// Connection speaks JSON-RPC 2.0 over one websocket to a Dart VM service.
// A single reader goroutine demultiplexes responses (routed to pending calls
// by id) from notifications (no id). Safe for concurrent calls.
type Connection struct {
	ws     *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex
	nextID  atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan callResult
	closed  bool
	done    chan struct{}

	notifications chan domain.Notification
}

type callResult struct {
	result json.RawMessage
	err    error
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcEnvelope struct {
	ID     *json.Number     `json:"id"`
	Method string           `json:"method"`
	Params json.RawMessage  `json:"params"`
	Result json.RawMessage  `json:"result"`
	Error  *domain.RPCError `json:"error"`
}

// Connect dials the VM service websocket. A refused or unreachable endpoint
// yields domain.ErrConnectFailed (the supervisor may respawn on that); a
// reachable endpoint that rejects the websocket upgrade yields
// domain.ErrProtocolMismatch (fatal, never retried).
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		if errors.Is(err, websocket.ErrBadHandshake) {
			status := ""
			if resp != nil {
				status = resp.Status
			}
			return nil, fmt.Errorf("%w: %s %s", domain.ErrProtocolMismatch, url, status)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrConnectFailed, url, err)
	}
	c := &Connection{
		ws:            ws,
		logger:        logger.Named("vmservice"),
		pending:       make(map[int64]chan callResult),
		done:          make(chan struct{}),
		notifications: make(chan domain.Notification, notificationBuffer),
	}
	go c.readLoop()
	return c, nil
}

// Call allocates the next request id, sends the request, and waits for the
// matching response. Responses may arrive in any order relative to other
// in-flight calls; routing is strictly by id.
func (c *Connection) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	id := c.nextID.Add(1)
	ch := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrConnectionClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		c.removePending(id)
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.removePending(id)
		return nil, fmt.Errorf("%w: send %s: %v", domain.ErrConnectionClosed, method, err)
	}

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-ctx.Done():
		c.removePending(id)
		return nil, fmt.Errorf("%s: %w", method, ctx.Err())
	case <-c.done:
		return nil, fmt.Errorf("%w: awaiting %s response", domain.ErrConnectionClosed, method)
	}
}

// Notifications returns the stream of server events. Closed with the
// connection; never restartable.
func (c *Connection) Notifications() <-chan domain.Notification {
	return c.notifications
}

// Ping reports whether the peer answers a getVersion round-trip.
func (c *Connection) Ping(ctx context.Context) bool {
	_, err := c.Call(ctx, "getVersion", nil)
	return err == nil
}

func (c *Connection) Close() error {
	err := c.ws.Close()
	c.fail(domain.ErrConnectionClosed)
	return err
}

func (c *Connection) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.fail(fmt.Errorf("%w: %v", domain.ErrConnectionClosed, err))
			return
		}
		c.dispatch(data)
	}
}

func (c *Connection) dispatch(data []byte) {
	var env rpcEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Debug("discarding unparseable frame", zap.Error(err))
		return
	}

	if env.ID == nil {
		c.mu.Lock()
		if !c.closed {
			select {
			case c.notifications <- domain.Notification{Method: env.Method, Params: env.Params}:
			default:
				c.logger.Debug("notification dropped", zap.String("method", env.Method))
			}
		}
		c.mu.Unlock()
		return
	}

	id, err := env.ID.Int64()
	if err != nil {
		c.logger.Debug("discarding response with non-numeric id", zap.String("id", env.ID.String()))
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request id", zap.Int64("id", id))
		return
	}

	if env.Error != nil {
		ch <- callResult{err: env.Error}
		return
	}
	ch <- callResult{result: env.Result}
}

func (c *Connection) removePending(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// fail marks the connection closed, fails every in-flight call, and closes
// the notification stream. Idempotent.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[int64]chan callResult)
	close(c.done)
	close(c.notifications)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: err}
	}
}
