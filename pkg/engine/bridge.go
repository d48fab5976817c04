package engine

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mcp-geogebra-service/pkg/errors"
	"mcp-geogebra-service/pkg/logging"
)

//go:embed web/index.html
var appletPage []byte

const (
	bridgeWriteTimeout = 5 * time.Second
	readyPollInterval  = 100 * time.Millisecond
)

// BridgeOptions configures a BridgeEngine
type BridgeOptions struct {
	Address        string
	CommandTimeout time.Duration
	ReadyTimeout   time.Duration
}

// BridgeEngine forwards commands over a websocket to a GeoGebra applet
// running in a browser page. The page is served by Handler; one applet
// connection is active at a time and a new connection replaces the old one.
type BridgeEngine struct {
	options  BridgeOptions
	logger   *logging.StructuredLogger
	upgrader websocket.Upgrader

	connMutex sync.Mutex
	conn      *websocket.Conn
	ready     atomic.Bool

	pendingMutex sync.Mutex
	pending      map[string]chan bridgeResponse

	viewMutex    sync.Mutex
	view         ViewSettings
	commandCount atomic.Int64
}

type bridgeRequest struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type bridgeResponse struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type,omitempty"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Set locally when the request could not complete
	err error
}

// NewBridgeEngine creates a bridge engine. Nothing listens until
// ListenAndServe is called or Handler is mounted elsewhere.
func NewBridgeEngine(options BridgeOptions, logger *logging.StructuredLogger) *BridgeEngine {
	if options.CommandTimeout <= 0 {
		options.CommandTimeout = 10 * time.Second
	}
	if options.ReadyTimeout <= 0 {
		options.ReadyTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.NewStructuredLogger("bridge_engine")
	}
	return &BridgeEngine{
		options: options,
		logger:  logger,
		pending: make(map[string]chan bridgeResponse),
		view:    DefaultView(),
	}
}

// Handler serves the applet page on / and the applet websocket on /ws
func (b *BridgeEngine) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.serveWebsocket)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(appletPage)
	})
	return mux
}

// ListenAndServe runs the HTTP server until ctx is cancelled
func (b *BridgeEngine) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              b.options.Address,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	b.logger.WithContext("address", "http://"+b.options.Address+"/").Info("Bridge engine listening; open the address in a browser to attach the applet")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.NewSystemError(errors.ErrCodeInitializationFailed, "bridge HTTP server failed", err)
	}
	return nil
}

func (b *BridgeEngine) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.WithContext("error", err.Error()).Warn("Websocket upgrade failed")
		return
	}

	b.connMutex.Lock()
	previous := b.conn
	b.conn = conn
	b.ready.Store(false)
	b.connMutex.Unlock()

	if previous != nil {
		previous.Close()
	}
	b.logger.WithContext("remote", r.RemoteAddr).Info("Applet connected")

	b.readLoop(conn)

	b.connMutex.Lock()
	current := b.conn == conn
	if current {
		b.conn = nil
		b.ready.Store(false)
	}
	b.connMutex.Unlock()
	conn.Close()

	if current {
		b.failPending(errors.NewEngineError(errors.ErrCodeEngineUnavailable, "applet disconnected", nil))
		b.logger.Warn("Applet disconnected")
	}
}

func (b *BridgeEngine) readLoop(conn *websocket.Conn) {
	for {
		var resp bridgeResponse
		if err := conn.ReadJSON(&resp); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.WithContext("error", err.Error()).Debug("Applet read loop ended")
			}
			return
		}

		if resp.Type == "ready" {
			b.ready.Store(true)
			b.logger.Info("Applet reported ready")
			continue
		}

		b.pendingMutex.Lock()
		ch, ok := b.pending[resp.ID]
		b.pendingMutex.Unlock()
		if !ok {
			b.logger.WithContext("request_id", resp.ID).Debug("Dropping response for unknown request")
			continue
		}
		select {
		case ch <- resp:
		default:
		}
	}
}

func (b *BridgeEngine) failPending(err error) {
	b.pendingMutex.Lock()
	defer b.pendingMutex.Unlock()
	for id, ch := range b.pending {
		select {
		case ch <- bridgeResponse{ID: id, err: err}:
		default:
		}
	}
}

// call sends one request and waits for its response
func (b *BridgeEngine) call(ctx context.Context, method string, params interface{}) (*bridgeResponse, error) {
	req := bridgeRequest{ID: uuid.New().String(), Method: method, Params: params}
	ch := make(chan bridgeResponse, 1)

	b.pendingMutex.Lock()
	b.pending[req.ID] = ch
	b.pendingMutex.Unlock()
	defer func() {
		b.pendingMutex.Lock()
		delete(b.pending, req.ID)
		b.pendingMutex.Unlock()
	}()

	b.connMutex.Lock()
	conn := b.conn
	if conn == nil {
		b.connMutex.Unlock()
		return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable, "no applet is connected to the bridge", nil)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(bridgeWriteTimeout))
	err := conn.WriteJSON(req)
	b.connMutex.Unlock()
	if err != nil {
		return nil, errors.NewEngineError(errors.ErrCodeEngineUnavailable, "failed to send request to applet", err)
	}

	timer := time.NewTimer(b.options.CommandTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.err != nil {
			return nil, resp.err
		}
		return &resp, nil
	case <-timer.C:
		return nil, errors.NewEngineError(errors.ErrCodeEngineTimeout,
			fmt.Sprintf("applet did not answer %s within %s", method, b.options.CommandTimeout), nil).
			WithContext("request_id", req.ID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callExpect is call for methods that must succeed; the decoded result is
// stored in out when out is not nil
func (b *BridgeEngine) callExpect(ctx context.Context, method string, params interface{}, out interface{}) error {
	resp, err := b.call(ctx, method, params)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.NewEngineError(errors.ErrCodeEngineRejected, resp.Error, nil).WithContext("method", method)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return errors.NewEngineError(errors.ErrCodeEngineRejected,
				fmt.Sprintf("unexpected %s result from applet", method), err)
		}
	}
	return nil
}

func (b *BridgeEngine) EvalCommand(ctx context.Context, command string) (*CommandResult, error) {
	b.commandCount.Add(1)
	resp, err := b.call(ctx, "evalCommand", map[string]string{"command": command})
	if err != nil {
		return nil, err
	}

	result := &CommandResult{Success: resp.Success, Error: resp.Error}
	if len(resp.Result) > 0 {
		var labels string
		if json.Unmarshal(resp.Result, &labels) == nil {
			result.Result = labels
		} else {
			result.Result = string(resp.Result)
		}
	}
	if !result.Success && result.Error == "" {
		result.Error = "command rejected by GeoGebra: " + command
	}
	return result, nil
}

func (b *BridgeEngine) IsReady(ctx context.Context) (bool, error) {
	b.connMutex.Lock()
	defer b.connMutex.Unlock()
	return b.conn != nil && b.ready.Load(), nil
}

// Initialize waits for an applet to connect and report ready
func (b *BridgeEngine) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.options.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		if ready, _ := b.IsReady(ctx); ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.NewEngineError(errors.ErrCodeEngineUnavailable,
				fmt.Sprintf("no applet became ready on http://%s/", b.options.Address), ctx.Err())
		case <-ticker.C:
		}
	}
}

// Cleanup disconnects the applet and fails in-flight requests
func (b *BridgeEngine) Cleanup(ctx context.Context) error {
	b.connMutex.Lock()
	conn := b.conn
	b.conn = nil
	b.ready.Store(false)
	b.connMutex.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
	}
	b.failPending(errors.NewEngineError(errors.ErrCodeEngineUnavailable, "bridge engine stopped", nil))
	return nil
}

func (b *BridgeEngine) GetState(ctx context.Context) (*State, error) {
	ready, _ := b.IsReady(ctx)

	b.viewMutex.Lock()
	state := &State{Ready: ready, CommandCount: b.commandCount.Load(), View: b.view}
	b.viewMutex.Unlock()

	if ready {
		names, err := b.GetAllObjectNames(ctx)
		if err != nil {
			return nil, err
		}
		state.ObjectCount = len(names)
	}
	return state, nil
}

func (b *BridgeEngine) GetAllObjectNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := b.callExpect(ctx, "getAllObjectNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (b *BridgeEngine) GetObjectInfo(ctx context.Context, name string) (*ObjectInfo, error) {
	var info ObjectInfo
	if err := b.callExpect(ctx, "getObjectInfo", map[string]string{"name": name}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (b *BridgeEngine) NewConstruction(ctx context.Context) error {
	return b.callExpect(ctx, "newConstruction", nil, nil)
}

func (b *BridgeEngine) SetCoordSystem(ctx context.Context, xmin, xmax, ymin, ymax float64) error {
	if xmin >= xmax || ymin >= ymax {
		return errors.NewValidationError(errors.ErrCodeInvalidParams,
			fmt.Sprintf("invalid coordinate system [%v, %v] x [%v, %v]", xmin, xmax, ymin, ymax), nil)
	}
	params := map[string]float64{"xmin": xmin, "xmax": xmax, "ymin": ymin, "ymax": ymax}
	if err := b.callExpect(ctx, "setCoordSystem", params, nil); err != nil {
		return err
	}
	b.viewMutex.Lock()
	b.view.XMin, b.view.XMax, b.view.YMin, b.view.YMax = xmin, xmax, ymin, ymax
	b.viewMutex.Unlock()
	return nil
}

func (b *BridgeEngine) SetAxesVisible(ctx context.Context, xAxis, yAxis bool) error {
	if err := b.callExpect(ctx, "setAxesVisible", map[string]bool{"x": xAxis, "y": yAxis}, nil); err != nil {
		return err
	}
	b.viewMutex.Lock()
	b.view.AxesX, b.view.AxesY = xAxis, yAxis
	b.viewMutex.Unlock()
	return nil
}

func (b *BridgeEngine) SetGridVisible(ctx context.Context, visible bool) error {
	if err := b.callExpect(ctx, "setGridVisible", map[string]bool{"visible": visible}, nil); err != nil {
		return err
	}
	b.viewMutex.Lock()
	b.view.Grid = visible
	b.viewMutex.Unlock()
	return nil
}

func (b *BridgeEngine) ExportPNG(ctx context.Context, scale float64) (string, error) {
	if scale <= 0 {
		scale = 1
	}
	var data string
	err := b.callExpect(ctx, "exportPNG", map[string]float64{"scale": scale}, &data)
	return data, err
}

func (b *BridgeEngine) ExportSVG(ctx context.Context) (string, error) {
	var svg string
	err := b.callExpect(ctx, "exportSVG", nil, &svg)
	return svg, err
}
