// Package ws streams analysis progress over a websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/internal/handler/api"
	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	xlogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxMessage   = 4096
)

// Runner runs an analysis and reports stage progress.
type Runner interface {
	Run(ctx context.Context, p usecase.AnalysisParams, progress usecase.ProgressFunc) (*models.Report, error)
}

// Event is one server to client frame.
type Event struct {
	Type   string                  `json:"type"`
	Stage  usecase.Stage           `json:"stage,omitempty"`
	Report *models.Report          `json:"report,omitempty"`
	Errors []*xhttp.AppError       `json:"errors,omitempty"`
	Fields []xhttp.ValidationError `json:"validation,omitempty"`
}

const (
	EventStage  = "stage"
	EventReport = "report"
	EventError  = "error"
)

// AnalysisHandler serves /ws/analysis. Each text frame from the client is
// an analysis request; requests on one connection run one at a time.
type AnalysisHandler struct {
	logger   *xlogger.Logger
	runner   Runner
	limiter  *ratelimit.Limiter
	upgrader websocket.Upgrader
}

// NewAnalysisHandler accepts upgrades from the serving host and from allowedOrigins
// ("*" allows any origin).
func NewAnalysisHandler(logger *xlogger.Logger, runner Runner, limiter *ratelimit.Limiter, allowedOrigins []string) *AnalysisHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &AnalysisHandler{
		logger:  logger.With(xlogger.String("component", "ws_analysis")),
		runner:  runner,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}
	if _, wildcard := set["*"]; wildcard {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/analysis", h.Serve)
}

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(ev)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Serve upgrades the connection and handles requests until the client leaves.
func (h *AnalysisHandler) Serve(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	cn := &conn{ws: ws}
	ws.SetReadLimit(maxMessage)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go h.keepAlive(ctx, cn)

	ip := c.RealIP()
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", xlogger.Error(err))
			}
			return nil
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		if err := h.handle(ctx, cn, ip, msg); err != nil {
			h.logger.Debug("websocket write failed", xlogger.Error(err))
			return nil
		}
	}
}

func (h *AnalysisHandler) keepAlive(ctx context.Context, cn *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := cn.ping(); err != nil {
				return
			}
		}
	}
}

// handle runs one request. Only write errors are returned.
func (h *AnalysisHandler) handle(ctx context.Context, cn *conn, ip string, msg []byte) error {
	if h.limiter != nil && !h.limiter.Allow(ip) {
		return cn.send(Event{Type: EventError, Errors: []*xhttp.AppError{xhttp.TooManyRequestsError("rate limit exceeded")}})
	}

	var req models.AnalysisRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return cn.send(Event{Type: EventError, Errors: []*xhttp.AppError{xhttp.BadRequestError("request must be a JSON object")}})
	}
	if verr := xhttp.ValidateStruct(ctx, &req); verr != nil {
		return cn.send(Event{Type: EventError, Errors: []*xhttp.AppError{xhttp.BadRequestError("invalid analysis request")}, Fields: verr})
	}

	var writeErr error
	report, err := h.runner.Run(ctx, usecase.AnalysisParams{
		Symbol:  req.Symbol,
		Period:  domrepo.Period(req.Period),
		Regimes: req.RegimeCount(),
	}, func(s usecase.Stage) {
		if writeErr == nil {
			writeErr = cn.send(Event{Type: EventStage, Stage: s})
		}
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		appErr := api.ToAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("websocket analysis failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		return cn.send(Event{Type: EventError, Errors: []*xhttp.AppError{appErr}})
	}
	return cn.send(Event{Type: EventReport, Report: report})
}
