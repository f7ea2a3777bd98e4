package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/moyoez/wx-station-go/api/controllers"
	"github.com/moyoez/wx-station-go/api/middlewares"
	"github.com/moyoez/wx-station-go/api/models"
	"github.com/moyoez/wx-station-go/api/notifyhub"
	"github.com/moyoez/wx-station-go/tool"
	"github.com/moyoez/wx-station-go/types"
)

// Options wires the server to the station.
type Options struct {
	Port    int
	Version string
	Store   *tool.ConfigStore
	Host    types.Host
	Hub     *notifyhub.Hub
	// Notify receives change notifications; defaults to Hub.
	Notify types.NotifyHub
	// Limiter guards the mutating routes; nil disables rate limiting.
	Limiter *rate.Limiter
	// Check overrides the reachability check used by /diag.
	Check controllers.Checker
}

// Server is the station's configuration web endpoint.
type Server struct {
	opts    Options
	flashes *models.FlashStore
	engine  *gin.Engine
	server  *http.Server
	mu      sync.RWMutex
}

func NewServer(opts Options) *Server {
	if opts.Hub == nil {
		opts.Hub = notifyhub.New()
	}
	if opts.Notify == nil {
		opts.Notify = opts.Hub
	}
	return &Server{
		opts:    opts,
		flashes: models.NewFlashStore(models.DefaultFlashTTL),
	}
}

// Handler builds the routed engine without listening, mainly for tests.
func (s *Server) Handler() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) setupRoutes() (*gin.Engine, error) {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	tmpl, err := pageTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	engine.SetHTMLTemplate(tmpl)

	store := s.opts.Store
	limit := middlewares.RateLimit(s.opts.Limiter)

	pageCtrl := controllers.NewPageController(store, s.flashes, s.opts.Version)
	configCtrl := controllers.NewConfigController(store, s.flashes, s.opts.Notify)
	deviceCtrl := controllers.NewDeviceController(s.opts.Host, s.opts.Notify)
	diagCtrl := controllers.NewDiagController(store, s.opts.Check, nil)

	engine.GET("/", pageCtrl.HandleIndex)
	engine.GET("/download", configCtrl.HandleDownload)
	engine.GET("/config.json", configCtrl.HandleConfigJSON)

	engine.POST("/save", limit, configCtrl.HandleSave)
	engine.POST("/restore", limit, configCtrl.HandleRestore)
	engine.GET("/factory", limit, configCtrl.HandleFactory)
	engine.GET("/reboot", limit, deviceCtrl.HandleReboot)
	engine.GET("/wifi", limit, deviceCtrl.HandleSetup)

	engine.GET("/status", controllers.HandleStatus(store, s.opts.Version, s.opts.Hub.Len))
	engine.GET("/qrcode", controllers.HandleQRCode(func() string { return tool.ConfigURL(s.opts.Port) }))
	engine.GET("/diag", diagCtrl.HandleDiag)
	engine.GET("/notify-ws", notifyhub.HandleNotifyWS(s.opts.Hub, s.greeting))

	return engine, nil
}

// greeting tells a freshly connected page where the active record came from.
func (s *Server) greeting() *types.Notification {
	state, err := s.opts.Store.State()
	n := &types.Notification{
		Type:  types.NotifyTypeHello,
		Title: s.opts.Store.Snapshot().StationName,
		Data:  map[string]any{"loadState": state.String(), "version": s.opts.Version},
	}
	if err != nil {
		n.Message = err.Error()
	}
	return n
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	engine, err := s.setupRoutes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.engine = engine
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("[Web] Config form on %s", tool.ConfigURL(s.opts.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
