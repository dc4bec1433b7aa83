package web

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"image-optimizer-go/internal/codec"
	"image-optimizer-go/internal/config"
	"image-optimizer-go/internal/optimizer"
	"image-optimizer-go/internal/scanner"
	"image-optimizer-go/internal/statistics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type Server struct {
	cfg        *config.Config
	fs         afero.Fs
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.Mutex
	events     chan WSMessage
	done       chan struct{}
	closeOnce  sync.Once

	// Current operation state
	operationMutex sync.RWMutex
	isRunning      bool
	stopping       bool
	jobID          string
	currentStats   *statistics.Statistics
	lastResult     *statistics.Result
	jobs           sync.WaitGroup
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OptimizeRequest starts a batch. Unset fields fall back to the server config.
type OptimizeRequest struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	Recursive *bool  `json:"recursive,omitempty"`
	Quality   *int   `json:"quality,omitempty"`
	Lossless  *bool  `json:"lossless,omitempty"`
	MaxSize   *int64 `json:"max_size,omitempty"`
	Backup    *bool  `json:"backup,omitempty"`
}

type DirectoryInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	IsDirectory  bool   `json:"is_directory"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer returns a server that optimizes files on fs using cfg as the
// base configuration for every job.
func NewServer(cfg *config.Config, fs afero.Fs, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		fs:        fs,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		events: make(chan WSMessage, 256),
		done:   make(chan struct{}),
	}

	s.setupRoutes()
	go s.broadcastLoop()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/optimize", s.handleOptimize).Methods("POST")
	api.HandleFunc("/directories", s.handleListDirectories).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

// Stop refuses new jobs, shuts the HTTP server down and waits for a running
// job to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.operationMutex.Lock()
	s.stopping = true
	s.operationMutex.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.jobs.Wait()
	s.closeOnce.Do(func() { close(s.done) })
	return err
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	jobID := s.jobID
	stats := s.currentStats
	last := s.lastResult
	s.operationMutex.RUnlock()

	var current interface{}
	if stats != nil && running {
		current = stats.Snapshot()
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":     running,
			"job_id":      jobID,
			"current":     current,
			"last_result": last,
		},
	})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cfg, err := s.jobConfig(req)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := s.fs.Stat(cfg.Input)
	if err != nil {
		s.writeError(w, "Input file or directory does not exist", http.StatusBadRequest)
		return
	}

	// Check and claim in one step so two requests cannot both start.
	s.operationMutex.Lock()
	if s.stopping {
		s.operationMutex.Unlock()
		s.writeError(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.isRunning {
		s.operationMutex.Unlock()
		s.writeError(w, "Operation already in progress", http.StatusConflict)
		return
	}
	jobID := uuid.New().String()
	s.isRunning = true
	s.jobID = jobID
	s.currentStats = nil
	s.jobs.Add(1)
	s.operationMutex.Unlock()

	go s.runOptimizeAsync(jobID, cfg, !info.IsDir())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(APIResponse{
		Success: true,
		Message: "Optimization started",
		Data:    map[string]string{"job_id": jobID},
	})
}

// jobConfig overlays req on a copy of the server config.
func (s *Server) jobConfig(req OptimizeRequest) (*config.Config, error) {
	if req.Input == "" {
		return nil, fmt.Errorf("input is required")
	}

	cfg := *s.cfg
	cfg.Input = req.Input
	cfg.OutputDirectory = req.Output
	if req.Recursive != nil {
		cfg.Recursive = *req.Recursive
	}
	if req.Quality != nil {
		cfg.Quality = *req.Quality
	}
	if req.Lossless != nil {
		cfg.Lossless = *req.Lossless
	}
	if req.MaxSize != nil {
		if *req.MaxSize < 0 {
			return nil, fmt.Errorf("max_size must not be negative")
		}
		if *req.MaxSize > math.MaxUint32 {
			return nil, fmt.Errorf("max_size must not exceed %d", uint32(math.MaxUint32))
		}
		cfg.MaxSize = uint32(*req.MaxSize)
	}
	if req.Backup != nil {
		cfg.Backup = *req.Backup
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Server) handleListDirectories(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		path = "."
	}

	// Security check - prevent directory traversal
	if strings.Contains(path, "..") {
		s.writeError(w, "Invalid path", http.StatusBadRequest)
		return
	}
	path = filepath.Clean(path)

	entries, err := afero.ReadDir(s.fs, path)
	if err != nil {
		s.writeError(w, fmt.Sprintf("Failed to read directory: %v", err), http.StatusInternalServerError)
		return
	}

	directories := make([]DirectoryInfo, 0, len(entries))
	for _, info := range entries {
		directories = append(directories, DirectoryInfo{
			Path:         filepath.Join(path, info.Name()),
			Name:         info.Name(),
			IsDirectory:  info.IsDir(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format(time.RFC3339),
		})
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    directories,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	// Remove client on disconnect
	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) runOptimizeAsync(jobID string, cfg *config.Config, inputIsFile bool) {
	defer s.jobs.Done()

	stats, err := s.optimize(jobID, cfg, inputIsFile)

	s.operationMutex.Lock()
	s.isRunning = false
	if stats != nil {
		result := stats.Snapshot()
		s.lastResult = &result
	}
	s.operationMutex.Unlock()

	if err != nil {
		s.log.WithField("job_id", jobID).Errorf("Optimization failed: %v", err)
		s.broadcastWSMessage("optimize_error", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return
	}

	result := stats.Snapshot()
	s.broadcastWSMessage("optimize_completed", map[string]interface{}{
		"job_id":  jobID,
		"result":  result,
		"summary": result.SummaryLines(),
		"errors":  stats.Errors(),
	})
}

func (s *Server) optimize(jobID string, cfg *config.Config, inputIsFile bool) (*statistics.Statistics, error) {
	files, err := scanner.New(s.fs).Scan(cfg.Input, cfg.Recursive)
	if err != nil {
		return nil, err
	}

	s.broadcastWSMessage("optimize_started", map[string]interface{}{
		"job_id": jobID,
		"input":  cfg.Input,
		"output": cfg.OutputDirectory,
		"files":  len(files),
	})

	req := cfg.Request(inputIsFile)
	registry := codec.NewRegistry(s.fs, req.Codec, s.log)
	opt := optimizer.New(s.fs, registry, req, s.log)
	coordinator := optimizer.NewCoordinator(opt, req, &wsProgress{server: s, jobID: jobID}, s.log)

	stats := coordinator.Run(files)
	return stats, nil
}

// broadcastWSMessage queues a message for all clients. It never blocks: when
// the queue is full the message is dropped.
func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	select {
	case s.events <- WSMessage{Type: messageType, Data: data}:
	default:
		s.log.Debugf("Dropping WebSocket message %s, queue full", messageType)
	}
}

// broadcastLoop is the only writer to client connections.
func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case message := <-s.events:
			s.writeToClients(message)
		}
	}
}

func (s *Server) writeToClients(message WSMessage) {
	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for conn := range s.wsClients {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msgBytes); err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			delete(s.wsClients, conn)
			conn.Close()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
