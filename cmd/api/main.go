package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"ad-collector/adapters"
	"ad-collector/extractor"
	"ad-collector/internal/sink"
	"ad-collector/internal/types"
	"ad-collector/utils"
)

// APIRequest represents the request body for the API. SinkLocation is a
// file name inside the server's output directory.
type APIRequest struct {
	StartURL     string `json:"start_url"`
	MaxPages     int    `json:"max_pages"`
	SinkLocation string `json:"sink_location"`
	Adapter      string `json:"adapter"`
}

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool                  `json:"success"`
	Data    *types.SessionSummary `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Server holds the API server configuration
type Server struct {
	logger   *logrus.Logger
	config   *types.Config
	launcher func(*types.Config) types.Launcher

	// outputDir holds sinks named by clients
	outputDir string

	// one collection at a time; the browser and sink are not shared
	busy sync.Mutex
}

// NewServer creates a new API server
func NewServer() *Server {
	logger := utils.NewLogger(false)

	config := types.DefaultConfig()
	config.Headless = true
	utils.LoadEnv(config, logger)

	outputDir := os.Getenv("API_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = filepath.Dir(config.SinkLocation)
	}

	return &Server{
		logger: logger,
		config: config,
		launcher: func(c *types.Config) types.Launcher {
			return utils.NewLauncher(c, logger)
		},
		outputDir: outputDir,
	}
}

// sinkPath maps a client supplied sink name into the output directory.
// Only plain file names are accepted.
func (s *Server) sinkPath(name string) (string, error) {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("sink_location must be a file name, got %q", name)
	}
	return filepath.Join(s.outputDir, name), nil
}

// handleCollect runs one collection session and returns its summary
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	// Set CORS headers
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Only allow POST requests
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse request body
	var req APIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MaxPages < 0 {
		s.sendError(w, "max_pages must not be negative", http.StatusBadRequest)
		return
	}

	config := *s.config
	if v := strings.TrimSpace(req.StartURL); v != "" {
		config.StartURL = v
	}
	if v := strings.TrimSpace(req.SinkLocation); v != "" {
		path, err := s.sinkPath(v)
		if err != nil {
			s.sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		config.SinkLocation = path
	}
	if v := strings.TrimSpace(req.Adapter); v != "" {
		config.Adapter = v
	}
	config.PageCeiling = req.MaxPages

	profile, err := adapters.Resolve(config.Adapter, config.SelectorsFile)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !s.busy.TryLock() {
		s.sendError(w, "A collection is already running", http.StatusConflict)
		return
	}
	defer s.busy.Unlock()

	s.logger.Infof("API request received for %s (max pages: %d)", config.StartURL, config.PageCeiling)

	out, err := sink.Open(config.SinkLocation)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer out.Close()

	// the session ends when the client goes away
	summary, err := extractor.NewCollector(&config, profile, s.launcher(&config), out, s.logger).Run(r.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warnf("Collection failed: %v", err)
		response := APIResponse{Success: false, Data: summary, Error: err.Error()}
		w.WriteHeader(http.StatusBadGateway)
		if err := json.NewEncoder(w).Encode(response); err != nil {
			s.logger.Errorf("Failed to encode response: %v", err)
		}
		return
	}

	// Send success response
	response := APIResponse{
		Success: true,
		Data:    summary,
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode error response: %v", err)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// Handler returns the routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/collect", s.handleCollect)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start starts the API server
func (s *Server) Start(port string) error {
	s.logger.Infof("Starting API server on port %s", port)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  POST /collect - Collect ads starting from a URL")
	s.logger.Info("  GET  /health  - Health check")

	return http.ListenAndServe(":"+port, s.Handler())
}

func main() {
	// Get port from environment variable, default to 8080
	serverPort := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		serverPort = envPort
		fmt.Printf("Using port from environment variable API_PORT: %s\n", serverPort)
	} else {
		fmt.Printf("No API_PORT environment variable found, using default: %s\n", serverPort)
	}

	server := NewServer()

	// Start the server
	log.Printf("Starting API server on port %s", serverPort)
	log.Fatal(server.Start(serverPort))
}
