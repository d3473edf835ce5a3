// Package api provides the HTTP server the touchpad clients connect to.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getlantern/golog"
	qrcode "github.com/skip2/go-qrcode"

	"vtouchpad/internal/config"
	"vtouchpad/internal/dispatch"
	"vtouchpad/internal/input"
	"vtouchpad/internal/network"
)

var log = golog.LoggerFor("vtouchpad.api")

// Server provides the controller socket and the status routes
type Server struct {
	configMgr  *config.Manager
	driver     *input.Resolved
	dispatcher *dispatch.Dispatcher
	version    string
	wsMgr      *WSManager

	mu         sync.Mutex
	httpServer *http.Server
	address    string
	port       int
}

// NewServer creates a new server sending input to driver
func NewServer(configMgr *config.Manager, driver *input.Resolved, version string) *Server {
	s := &Server{
		configMgr:  configMgr,
		driver:     driver,
		dispatcher: dispatch.New(),
		version:    version,
	}
	s.wsMgr = newWSManager(s)
	go s.wsMgr.start()
	return s
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/controller", s.wsMgr.handleWebSocket)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(QRPath, s.handleQR)
	return s.logMiddleware(s.recoverMiddleware(mux))
}

// Start listens on address and port and serves until Shutdown is called
func (s *Server) Start(address string, port int) error {
	addr := net.JoinHostPort(address, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorf("Failed to listen on %s: %v", addr, err)
		return err
	}

	s.mu.Lock()
	s.address, s.port = address, port
	s.mu.Unlock()
	return s.Serve(ln)
}

// Serve accepts connections on ln. It blocks until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = server
	s.mu.Unlock()

	if ips, err := network.GetLocalIPs(); err == nil {
		for _, ip := range ips {
			log.Debugf("Found local IPv4: %s", ip)
		}
	}
	log.Debugf("Serving on %s using driver %s", ln.Addr(), s.driver.Name)

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("Server stopped: %v", err)
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes the controller sockets
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsMgr.stop()

	s.mu.Lock()
	server := s.httpServer
	s.mu.Unlock()
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// listenAddress returns the address and port being served, or the
// configured ones before Start.
func (s *Server) listenAddress() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != 0 {
		return s.address, s.port
	}
	cfg := s.configMgr.Get()
	return cfg.Server.Address, cfg.Server.Port
}

// Sessions returns the number of connected controllers
func (s *Server) Sessions() int {
	return s.wsMgr.Count()
}

func (s *Server) newSession(remoteAddr string) *dispatch.Session {
	return dispatch.NewSession(s.driver.Driver, s.configMgr.Get().Input.ScrollThreshold, remoteAddr)
}

// recoverMiddleware prevents panics from crashing the whole server
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("Panic serving %s: %v", r.URL.Path, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugf("%s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// Status is the body of GET /status. Host and ConfigPath are only filled
// in for requests from this machine.
type Status struct {
	Version    string   `json:"version"`
	Driver     string   `json:"driver"`
	Sessions   int      `json:"sessions"`
	Commands   []string `json:"commands"`
	Port       int      `json:"port"`
	Host       string   `json:"host,omitempty"`
	URL        string   `json:"url,omitempty"`
	ConfigPath string   `json:"config_path,omitempty"`
}

// handleStatus handles GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address, port := s.listenAddress()
	status := Status{
		Version:  s.version,
		Driver:   s.driver.Name,
		Sessions: s.Sessions(),
		Commands: s.dispatcher.Commands(),
		Port:     port,
	}
	if network.IsLoopback(r.RemoteAddr) {
		status.Host = network.AdvertisedHost(address)
		status.URL = network.URL(address, port)
		status.ConfigPath = s.configMgr.Path()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}

// QRPath serves a QR code of the controller URL to this machine, for a
// phone to scan.
const QRPath = "/img/qr.png"

const qrSize = 256

// handleQR handles GET /img/qr.png
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// The URL is private, like the host in /status.
	if !network.IsLoopback(r.RemoteAddr) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	png, err := qrcode.Encode(network.URL(s.listenAddress()), qrcode.Medium, qrSize)
	if err != nil {
		log.Errorf("Failed to encode QR code: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// handleHealth handles GET /health (for monitoring)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
