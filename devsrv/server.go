// Package devsrv is the development web server. It serves the built site,
// injects a live reload script into HTML pages and tells connected browsers
// to reload when the site was rebuilt.
package devsrv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ReloadPath  = "/__webmk/livereload"
	MetricsPath = "/__webmk/metrics"
)

type Server struct {
	Dir   string
	Trace *mkcore.Trace

	router   *mux.Router
	hub      *hub
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	messages *prometheus.CounterVec
	clients  prometheus.Gauge
}

func New(dir string, tr *mkcore.Trace) *Server {
	s := &Server{
		Dir:    dir,
		Trace:  tr,
		router: mux.NewRouter(),
		reg:    prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmk_devsrv_requests_total",
				Help: "Requests served by the development server by kind",
			},
			[]string{"kind"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webmk_devsrv_reload_messages_total",
				Help: "Live reload messages sent to browsers",
			},
			[]string{"msg"},
		),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "webmk_devsrv_reload_clients",
			Help: "Connected live reload clients",
		}),
	}
	s.reg.MustRegister(s.requests, s.messages, s.clients)
	s.hub = newHub(s)
	s.router.Handle(ReloadPath, s.hub).Methods("GET")
	s.router.Handle(MetricsPath, promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})).Methods("GET")
	s.router.PathPrefix("/").HandlerFunc(s.serveFile).Methods("GET", "HEAD")
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Reload sends msg, [MsgReload] or [MsgCSS], to all connected browsers. It
// returns the number of browsers that got the message.
func (s *Server) Reload(msg string) int {
	n := s.hub.broadcast(msg)
	s.messages.WithLabelValues(msg).Add(float64(n))
	s.debug("sent `msg` to `clients`", `msg`, msg, `clients`, n)
	return n
}

// Clients returns the number of connected live reload clients.
func (s *Server) Clients() int { return s.hub.count() }

// ListenAndServe serves until ctx is done. The ready callback gets the local
// and the external URL of the server.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(local, external string)) error {
	lst, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(URLs(lst.Addr()))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.hub.close()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}()
	err = srv.Serve(lst)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

// URLs returns the local URL and the URL for other hosts in the network. The
// external URL is empty if there is no suitable network address.
func URLs(addr net.Addr) (local, external string) {
	port := "80"
	if ta, ok := addr.(*net.TCPAddr); ok {
		port = strconv.Itoa(ta.Port)
	}
	local = "http://" + net.JoinHostPort("localhost", port)
	ifas, err := net.InterfaceAddrs()
	if err != nil {
		return local, ""
	}
	for _, ifa := range ifas {
		ipn, ok := ifa.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() || ipn.IP.To4() == nil {
			continue
		}
		return local, "http://" + net.JoinHostPort(ipn.IP.String(), port)
	}
	return local, ""
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	upath := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.Dir, filepath.FromSlash(upath))
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		if r.URL.Path[len(r.URL.Path)-1] != '/' {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.requests.WithLabelValues("missing").Inc()
		http.NotFound(w, r)
		return
	case err != nil:
		s.requests.WithLabelValues("error").Inc()
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if !isHTML(file) {
		s.requests.WithLabelValues("file").Inc()
		f, err := os.Open(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, file, info.ModTime(), f)
		return
	}
	s.requests.WithLabelValues("page").Inc()
	page, err := os.ReadFile(file)
	if err == nil {
		page, err = InjectReload(page)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("page %s: %s", upath, err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, file, info.ModTime(), bytes.NewReader(page))
}

func (s *Server) debug(msg string, args ...any) {
	if s.Trace != nil {
		s.Trace.Debug(msg, args...)
	}
}
