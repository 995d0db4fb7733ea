// Package server exposes a tracker.Tracker over a JSON HTTP interface for
// presentation code.
//
// Every endpoint produces a Result that is written to the client and then
// logged along with the ID of the request. Errors from the tracker are mapped
// onto status codes: validation failures give 400, missing entities 404, an
// unready tracker 503 and anything else 500.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/canetrack/canetrack"
	"github.com/canetrack/canetrack/logging"
	"github.com/canetrack/canetrack/tracker"
	"github.com/go-chi/chi/v5"
)

// Server is an HTTP server over a Tracker. The zero-value of a Server should
// not be used directly; call New to get one ready for use.
type Server struct {
	mtx     *sync.Mutex
	rtr     chi.Router
	closing bool
	serving bool
	http    *http.Server
	cfg     canetrack.Config

	tr  *tracker.Tracker
	log logging.Logger

	// now is replaced in tests.
	now func() time.Time
}

// New creates a Server for tr that serves as configured by cfg. Unset values
// in cfg are given their defaults. If log is nil, nothing is logged.
func New(cfg canetrack.Config, tr *tracker.Tracker, log logging.Logger) (*Server, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = logging.NoOpLogger{}
	}

	return &Server{
		mtx: &sync.Mutex{},
		cfg: cfg,
		tr:  tr,
		log: log,
		now: time.Now,
	}, nil
}

// Config returns the configuration that the server used during creation.
func (s *Server) Config() canetrack.Config {
	return s.cfg
}

// Handler returns the root handler with every route mounted under the
// configured base.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

func (s *Server) routes() chi.Router {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.rtr != nil {
		return s.rtr
	}

	root := chi.NewRouter()
	root.Use(AssignRequestID())
	root.Use(s.DontPanic())

	r := root
	if s.cfg.URIBase != "/" {
		r = chi.NewRouter()
		root.Mount(strings.TrimRight(s.cfg.URIBase, "/"), r)
	}

	r.NotFound(s.Endpoint(func(req *http.Request) Result {
		return NotFound("no route for %s", req.URL.Path)
	}))
	r.MethodNotAllowed(s.Endpoint(func(req *http.Request) Result {
		return MethodNotAllowed(req)
	}))

	r.Get("/status", s.Endpoint(s.epStatus))
	r.Post("/refresh", s.Endpoint(s.epRefresh))

	r.Route("/locations", func(r chi.Router) {
		locationRoutes(s).route(r)
	})
	r.Route("/facilities", func(r chi.Router) {
		facilityRoutes(s).route(r, func(r chi.Router) {
			r.Get("/transport-price", s.Endpoint(s.ready(s.epTransportPrice)))
		})
	})
	r.Route("/operators", func(r chi.Router) {
		operatorRoutes(s).route(r, func(r chi.Router) {
			r.Get("/vehicle", s.Endpoint(s.ready(s.epVehicle)))
		})
	})
	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", s.Endpoint(s.ready(s.epListDeliveries)))
		r.Post("/", s.Endpoint(s.epCreateDelivery))
		r.Get("/export.csv", s.Endpoint(s.ready(s.epExportDeliveries)))
		r.Route("/"+PathParam("id:num"), func(r chi.Router) {
			r.Get("/", s.Endpoint(s.ready(s.epGetDelivery)))
			r.Patch("/", s.Endpoint(s.epUpdateDelivery))
			r.Delete("/", s.Endpoint(s.epDeleteDelivery))
		})
	})

	r.Get("/summary", s.Endpoint(s.ready(s.epSummary)))
	r.Get("/analysis", s.Endpoint(s.ready(s.epAnalysis)))

	s.rtr = root
	return root
}

// EndpointFunc produces the Result of one request.
type EndpointFunc func(req *http.Request) Result

// Endpoint adapts ep to an http.HandlerFunc that writes and logs its Result.
func (s *Server) Endpoint(ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r := ep(req)
		r.WriteResponse(w)
		s.LogResult(req, r)
	}
}

// LogResult logs the outcome of req. Errors are logged at Error level and
// everything else at Info.
func (s *Server) LogResult(req *http.Request, r Result) {
	// we don't really care about the ephemeral port from the client end
	remoteAddrParts := strings.SplitN(req.RemoteAddr, ":", 2)
	remoteIP := remoteAddrParts[0]

	if r.IsErr {
		s.log.Errorf("[%s] %s %s %s: HTTP-%d %s", RequestID(req), remoteIP, req.Method, req.URL.Path, r.Status, r.InternalMsg)
	} else {
		s.log.Infof("[%s] %s %s %s: HTTP-%d %s", RequestID(req), remoteIP, req.Method, req.URL.Path, r.Status, r.InternalMsg)
	}
}

// RoutesIndex returns a human-readable formatted string that lists all routes
// and methods currently available in the server.
func (s *Server) RoutesIndex() string {
	routeMethods := map[string][]string{}

	chi.Walk(s.routes(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routeMethods[route] = append(routeMethods[route], method)
		return nil
	})

	// alphabetize the routes
	allRoutes := []string{}
	for name := range routeMethods {
		allRoutes = append(allRoutes, name)
	}
	sort.Strings(allRoutes)

	var sb strings.Builder
	for _, r := range allRoutes {
		sb.WriteString("* ")
		sb.WriteString(r)
		sb.WriteString(" - ")

		meths := routeMethods[r]
		sort.Strings(meths)
		sb.WriteString(strings.Join(meths, ", "))
		sb.WriteRune('\n')
	}

	return strings.TrimSpace(sb.String())
}

// ServeForever begins listening on the server's configured address and port
// for HTTP client requests.
//
// This function will block until the server is stopped. If it returns as a
// result of Shutdown being called elsewhere, it will return
// http.ErrServerClosed.
func (s *Server) ServeForever() (err error) {
	s.mtx.Lock()
	if s.serving {
		s.mtx.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.serving = true
	s.mtx.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while running server: %v", r)
		}
	}()

	rtr := s.routes()

	s.mtx.Lock()
	s.http = &http.Server{Addr: s.cfg.ListenAddress(), Handler: rtr}
	httpServer := s.http
	s.mtx.Unlock()

	defer func() {
		s.mtx.Lock()
		s.closing = false
		s.serving = false
		s.mtx.Unlock()
	}()

	return httpServer.ListenAndServe()
}

// Shutdown shuts down the server gracefully, closing it to new connections and
// waiting for active ones to finish. This will cause ServeForever to return in
// any goroutine that is blocking on it. If ctx is canceled while shutting
// down, graceful shutdown is abandoned and ctx's error is returned.
//
// Returns a non-nil error if the server is not currently running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.closing {
		return fmt.Errorf("close already in-progress in another goroutine")
	}
	if !s.serving {
		return fmt.Errorf("server is not running")
	}
	s.closing = true

	if s.http != nil {
		err := s.http.Shutdown(ctx)
		s.http = nil
		if err != nil {
			return fmt.Errorf("stop HTTP server: %w", err)
		}
	}

	return nil
}
