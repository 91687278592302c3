// Package fakeapi is an in-memory stand-in for the campaign REST API.
//
// It serves the same routes as the real API with just enough behaviour for
// the data layer to be exercised end to end: identifiers are issued by the
// server, character summaries are derived from events, and every route can
// be made to fail or to hang on demand.
package fakeapi

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/krisalay/campaign-cache/entity"
)

type failure struct {
	status int
	times  int
}

// Server implements http.Handler.
type Server struct {
	e      *echo.Echo
	logger *zap.Logger

	mu          sync.Mutex
	characters  map[string]entity.Character
	events      map[string]map[string]any
	eventOrder  []string
	parties     map[string][]string
	magicItems  map[string]entity.MagicItem
	itemOrder   []string
	history     map[string]entity.ItemHistory
	consumables map[string]entity.Consumable
	consOrder   []string
	adverts     map[string]entity.Advert
	advertOrder []string

	calls    map[string]int
	failures map[string]*failure
	gates    map[string]chan struct{}
}

func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		e:           echo.New(),
		logger:      logger,
		characters:  make(map[string]entity.Character),
		events:      make(map[string]map[string]any),
		parties:     make(map[string][]string),
		magicItems:  make(map[string]entity.MagicItem),
		history:     make(map[string]entity.ItemHistory),
		consumables: make(map[string]entity.Consumable),
		adverts:     make(map[string]entity.Advert),
		calls:       make(map[string]int),
		failures:    make(map[string]*failure),
		gates:       make(map[string]chan struct{}),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(s.control)
	s.register()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// Echo exposes the router, for serving the fake on a real listener.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func routeKey(method, route string) string {
	return method + " " + route
}

/*
control counts every call, then applies the gate and the injected failure
registered for the route, in that order. Routes are the echo patterns,
e.g. "DELETE /api/data/freeform/:uuid".
*/
func (s *Server) control(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := routeKey(c.Request().Method, c.Path())

		s.mu.Lock()
		s.calls[key]++
		gate := s.gates[key]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-c.Request().Context().Done():
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}

		s.mu.Lock()
		f := s.failures[key]
		status := 0
		if f != nil && f.times != 0 {
			status = f.status
			if f.times > 0 {
				f.times--
			}
		}
		s.mu.Unlock()

		if status != 0 {
			s.logger.Debug("injected failure", zap.String("route", key), zap.Int("status", status))
			return c.String(status, http.StatusText(status))
		}
		return next(c)
	}
}

// Fail makes the next times calls of the route answer status. A negative
// times fails every call until Recover.
func (s *Server) Fail(method, route string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[routeKey(method, route)] = &failure{status: status, times: times}
}

// Recover removes every injected failure.
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]*failure)
}

// Hold blocks calls of the route until the returned function is called.
func (s *Server) Hold(method, route string) (release func()) {
	key := routeKey(method, route)
	gate := make(chan struct{})

	s.mu.Lock()
	s.gates[key] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[key] == gate {
				delete(s.gates, key)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests reached the route.
func (s *Server) Calls(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[routeKey(method, route)]
}

func writeJSON(c echo.Context, status int, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(status, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func readJSON(c echo.Context, v any) error {
	if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json: "+err.Error())
	}
	return nil
}
