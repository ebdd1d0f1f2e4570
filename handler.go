package privatepub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

const (
	defaultIncomingURL = "/incoming"
	defaultHealthzURL  = "/healthz"

	maxIncomingBodySize = 1 << 20
)

// Handler exposes the Extension over HTTP, for Faye servers that delegate authorization to an external process.
type Handler struct {
	*opt
	store   *ConfigStore
	options []Option
	handler http.Handler
}

// NewHandler creates a Handler authorizing frames against the configuration currently held by store.
func NewHandler(store *ConfigStore, options ...Option) (*Handler, error) {
	o, err := newOpt(options)
	if err != nil {
		return nil, err
	}

	// Extensions are rebuilt on every request to honor configuration reloads,
	// they must share the logger, the metrics and the selector cache.
	shared := append(append([]Option{}, options...), WithLogger(o.logger), WithMetrics(o.metrics), WithChannelSelectorStore(o.channelSelectorStore))

	h := &Handler{opt: o, store: store, options: shared}
	h.initHandler()

	return h, nil
}

func (h *Handler) initHandler() {
	router := mux.NewRouter()
	router.UseEncodedPath()
	router.SkipClean(true)

	router.HandleFunc(defaultIncomingURL, h.IncomingHandler).Methods(http.MethodPost)
	router.HandleFunc(defaultHealthzURL, func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	}).Methods(http.MethodGet, http.MethodHead)

	if m, ok := h.metrics.(*PrometheusMetrics); ok {
		m.Register(router)
	}

	secureMiddleware := secure.New(secure.Options{
		IsDevelopment:         h.debug,
		AllowedHosts:          h.allowedHosts,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ContentSecurityPolicy: "default-src 'none'",
	})

	var handler http.Handler = router
	if len(h.corsOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(h.corsOrigins),
			handlers.AllowedMethods([]string{http.MethodPost}),
			handlers.AllowedHeaders([]string{"content-type"}),
		)(handler)
	}

	handler = secureMiddleware.Handler(handler)
	if h.debug {
		handler = handlers.CombinedLoggingHandler(os.Stderr, handler)
	}

	h.handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{h.logger}),
		handlers.PrintRecoveryStack(h.debug),
	)(handler)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// IncomingHandler runs the Extension on a JSON encoded Bayeux message, or array of messages,
// and answers with the checked messages in the same shape.
func (h *Handler) IncomingHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIncomingBodySize))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)

		return
	}

	body = bytes.TrimSpace(body)
	batch := len(body) > 0 && body[0] == '['

	var messages []*BayeuxMessage
	if batch {
		err = json.Unmarshal(body, &messages)
	} else {
		var m BayeuxMessage
		err = json.Unmarshal(body, &m)
		messages = []*BayeuxMessage{&m}
	}

	if err != nil {
		http.Error(w, "Invalid Bayeux message", http.StatusBadRequest)

		return
	}

	e, err := NewExtension(h.store.Get(), h.options...)
	if err != nil {
		h.httpError(w, r, err)

		return
	}

	for _, m := range messages {
		if m == nil {
			http.Error(w, "Invalid Bayeux message", http.StatusBadRequest)

			return
		}

		if err := e.Incoming(m); err != nil {
			h.httpError(w, r, err)

			return
		}
	}

	w.Header().Set("Content-Type", "application/json")

	var resp interface{} = messages
	if !batch {
		resp = messages[0]
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		if c := h.logger.Check(zap.InfoLevel, "Failed to write incoming response"); c != nil {
			c.Write(zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		}
	}
}

func (h *Handler) httpError(w http.ResponseWriter, r *http.Request, err error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	h.logger.Error("Unable to check incoming message", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
}

type recoveryLogger struct {
	logger Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("Recovered from panic", zap.String("panic", fmt.Sprint(v...)))
}

func validateOrigins(origins []string) error {
	for _, origin := range origins {
		switch origin {
		case "*", "null":
			continue
		}

		u, err := url.Parse(origin)
		if err != nil ||
			!u.IsAbs() ||
			u.Opaque != "" ||
			u.User != nil ||
			u.Path != "" ||
			u.RawQuery != "" ||
			u.Fragment != "" {
			return fmt.Errorf(`%w: invalid origin, must be a URL having only a scheme, a host and optionally a port, "*" or "null"`, ErrInvalidConfig)
		}
	}

	return nil
}
