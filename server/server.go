package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/agentcrew/logging"
	"github.com/hupe1980/agentcrew/render"
)

// Dispatcher runs one query and returns the cleaned response text.
type Dispatcher interface {
	Dispatch(ctx context.Context, query string) (string, error)
}

// Options configure the web server.
type Options struct {
	Addr string
	// Title is shown as page heading.
	Title string
	// RequestTimeout bounds one dispatch.
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
	Logger         logging.Logger
}

// Server serves the web surface.
type Server struct {
	dispatcher Dispatcher
	markdown   *render.MarkdownHTML
	opts       Options
}

// New creates a Server for d.
func New(d Dispatcher, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:           ":8080",
		Title:          "agentcrew",
		RequestTimeout: 2 * time.Minute,
		ReadTimeout:    10 * time.Second,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Server{dispatcher: d, markdown: render.NewMarkdownHTML(), opts: opts}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleForm)
	r.Post("/", s.handleQuery)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadTimeout,
		ReadTimeout:       s.opts.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("server.listen", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type pageData struct {
	Title  string
	Query  string
	Answer template.HTML
	Error  string
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, http.StatusOK, pageData{Title: s.opts.Title})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writePage(w, r, http.StatusBadRequest, pageData{Title: s.opts.Title, Error: "invalid form: " + err.Error()})
		return
	}
	query := r.PostForm.Get("query")

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()

	data := pageData{Title: s.opts.Title, Query: query}
	status := http.StatusOK

	text, err := s.dispatcher.Dispatch(ctx, query)
	if err != nil {
		s.opts.Logger.Error("server.dispatch.error", "request_id", middleware.GetReqID(r.Context()), "error", err.Error())
		data.Error = err.Error()
		status = http.StatusBadGateway
	}

	if text != "" {
		html, rerr := s.markdown.HTML(text)
		if rerr != nil {
			s.writePage(w, r, http.StatusInternalServerError, pageData{Title: s.opts.Title, Query: query, Error: rerr.Error()})
			return
		}
		data.Answer = template.HTML(html) // #nosec G203 -- goldmark escapes raw HTML
	}

	s.writePage(w, r, status, data)
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.opts.Logger.Error("server.render.error", "request_id", middleware.GetReqID(r.Context()), "error", err.Error())
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("server.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
input[type=text] { width: 80%; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.25rem 0.5rem; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<form method="post" action="/">
<input type="text" name="query" value="{{.Query}}" autofocus>
<button type="submit">Submit</button>
</form>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Answer}}<div class="answer">{{.Answer}}</div>{{end}}
</body>
</html>
`))
