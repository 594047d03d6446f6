package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goConsole "github.com/MrEthical07/goConsole"
	"github.com/MrEthical07/goConsole/metrics/export/prometheus"
	"github.com/MrEthical07/goConsole/render"
	"github.com/MrEthical07/goConsole/search"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve module fragments and a live shell over HTTP",
		Long: `Serves <fragment_dir>/<module>.<ext> under /modules/, Prometheus metrics
under /metrics and a single live shell under /shell for local development.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			storage, cleanup, err := a.openStorage()
			if err != nil {
				return err
			}
			defer cleanup()

			view := render.New(a.logger)
			shell, err := a.buildShell(storage, view, goConsole.Hooks{
				RedirectToLogin: func() { a.logger.Info("redirect to login surface") },
			})
			if err != nil {
				return err
			}
			defer shell.Close()

			if err := shell.Start(cmd.Context()); err != nil {
				a.logger.Info("shell started without session", zap.Error(err))
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServeMux(a.cfg, a.logger, shell, view),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServer(cmd.Context(), srv, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func runServer(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// shellAPI exposes one Shell over HTTP.
type shellAPI struct {
	shell  *goConsole.Shell
	view   *render.HTML
	logger *zap.Logger
}

func newServeMux(cfg goConsole.Config, logger *zap.Logger, shell *goConsole.Shell, view *render.HTML) http.Handler {
	api := &shellAPI{shell: shell, view: view, logger: logger}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger(logger))

	mux.Handle("/modules/*", http.StripPrefix("/modules/", http.FileServer(http.Dir(cfg.Router.FragmentDir))))
	mux.Handle("/metrics", prometheus.NewPrometheusExporter(shell).Handler())
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Route("/shell", func(r chi.Router) {
		r.Get("/", api.page)
		r.Get("/status", api.status)
		r.Get("/audit", api.audit)
		r.Post("/login", api.login)
		r.Post("/logout", api.logout)
		r.Post("/navigate/{module}", api.navigate)
		r.Post("/activate/{id}", api.activate)
		r.Get("/search", api.search)
		r.Post("/search/select/{index}", api.selectResult)
	})
	return mux
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (h *shellAPI) page(w http.ResponseWriter, r *http.Request) {
	affs, err := h.shell.Affordances(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	panel, open := h.view.Panel()

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body>")
	b.WriteString(render.Navigation(affs))
	b.WriteString(`<main id="content">`)
	b.WriteString(h.view.Content())
	b.WriteString("</main>")
	if open {
		b.WriteString(`<div id="search-results">`)
		b.WriteString(panel)
		b.WriteString("</div>")
	}
	b.WriteString("</body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

type statusResponse struct {
	State   string   `json:"state"`
	Module  string   `json:"module,omitempty"`
	Error   string   `json:"error,omitempty"`
	Notices []string `json:"notices,omitempty"`
}

func (h *shellAPI) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.shell.Status(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	resp := statusResponse{State: st.State.String(), Module: st.Module, Notices: h.view.Notices()}
	if st.Err != nil {
		resp.Error = st.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *shellAPI) audit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.shell.AuditLog(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *shellAPI) login(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		h.fail(w, err)
		return
	}
	sess, err := h.shell.Login(r.Context(), strings.TrimSpace(string(raw)))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject":     sess.Subject,
		"name":        sess.DisplayName,
		"role":        sess.Role,
		"permissions": sess.Permissions(),
		"expires_at":  sess.ExpiresAt,
	})
}

func (h *shellAPI) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.shell.Logout(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *shellAPI) navigate(w http.ResponseWriter, r *http.Request) {
	if err := h.shell.Navigate(r.Context(), chi.URLParam(r, "module")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *shellAPI) activate(w http.ResponseWriter, r *http.Request) {
	if err := h.shell.Activate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type searchResult struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Module   string `json:"module"`
	Score    int    `json:"score"`
	Locked   bool   `json:"locked"`
}

func (h *shellAPI) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if err := h.shell.Input(r.Context(), q); err != nil {
		h.fail(w, err)
		return
	}
	results, err := h.shell.Search(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]searchResult, 0, len(results))
	for _, res := range results {
		title, subtitle := search.Describe(res.Record)
		out = append(out, searchResult{
			ID:       res.Record.RecordID(),
			Kind:     string(res.Record.Kind()),
			Title:    title,
			Subtitle: subtitle,
			Module:   search.Target(res.Record),
			Score:    res.Score,
			Locked:   res.Locked,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *shellAPI) selectResult(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "index must be an integer"})
		return
	}
	if err := h.shell.Select(r.Context(), i); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *shellAPI) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, goConsole.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, goConsole.ErrNoSession),
		errors.Is(err, goConsole.ErrSessionExpired),
		errors.Is(err, goConsole.ErrMalformedToken):
		status = http.StatusUnauthorized
	case errors.Is(err, goConsole.ErrMissingTarget),
		errors.Is(err, goConsole.ErrNoSuchResult),
		errors.Is(err, goConsole.ErrUnknownAffordance):
		status = http.StatusBadRequest
	case errors.Is(err, goConsole.ErrShellClosed):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Warn("shell request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":%q}`, err.Error())
	}
}
