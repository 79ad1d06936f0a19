package api

import (
	"net/http"
	"time"

	"AirTrafficStory/src/dashboard"
	"AirTrafficStory/src/processor"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter timeout 只作用于 /api/v1，/logs 是长连接
func NewRouter(h *Handlers, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.RequestID)
	r.Use(ChiMiddleware.RealIP)
	// 请求日志写入应用日志，/logs 也能看到
	r.Use(ChiMiddleware.RequestLogger(&ChiMiddleware.DefaultLogFormatter{Logger: h.logger, NoColor: true}))
	r.Use(ChiMiddleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/logs", h.Logs)

	r.Route("/api/v1", func(r chi.Router) {
		if timeout > 0 {
			r.Use(ChiMiddleware.Timeout(timeout))
		}
		r.Get("/overview", page(h, h.svc.Overview))
		r.Get("/trends", h.Trends)
		r.Get("/airports", page(h, h.svc.Airports))
		r.Get("/airlines", page(h, h.svc.Airlines))
		r.Get("/routes", page(h, h.svc.Routes))
		r.Get("/deep-dive", page(h, h.svc.DeepDive))
		r.Get("/quality", page(h, h.svc.Quality))
		r.Get("/charts/{name}.png", h.Chart)
		r.Get("/export.xlsx", h.Export)
		r.Get("/digest", page(h, func(q processor.Query) (map[string]string, error) {
			title, text, err := h.svc.Digest(q)
			if err != nil {
				return nil, err
			}
			return map[string]string{"title": title, "text": text}, nil
		}))
		r.Post("/reload", h.Reload)
		r.Get("/charts", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, dashboard.ChartNames)
		})
	})

	return r
}
