// handlers.go
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"AirTrafficStory/src/dashboard"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/processor"
	"AirTrafficStory/src/storage"
	"AirTrafficStory/src/utils"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Reloader 手动触发重新载入，datasource.Store 实现了它
type Reloader interface {
	Reload(reason string) error
}

// LogFeed /logs 的日志来源
type LogFeed interface {
	Subscribe() <-chan string
	Unsubscribe(<-chan string)
}

type Handlers struct {
	svc      *dashboard.Service
	reloader Reloader
	logs     LogFeed
	logger   *storage.Logger
}

func NewHandlers(svc *dashboard.Service, reloader Reloader, logs LogFeed, logger *storage.Logger) *Handlers {
	return &Handlers{svc: svc, reloader: reloader, logs: logs, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 参数错误 400，其余 500
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrInvalidFilter) {
		status = http.StatusBadRequest
	} else {
		h.logger.Error(fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// page 解析公共参数后调用页面计算并输出 JSON
func page[T any](h *Handlers, compute func(processor.Query) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		out, err := compute(q)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"data":   h.svc.Status(),
		"cache":  h.svc.CacheStats(),
	})
}

func (h *Handlers) Trends(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	growth, err := parseGrowth(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page(h, func(q processor.Query) (*dashboard.Trends, error) {
		return h.svc.Trends(kind, q, growth)
	})(w, r)
}

func (h *Handlers) Chart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	kind, err := model.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	png, err := h.svc.Chart(name, kind, q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sheets, err := h.svc.ExportSheets(q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// 先写缓冲区，出错时还能返回 JSON
	var buf bytes.Buffer
	if err := utils.WriteWorkbook(&buf, sheets...); err != nil {
		h.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("air-traffic-%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

// Reload 手动重新载入；失败时旧快照继续服务
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "reload not available"})
		return
	}
	if err := h.reloader.Reload("api"); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// Logs 实时推送日志，客户端断开时取消订阅
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		http.Error(w, "log stream not available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	logChan := h.logs.Subscribe()
	defer h.logs.Unsubscribe(logChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
	fmt.Fprintln(w, "# log stream")
	flush()

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			flush()
		case <-r.Context().Done():
			return
		}
	}
}
