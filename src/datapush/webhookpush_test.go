package datapush

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPushMarkdown(t *testing.T) {
	var got struct {
		MsgType  string            `json:"msgtype"`
		Markdown map[string]string `json:"markdown"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	p := NewPusher(srv.URL, "", 1, time.Millisecond, nil)
	if err := p.Push(context.Background(), "title", "**body**"); err != nil {
		t.Fatal(err)
	}
	if got.MsgType != "markdown" || got.Markdown["title"] != "title" || got.Markdown["text"] != "**body**" {
		t.Errorf("payload = %+v", got)
	}
}

func TestPushRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	p := NewPusher(srv.URL, "", 3, time.Millisecond, nil)
	if err := p.Push(context.Background(), "t", "x"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestPushErrCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errcode":310000,"errmsg":"keywords not in content"}`))
	}))
	defer srv.Close()

	p := NewPusher(srv.URL, "", 2, time.Millisecond, nil)
	err := p.Push(context.Background(), "t", "x")
	if err == nil || !strings.Contains(err.Error(), "keywords not in content") {
		t.Errorf("err = %v", err)
	}
	if err := NewPusher("", "", 1, 0, nil).Push(context.Background(), "t", "x"); err == nil {
		t.Error("empty webhook should fail")
	}
}

func TestPushWithImage(t *testing.T) {
	var text string
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("media")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		if string(b) != "\x89PNG" {
			http.Error(w, "bad image", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"errcode":0,"url":"https://img.example/trend.png"}`))
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Markdown map[string]string `json:"markdown"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		text = body.Markdown["text"]
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewPusher(srv.URL+"/hook", srv.URL+"/upload", 1, time.Millisecond, nil)
	if err := p.Push(context.Background(), "t", "body", Image{Name: "trend.png", PNG: []byte("\x89PNG")}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(text, "![trend.png](https://img.example/trend.png)") {
		t.Errorf("text = %q", text)
	}
}

func TestRetryContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retry(ctx, func() error {
		calls++
		return errors.New("down")
	}, 5, time.Hour)
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}
