package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AirTrafficStory/src/config"
	"AirTrafficStory/src/dashboard"
	"AirTrafficStory/src/datapush"
	"AirTrafficStory/src/datasource"
	"AirTrafficStory/src/datasource/file"
	"AirTrafficStory/src/model"
	"AirTrafficStory/src/storage"

	"github.com/robfig/cron"
	"github.com/xuri/excelize/v2"
)

const aptCSV = `annee;mois;code_aeroport;nom_aeroport;zone;passagers_depart;passagers_arrivee;passagers_transit;fret_depart;fret_arrivee;mouvements_passagers;mouvements_cargo
2019;1;LFPG;PARIS-CDG;MT;50;50;0;5;5;10;1
2024;1;LFPG;PARIS-CDG;MT;40;45;0;4;4;8;1
2024;1;TFFR;POINTE-A-PITRE;OM;10;10;0;2;0;2;0
`

func newTestService(t *testing.T) *dashboard.Service {
	t.Helper()
	dir := t.TempDir()
	apt := filepath.Join(dir, "apt.csv")
	if err := os.WriteFile(apt, []byte(aptCSV), 0644); err != nil {
		t.Fatal(err)
	}
	cache := storage.NewResultCache(32)
	store := datasource.NewStoreFromSource(file.Source{Paths: map[model.Kind]string{model.KindAirports: apt}}, []string{dir}, cache, nil)
	if err := store.Load(); err != nil {
		t.Fatal(err)
	}
	return dashboard.NewService(store, cache, dashboard.Options{}, nil)
}

func TestExportReport(t *testing.T) {
	svc := newTestService(t)
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := exportReport(svc, dir, time.Date(2025, 1, 2, 6, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "air-traffic-20250102-060000.xlsx" {
		t.Errorf("path = %s", path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) == 0 || sheets[0] != "KPI" {
		t.Errorf("sheets = %v", sheets)
	}
}

func TestPushDigest(t *testing.T) {
	svc := newTestService(t)
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Markdown map[string]string `json:"markdown"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		text = body.Markdown["text"]
		w.Write([]byte(`{"errcode":0}`))
	}))
	defer srv.Close()

	// 没有上传地址时只推送正文
	pusher := datapush.NewPusher(srv.URL, "", 1, time.Millisecond, nil)
	if err := pushDigest(context.Background(), svc, pusher); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "PARIS-CDG") || strings.Contains(text, "![") {
		t.Errorf("text = %q", text)
	}
}

func TestScheduleJobs(t *testing.T) {
	cfg, _, err := config.LoadConfig("../config", "config.json", "dataconfig.json")
	if err != nil {
		t.Fatal(err)
	}
	logger, err := storage.NewLogger(filepath.Join(t.TempDir(), "app.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	c := cron.New()
	if err := scheduleJobs(context.Background(), c, cfg, newTestService(t), logger); err != nil {
		t.Fatal(err)
	}
	// 日志轮转 + 定时导出；推送和邮件在示例配置中关闭
	if n := len(c.Entries()); n != 2 {
		t.Errorf("entries = %d", n)
	}

	bad := *cfg
	bad.Report.Cron = "not a spec"
	if err := scheduleJobs(context.Background(), cron.New(), &bad, newTestService(t), logger); err == nil {
		t.Error("invalid cron spec should fail")
	}
}
