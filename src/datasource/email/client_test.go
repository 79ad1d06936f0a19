package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"AirTrafficStory/src/model"
	"AirTrafficStory/src/utils"

	"github.com/xuri/excelize/v2"
)

type fakeMailbox struct {
	emails    []*Email
	seen      []uint32
	connected bool
}

func (f *fakeMailbox) Connect() error                       { f.connected = true; return nil }
func (f *fakeMailbox) Disconnect()                          { f.connected = false }
func (f *fakeMailbox) FetchUnreadEmails() ([]*Email, error) { return f.emails, nil }
func (f *fakeMailbox) MarkSeen(uids ...uint32) error {
	f.seen = append(f.seen, uids...)
	return nil
}

const aptCSV = "annee;mois;code_aeroport;passagers_depart\n2024;1;LFPG;100\n"

func rawMessage(subject, filename string, content []byte) string {
	var b strings.Builder
	b.WriteString("From: DGAC <open-data@example.fr>\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: Mon, 05 Feb 2024 08:00:00 +0100\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n\r\n")
	b.WriteString("--XYZ\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nci-joint\r\n")
	b.WriteString("--XYZ\r\nContent-Type: application/octet-stream\r\n")
	b.WriteString("Content-Disposition: attachment; filename=\"" + filename + "\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString(content) + "\r\n")
	b.WriteString("--XYZ--\r\n")
	return b.String()
}

func TestParseMessage(t *testing.T) {
	raw := rawMessage("=?ISO-8859-1?Q?Donn=E9es_trafic?=", "APT_2024.csv", []byte(aptCSV))
	e, err := ParseMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	if e.Subject != "Données trafic" {
		t.Errorf("subject = %q", e.Subject)
	}
	if len(e.Attachments) != 1 || e.Attachments[0].Filename != "APT_2024.csv" || string(e.Attachments[0].Content) != aptCSV {
		t.Errorf("attachments = %+v", e.Attachments)
	}
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"=?windows-1252?Q?a=E9roport?=", "aéroport"},
		{"=?gb2312?B?1tC5+g==?=", "中国"},
		{"=?utf-8?B?" + b64("trafic ✈") + "?=", "trafic ✈"},
	}
	for _, tt := range tests {
		if got := decodeHeader(tt.in); got != tt.want {
			t.Errorf("decodeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestAttachmentKind(t *testing.T) {
	tests := []struct {
		name string
		kind model.Kind
		ok   bool
	}{
		{"APT_2024.xlsx", model.KindAirports, true},
		{"dgac-cie.csv", model.KindAirlines, true},
		{"LSN.CSV", model.KindRoutes, true},
		{"capture.csv", "", false}, // "apt" 只能是独立的词
		{"apt.pdf", "", false},
	}
	for _, tt := range tests {
		k, ok := AttachmentKind(tt.name)
		if k != tt.kind || ok != tt.ok {
			t.Errorf("AttachmentKind(%q) = %v, %v", tt.name, k, ok)
		}
	}
}

func TestHandleConvertsXLSX(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "APT", "processed", "apt.csv")
	h := NewTableAttachmentHandler(map[model.Kind]string{model.KindAirports: target}, "", nil)

	var xlsx bytes.Buffer
	err := utils.WriteWorkbook(&xlsx, utils.Sheet{
		Name:    "APT",
		Headers: []string{"annee", "mois", "code_aeroport", "ville"},
		Rows:    [][]any{{2024, 1, "LFPG", ""}, {2024, 1, "LFMN", "Nice"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	e := &Email{UID: 7, Attachments: []*Attachment{
		{Filename: "APT_2024.xlsx", Content: xlsx.Bytes()},
		{Filename: "notes.txt", Content: []byte("ignored")},
	}}
	saved, err := h.Handle(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || saved[0] != target || !h.IsProcessed(7) {
		t.Fatalf("saved = %v", saved)
	}
	got, _ := os.ReadFile(target)
	want := "annee;mois;code_aeroport;ville\n2024;1;LFPG;\n2024;1;LFMN;Nice\n"
	if string(got) != want {
		t.Errorf("csv = %q", got)
	}

	// 已处理的邮件不再写入
	os.Remove(target)
	if saved, _ := h.Handle(e); len(saved) != 0 {
		t.Errorf("reprocessed: %v", saved)
	}
}

func TestHandleConvertsCSV(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "cie.xlsx")
	h := NewTableAttachmentHandler(map[model.Kind]string{model.KindAirlines: target}, "", nil)

	_, err := h.Handle(&Email{UID: 1, Attachments: []*Attachment{
		{Filename: "cie.csv", Content: []byte("annee,mois,cie,cie_pax\r\n2024,1,AF,60\r\n")},
	}})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenFile(target)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, _ := f.GetRows(f.GetSheetName(0))
	if len(rows) != 2 || rows[1][2] != "AF" {
		t.Errorf("rows = %v", rows)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestCheckAndProcessEmails(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "apt.csv")
	h := NewTableAttachmentHandler(map[model.Kind]string{model.KindAirports: target}, "", nil)

	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	box := &fakeMailbox{emails: []*Email{
		{UID: 2, Date: old.Add(time.Hour), Subject: "DGAC processed APT", Attachments: []*Attachment{
			{Filename: "apt.csv", Content: []byte(aptCSV + "2024;2;LFPG;120\n")},
		}},
		{UID: 1, Date: old, Subject: "dgac PROCESSED", Attachments: []*Attachment{
			{Filename: "apt.csv", Content: []byte(aptCSV)},
		}},
		{UID: 3, Date: old, Subject: "newsletter"},
	}}

	saved, err := CheckAndProcessEmails(context.Background(), box, h, "DGAC processed", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 || len(box.seen) != 2 || box.connected {
		t.Errorf("saved = %v, seen = %v", saved, box.seen)
	}
	// 较新的邮件最后写入
	got, _ := os.ReadFile(target)
	if !strings.Contains(string(got), "2024;2;LFPG;120") {
		t.Errorf("content = %q", got)
	}
}
