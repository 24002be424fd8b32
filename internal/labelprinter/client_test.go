package labelprinter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"octolabel/internal/script"
	"octolabel/internal/settings"
	logx "octolabel/pkg/logx"
)

type staticOptions settings.GlobalOptions

func (s staticOptions) Global(context.Context) (settings.GlobalOptions, error) {
	return settings.GlobalOptions(s), nil
}

type recordingScripts struct{ calls []script.Phase }

func (r *recordingScripts) Run(_ context.Context, _ string, phase script.Phase) script.Result {
	r.calls = append(r.calls, phase)
	return script.Result{}
}

func TestSendPostsFixedForm(t *testing.T) {
	t.Parallel()
	var got struct {
		method, path, ctype string
		form                map[string]string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.ctype = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		got.form = map[string]string{}
		for k := range r.PostForm {
			got.form[k] = r.PostForm.Get(k)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	scripts := &recordingScripts{}
	addr := strings.TrimPrefix(srv.URL, "http://")
	c := New(Config{}, staticOptions{PrinterAddress: addr}, scripts, logx.Nop())

	d, err := c.Send(context.Background(), "printing_done", "Benchy done")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if d.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", d.StatusCode)
	}
	if got.method != http.MethodPost || got.path != "/api/print/text" {
		t.Fatalf("request = %s %s", got.method, got.path)
	}
	if got.ctype != "application/x-www-form-urlencoded" {
		t.Fatalf("content type = %q", got.ctype)
	}
	want := map[string]string{
		"text":          "Benchy done",
		"font_family":   "DejaVu Sans (Condensed Bold)",
		"font_size":     "30",
		"label_size":    "62",
		"align":         "center",
		"margin_top":    "24",
		"margin_bottom": "45",
		"margin_left":   "35",
		"margin_right":  "35",
	}
	for k, v := range want {
		if got.form[k] != v {
			t.Fatalf("form[%s] = %q, want %q", k, got.form[k], v)
		}
	}
	if len(scripts.calls) != 2 || scripts.calls[0] != script.Before || scripts.calls[1] != script.After {
		t.Fatalf("script phases = %v, want [before after]", scripts.calls)
	}
}

func TestSendReportsStatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "printer offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	scripts := &recordingScripts{}
	c := New(Config{}, staticOptions{PrinterAddress: srv.URL}, scripts, logx.Nop())
	d, err := c.Send(context.Background(), "startup", "hi")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("err = %v, want 503", err)
	}
	if d.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", d.StatusCode)
	}
	if len(scripts.calls) != 2 {
		t.Fatalf("after script must run on failure too, calls = %v", scripts.calls)
	}
}

func TestSendWithoutAddress(t *testing.T) {
	t.Parallel()
	c := New(Config{}, staticOptions{}, nil, logx.Nop())
	if _, err := c.Send(context.Background(), "startup", "hi"); !errors.Is(err, ErrNoPrinterAddress) {
		t.Fatalf("err = %v, want ErrNoPrinterAddress", err)
	}
}

func TestEndpoint(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"192.168.1.20":            "http://192.168.1.20/api/print/text",
		"printer.local:8013":      "http://printer.local:8013/api/print/text",
		"https://labels.example/": "https://labels.example/api/print/text",
	}
	for in, want := range tests {
		if got := endpoint(in); got != want {
			t.Fatalf("endpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
