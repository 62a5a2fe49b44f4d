package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteJSON(t *testing.T) {
	t.Run("sets content-type and status", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"key": "value"}
		WriteJSON(w, http.StatusOK, body)

		if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("Code = %d; want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("encodes body as JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		body := map[string]string{"foo": "bar"}
		WriteJSON(w, http.StatusCreated, body)

		var got map[string]string
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("body is not valid JSON: %v", err)
		}
		if got["foo"] != "bar" {
			t.Errorf("body[foo] = %q; want bar", got["foo"])
		}
	})
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	status := http.StatusBadRequest
	msg := "invalid input"
	WriteError(w, status, msg)

	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json; charset=utf-8", got)
	}
	if w.Code != status {
		t.Errorf("Code = %d; want %d", w.Code, status)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if got["error"] != http.StatusText(status) {
		t.Errorf("error = %q; want %q", got["error"], http.StatusText(status))
	}
	if got["message"] != msg {
		t.Errorf("message = %q; want %q", got["message"], msg)
	}
}

func TestWriteHTML(t *testing.T) {
	t.Run("writes rendered body", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteHTML(w, func(out io.Writer) error {
			_, err := io.WriteString(out, "<p>hej</p>")
			return err
		})
		if err != nil {
			t.Fatalf("WriteHTML() = %v", err)
		}
		if got := w.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
			t.Errorf("Content-Type = %q", got)
		}
		if w.Body.String() != "<p>hej</p>" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("render error leaves response untouched", func(t *testing.T) {
		w := httptest.NewRecorder()
		boom := errors.New("template missing")
		err := WriteHTML(w, func(out io.Writer) error {
			_, _ = io.WriteString(out, "<p>partial")
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WriteHTML() = %v; want %v", err, boom)
		}
		if w.Body.Len() != 0 || w.Header().Get("Content-Type") != "" {
			t.Errorf("response written on error: %q", w.Body.String())
		}
	})
}

func TestDecimalComma(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{21.46, "21,5"},
		{21, "21,0"},
		{-3.25, "-3,3"},
		{-0.04, "0,0"},
		{18.04, "18,0"},
	}
	for _, tt := range tests {
		if got := DecimalComma(tt.in); got != tt.want {
			t.Errorf("DecimalComma(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestSwedishFormats(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 14, 0, 0, 0, time.UTC)
	if got := SwedishDate(ts); got != "2 januari 2025" {
		t.Errorf("SwedishDate = %q", got)
	}
	if got := SwedishDay(ts.AddDate(0, 4, 0)); got != "2 maj" {
		t.Errorf("SwedishDay = %q", got)
	}
	if got := StatusHeading(ts); got != "Kl 14:00 (2/1)" {
		t.Errorf("StatusHeading = %q", got)
	}
	if got := HourDayLabel(ts.Add(-5 * time.Hour)); got != "09:00 - 2/1" {
		t.Errorf("HourDayLabel = %q", got)
	}
	for m := time.January; m <= time.December; m++ {
		if SwedishMonth(m) == "" {
			t.Errorf("SwedishMonth(%v) empty", m)
		}
	}
	if got := SwedishMonth(time.Month(13)); got == "" {
		t.Error("SwedishMonth(13) empty")
	}
}
