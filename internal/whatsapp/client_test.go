package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+55 (11) 99999-8888", "5511999998888"},
		{"5511999998888", "5511999998888"},
		{"5511999998888@s.whatsapp.net", "5511999998888"},
	}
	for _, tt := range tests {
		if got := CleanNumber(tt.in); got != tt.want {
			t.Errorf("CleanNumber(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSendText(t *testing.T) {
	var gotPath, gotKey string
	var gotPayload sendTextPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "ayla", testLogger())
	err := c.SendText(context.Background(), "+55 11 99999-8888", "Oi Maria!")
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if gotPath != "/message/sendText/ayla" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("apikey header = %q", gotKey)
	}
	if gotPayload.Number != "5511999998888" {
		t.Errorf("number = %q, want digits only", gotPayload.Number)
	}
	if gotPayload.Text != "Oi Maria!" {
		t.Errorf("text = %q", gotPayload.Text)
	}
	if gotPayload.Options.Presence != "composing" || gotPayload.Options.Delay != 3500 {
		t.Errorf("options = %+v", gotPayload.Options)
	}
}

func TestSendTextGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"instance not connected"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "ayla", testLogger())
	err := c.SendText(context.Background(), "5511999998888", "Oi")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "instance not connected") {
		t.Errorf("error = %v, want status and body", err)
	}
}

func TestCheckConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance/connectionState/ayla" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"instance": map[string]any{"instanceName": "ayla", "state": "open"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "ayla", testLogger())
	state, err := c.CheckConnection(context.Background())
	if err != nil {
		t.Fatalf("CheckConnection() error: %v", err)
	}
	if state.Instance != "ayla" || state.State != "open" {
		t.Errorf("state = %+v", state)
	}
}

func TestConnectInstance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/instance/connect/ayla" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"pairingCode": "ABCD-1234",
			"code":        "2@qrpayload",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", "ayla", testLogger())
	info, err := c.ConnectInstance(context.Background())
	if err != nil {
		t.Fatalf("ConnectInstance() error: %v", err)
	}
	if info.PairingCode != "ABCD-1234" || info.QRCode != "2@qrpayload" {
		t.Errorf("info = %+v", info)
	}
}
