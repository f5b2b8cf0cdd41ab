package email

import (
	"strings"
	"testing"

	"github.com/aylahq/ayla-agent/internal/config"
)

func TestComposeMessage(t *testing.T) {
	msg, err := ComposeMessage(ComposeOptions{
		From:    "Ayla <ayla@ayla.fit>",
		To:      "maria@example.com",
		Subject: "Bem-vindo à Ayla!",
		Body:    "# Olá, Maria!\n\nSua **senha temporária**: abc123\n\n[Finalizar cadastro](https://app.ayla.fit/onboarding/42)",
	})
	if err != nil {
		t.Fatalf("ComposeMessage() error: %v", err)
	}

	raw := string(msg)
	for _, want := range []string{
		"ayla@ayla.fit",
		"maria@example.com",
		"multipart/alternative",
		"text/plain",
		"text/html",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
	if !strings.Contains(strings.ToLower(raw), "message-id") {
		t.Error("message missing Message-ID header")
	}
}

func TestComposeMessageBadAddress(t *testing.T) {
	_, err := ComposeMessage(ComposeOptions{
		From: "not an address", To: "maria@example.com", Subject: "x", Body: "y",
	})
	if err == nil {
		t.Fatal("expected error for unparseable from address")
	}
}

func TestMarkdownToPlain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Email:** maria@example.com", "Email: maria@example.com"},
		{"# Olá, Maria!", "Olá, Maria!"},
		{"[cadastro](https://app.ayla.fit/x)", "cadastro (https://app.ayla.fit/x)"},
		{"- item um\n- item dois", "- item um\n- item dois"},
	}
	for _, tt := range tests {
		if got := markdownToPlain(tt.in); got != tt.want {
			t.Errorf("markdownToPlain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ayla <ayla@ayla.fit>", "ayla@ayla.fit"},
		{"ayla@ayla.fit", "ayla@ayla.fit"},
	}
	for _, tt := range tests {
		if got := extractAddress(tt.in); got != tt.want {
			t.Errorf("extractAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSenderRequiresConfig(t *testing.T) {
	if s := NewSender(config.SMTPConfig{}, nil); s != nil {
		t.Error("expected nil sender without host and from")
	}
	if s := NewSender(config.SMTPConfig{Host: "smtp.ayla.fit", From: "ayla@ayla.fit"}, nil); s == nil {
		t.Error("expected sender with host and from set")
	}
}
