package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aylahq/ayla-agent/internal/config"
)

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, nil); err != nil {
		t.Fatalf("run() = %v, want nil", err)
	}
	if !strings.Contains(out.String(), "Usage: ayla") {
		t.Errorf("usage output missing, got:\n%s", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("run() = %v, want unknown command error", err)
	}
}

func TestRunUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("run() = %v, want unknown flag error", err)
	}
}

func TestRunBadOutputFormat(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-o", "xml", "version"})
	if err == nil || !strings.Contains(err.Error(), "output format") {
		t.Errorf("run() = %v, want output format error", err)
	}
}

func TestVersionText(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"version"}); err != nil {
		t.Fatalf("run(version) = %v", err)
	}
	got := out.String()
	for _, want := range []string{"Ayla", "version:", "go_version:"} {
		if !strings.Contains(got, want) {
			t.Errorf("version output missing %q, got:\n%s", want, got)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run(version) = %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("version json invalid: %v\n%s", err, out.String())
	}
	if info["version"] == "" {
		t.Error("version field empty")
	}
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"init", dir}); err != nil {
		t.Fatalf("run(init) = %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config.yaml not written: %v", err)
	}
	if !strings.Contains(string(data), "gateway:") {
		t.Error("config.yaml missing gateway section")
	}

	for _, p := range []string{"data", filepath.Join("personas", "onboarding.md"), filepath.Join("personas", "fitness.md")} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("expected %s after init: %v", p, err)
		}
	}
}

func TestRunInitNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("# custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), &out, &out, []string{"init", dir}); err != nil {
		t.Fatalf("run(init) = %v", err)
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "# custom\n" {
		t.Errorf("init overwrote existing config: %q", string(data))
	}
}

func TestPromiseListsMapping(t *testing.T) {
	lists := promiseLists(config.PromiseConfig{
		Phrases: []string{"vou criar", "vou montar"},
		ActionPairs: []config.ActionPair{
			{Action: "criar", Keywords: []string{"treino", "plano"}},
		},
	})
	if len(lists.Phrases) != 2 {
		t.Errorf("phrases = %d, want 2", len(lists.Phrases))
	}
	if len(lists.Pairs) != 1 || lists.Pairs[0].Action != "criar" {
		t.Errorf("pairs mapped wrong: %+v", lists.Pairs)
	}
	if len(lists.Pairs[0].Keywords) != 2 {
		t.Errorf("keywords = %v, want 2 entries", lists.Pairs[0].Keywords)
	}
}
