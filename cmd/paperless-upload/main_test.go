package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nhle/paperless-upload/internal/credential"
	"github.com/nhle/paperless-upload/internal/model"
)

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"short":            "****",
		"0123456789abcdef": "****cdef",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCredentialKey(t *testing.T) {
	key, err := credentialKey("IMAP")
	if err != nil || key != credential.IMAPPasswordKey {
		t.Errorf("credentialKey(IMAP) = %q, %v", key, err)
	}
	if _, err := credentialKey("ftp"); err == nil {
		t.Error("expected error for unknown credential")
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"upload", "quick"},
		{"upload", "attachment"},
		{"upload", "email"},
		{"messages", "import"},
		{"messages", "list"},
		{"messages", "attachments"},
		{"lookup", "correspondents"},
		{"lookup", "tags"},
		{"lookup", "document-types"},
		{"check"},
		{"token", "set"},
		{"token", "delete"},
		{"config", "init"},
		{"config", "show"},
		{"serve-smtp"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}

func TestConfigInitAndImport(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	cfg := model.DefaultAppConfig()
	cfg.Mailbox.DBPath = filepath.Join(dir, "mailbox.db")
	if err := model.SaveConfig(cfgPath, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	eml := filepath.Join(dir, "invoice.eml")
	writeFile(t, eml, "From: alice@example.com\r\nSubject: Invoice #42\r\n\r\nHello\r\n")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config", cfgPath, "messages", "import", eml})
	if err := root.Execute(); err != nil {
		t.Fatalf("import: %v", err)
	}

	root = newRootCmd()
	root.SetArgs([]string{"--config", cfgPath, "config", "init"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "exists") {
		t.Errorf("config init over existing file: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
