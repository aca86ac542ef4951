package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseJumpboxURL(t *testing.T) {
	settings, err := parseJumpboxURL("ssh+socks5://ubuntu@10.0.0.5:22?private-key=/tmp/key")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if settings.username != "ubuntu" || settings.host != "10.0.0.5:22" || settings.keyPath != "/tmp/key" {
		t.Errorf("Unexpected settings %+v", settings)
	}
}

func TestParseJumpboxURL_Rejects(t *testing.T) {
	tests := map[string]string{
		"http scheme":     "http://proxy:8080",
		"missing key":     "ssh+socks5://ubuntu@10.0.0.5:22",
		"missing host":    "ssh+socks5://?private-key=/tmp/key",
		"unparseable url": "ssh+socks5://%zz",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseJumpboxURL(raw); err == nil {
				t.Errorf("Expected error for %q", raw)
			}
		})
	}
}

func TestJumpboxDialContext_MissingKeyFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := jumpboxDialContext("ssh+socks5://ubuntu@10.0.0.5:22?private-key=" + missing)
	if err == nil || !strings.Contains(err.Error(), "private key") {
		t.Errorf("Expected key read error, got %v", err)
	}
}

func TestJumpboxDialContext_ReadsKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "id_rsa")
	if err := os.WriteFile(keyPath, []byte("not-a-real-key"), 0o600); err != nil {
		t.Fatal(err)
	}

	dial, err := jumpboxDialContext("ssh+socks5://ubuntu@10.0.0.5:22?private-key=" + keyPath)
	if err != nil {
		t.Fatalf("Expected lazy dialer, got %v", err)
	}
	if dial == nil {
		t.Fatal("Expected a dial function")
	}
}
