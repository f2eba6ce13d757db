// ABOUTME: End-to-end tests for the chat command running offline
// ABOUTME: A full report, a confirmation, and the filed ticket, then inspection via session commands

package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullReport = "Có cháy ở 123 Nguyễn Huệ, Phường Bến Nghé, Quận 1, Thành phố Hồ Chí Minh. SĐT 0912345678, 3 người bị thương"

func TestChat_FilesTicket(t *testing.T) {
	dir := isolate(t)

	out, err := run(t, fullReport+"\nđúng\n/quit\n", "chat", "--offline", "--session", "t1", "-q")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "XÁC NHẬN") {
		t.Errorf("chat output should show the summary:\n%s", out)
	}
	if !strings.Contains(out, "Ticket TD-") {
		t.Fatalf("chat output should show the ticket id:\n%s", out)
	}

	out, err = run(t, "", "session", "list")
	if err != nil {
		t.Fatalf("session list error = %v", err)
	}
	if !strings.Contains(out, "t1") || !strings.Contains(out, "completed") {
		t.Errorf("session list = %s", out)
	}

	out, err = run(t, "", "session", "show", "t1")
	if err != nil {
		t.Fatalf("session show error = %v", err)
	}
	if !strings.Contains(out, "0912345678") || !strings.Contains(out, "Ticket:") {
		t.Errorf("session show = %s", out)
	}

	path := filepath.Join(dir, "t1.yaml")
	if _, err := run(t, "", "session", "export", "t1", "-o", path); err != nil {
		t.Fatalf("session export error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "ticket_id: TD-") || !strings.Contains(string(data), "messages:") {
		t.Errorf("export = %s", data)
	}

	if _, err := run(t, "", "session", "clear", "t1"); err != nil {
		t.Fatalf("session clear error = %v", err)
	}
	if _, err := run(t, "", "session", "show", "t1"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("show after clear error = %v", err)
	}
}

func TestChat_RequiresKeyUnlessOffline(t *testing.T) {
	isolate(t)

	if _, err := run(t, "/quit\n", "chat"); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("chat without key error = %v", err)
	}
}

func TestChat_NewSessionCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "cháy\n/new\n/state\n/quit\n", "chat", "--offline", "--session", "first", "-q")
	if err != nil {
		t.Fatalf("chat error = %v", err)
	}
	if !strings.Contains(out, "Session ") {
		t.Errorf("/new should announce the new session:\n%s", out)
	}
	if !strings.Contains(out, "nothing collected yet") {
		t.Errorf("/state on a fresh session:\n%s", out)
	}
}
