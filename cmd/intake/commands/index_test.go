// ABOUTME: Tests for the index command's maintenance paths
// ABOUTME: Stats and clear run without an API key; indexing needs one

package commands

import (
	"strings"
	"testing"
)

func TestIndexCmd_Flags(t *testing.T) {
	cmd := NewIndexCmd()
	for _, name := range []string{"force", "stats", "clear"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("--%s flag not found", name)
		}
	}
}

func TestIndex_StatsWithoutKey(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "index", "--stats")
	if err != nil {
		t.Fatalf("index --stats error = %v", err)
	}
	if !strings.Contains(out, "Documents: 0") {
		t.Errorf("stats = %s", out)
	}

	out, err = run(t, "", "index", "--stats", "--format", "json")
	if err != nil {
		t.Fatalf("index --stats --format json error = %v", err)
	}
	if !strings.Contains(out, `"chunks": 0`) {
		t.Errorf("json stats = %s", out)
	}
}

func TestIndex_Clear(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "index", "--clear")
	if err != nil {
		t.Fatalf("index --clear error = %v", err)
	}
	if !strings.Contains(out, "Index cleared") {
		t.Errorf("clear output = %s", out)
	}
}

func TestIndex_Errors(t *testing.T) {
	isolate(t)

	if _, err := run(t, "", "index", "--stats", "--clear"); err == nil {
		t.Error("--stats and --clear together should fail")
	}
	if _, err := run(t, "", "index"); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("index without key error = %v", err)
	}
}
