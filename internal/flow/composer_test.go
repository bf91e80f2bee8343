package flow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Chronis77/aluuna-monorepo-sub002/internal/models"
)

func TestComposeFixedBlockOrder(t *testing.T) {
	c := NewPromptComposer("")
	out := c.Compose(models.ModeDailyCheckIn, "Profile:\n- risk level: low")

	markers := []string{
		"Aluuna",
		"Current mode: daily check-in",
		"Safety:",
		"Style:",
		"Using tools:",
		"What goes where:",
		"Using what you know:",
		"Boundaries:",
		"What you know about this user:",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		if idx < 0 {
			t.Fatalf("missing block %q in prompt", m)
		}
		if idx < last {
			t.Errorf("block %q out of order", m)
		}
		last = idx
	}
}

func TestComposeOmitsEmptyContext(t *testing.T) {
	c := NewPromptComposer("")
	out := c.Compose(models.ModeFreeForm, "")
	if strings.Contains(out, "What you know about this user") {
		t.Error("empty context must omit the context section")
	}
}

func TestComposeInvalidModeFallsBack(t *testing.T) {
	c := NewPromptComposer("")
	out := c.Compose(models.ConversationMode("bogus"), "")
	if !strings.Contains(out, "Current mode: free-form") {
		t.Error("invalid mode must compose as free-form")
	}
}

func TestComposerIdentityFileOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "identity.txt")
	if err := os.WriteFile(file, []byte("You are a test companion."), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewPromptComposer(file)
	out := c.Compose(models.ModeFreeForm, "")
	if !strings.HasPrefix(out, "You are a test companion.") {
		t.Error("expected identity override to lead the prompt")
	}
}

func TestComposerMissingFileUsesEmbeddedDefault(t *testing.T) {
	c := NewPromptComposer("/nonexistent/identity.txt")
	out := c.Compose(models.ModeFreeForm, "")
	if !strings.Contains(out, "Aluuna") {
		t.Error("expected embedded default identity")
	}
}
