package credential

import (
	"testing"

	"github.com/remberq/simple-voice-transcribe/internal/db"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"openai":      "DICTATE_API_KEY_OPENAI",
		"my-gateway":  "DICTATE_API_KEY_MY_GATEWAY",
		"open.router": "DICTATE_API_KEY_OPEN_ROUTER",
	}
	for id, want := range tests {
		if got := EnvName(id); got != want {
			t.Errorf("EnvName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestChainFallsBackToEnv(t *testing.T) {
	mem := NewMemory()
	env := &Env{lookup: func(name string) (string, bool) {
		if name == "DICTATE_API_KEY_GEMINI" {
			return " AIza-env \n", true
		}
		return "", false
	}}
	chain := NewChain(mem, env)

	got, err := chain.Get("gemini")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "AIza-env" {
		t.Errorf("Get = %q, want %q", got, "AIza-env")
	}

	if err := chain.Set("gemini", "AIza-stored"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = chain.Get("gemini")
	if got != "AIza-stored" {
		t.Errorf("Get after Set = %q, want %q", got, "AIza-stored")
	}

	if err := chain.Delete("gemini"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = chain.Get("gemini")
	if got != "AIza-env" {
		t.Errorf("Get after Delete = %q, want env value", got)
	}
}

func TestEnvIsReadOnly(t *testing.T) {
	if err := NewEnv().Set("openai", "x"); err == nil {
		t.Error("expected error writing to env store")
	}
}

func TestDurable(t *testing.T) {
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	d := NewDurable(store)
	if got, err := d.Get("openai"); err != nil || got != "" {
		t.Fatalf("Get empty = %q, %v", got, err)
	}
	if err := d.Set("openai", "sk-123456"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := d.Get("openai"); got != "sk-123456" {
		t.Errorf("Get = %q, want %q", got, "sk-123456")
	}
	if err := d.Delete("openai"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := d.Get("openai"); got != "" {
		t.Errorf("Get after delete = %q, want empty", got)
	}
}
