package config

import (
	"testing"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ELMO_DOMAIN", "DOMAIN", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME",
		"TURN_PASSWORD", "ELMO_FORCE_RELAY", "ELMO_MAX_PLAYERS", "ELMO_NAMESPACE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Errorf("Domain = %q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.SignalingURL != "ws://localhost:8080/ws" {
		t.Errorf("SignalingURL = %q", cfg.SignalingURL)
	}
	if cfg.MaxPlayers != DefaultMaxPlayers {
		t.Errorf("MaxPlayers = %d, want %d", cfg.MaxPlayers, DefaultMaxPlayers)
	}
	if cfg.Namespace != roomcode.DefaultNamespace {
		t.Errorf("Namespace = %q", cfg.Namespace)
	}
	if cfg.GetTURNServers() != nil {
		t.Errorf("GetTURNServers() = %v, want nil without a TURN server", cfg.GetTURNServers())
	}
}

func TestLoadPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("ELMO_DOMAIN", "env.example.com")
	t.Setenv("ELMO_MAX_PLAYERS", "10")
	t.Setenv("TURN_SERVER", "turn.example.com")

	cfg, err := Load(Options{STUNServer: "stun:flag.example.com:3478"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "env.example.com" {
		t.Errorf("Domain = %q, want env value", cfg.Domain)
	}
	if cfg.SignalingURL != "wss://env.example.com/ws" {
		t.Errorf("SignalingURL = %q", cfg.SignalingURL)
	}
	if cfg.MaxPlayers != 10 {
		t.Errorf("MaxPlayers = %d, want 10", cfg.MaxPlayers)
	}
	if cfg.STUNServer != "stun:flag.example.com:3478" {
		t.Errorf("STUNServer = %q, want flag value", cfg.STUNServer)
	}
	if got := cfg.GetTURNServers(); len(got) != 3 || got[0] != "turn:turn.example.com:3478?transport=udp" {
		t.Errorf("GetTURNServers() = %v", got)
	}

	cfg, err = Load(Options{Domain: "flag.example.com", MaxPlayers: 6})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "flag.example.com" || cfg.MaxPlayers != 6 {
		t.Errorf("flags did not win: domain=%q max=%d", cfg.Domain, cfg.MaxPlayers)
	}
}

func TestLoadDefaultDomainFlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "legacy.example.com")

	cfg, err := Load(Options{Domain: DefaultDomain})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Errorf("Domain = %q, want the flag value %q", cfg.Domain, DefaultDomain)
	}

	cfg, err = Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "legacy.example.com" {
		t.Errorf("Domain = %q, want DOMAIN when nothing else is set", cfg.Domain)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)

	if _, err := Load(Options{MaxPlayers: 1}); err == nil {
		t.Error("Load accepted a one-player room")
	}

	t.Setenv("ELMO_MAX_PLAYERS", "many")
	if _, err := Load(Options{}); err == nil {
		t.Error("Load accepted a non-numeric ELMO_MAX_PLAYERS")
	}
}
