package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/roomcode"
)

// Default configuration values
const (
	DefaultDomain     = "localhost:8080"
	DefaultSTUN       = "stun:stun.l.google.com:19302"
	DefaultMaxPlayers = 4
)

// Config holds application configuration
type Config struct {
	// Domain is the rendezvous server domain
	Domain string

	// SignalingURL is constructed from domain
	SignalingURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// MaxPlayers caps a hosted room, host included.
	MaxPlayers int

	// Namespace is the rendezvous prefix shared by every build of the game.
	Namespace string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	MaxPlayers int
	Namespace  string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = pick(os.Getenv("ELMO_DOMAIN"), "DOMAIN", DefaultDomain)
	}

	maxPlayers := opts.MaxPlayers
	if maxPlayers == 0 {
		if v := os.Getenv("ELMO_MAX_PLAYERS"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("invalid ELMO_MAX_PLAYERS %q: %w", v, err)
			}
			maxPlayers = n
		}
	}
	if maxPlayers == 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if maxPlayers < 2 {
		return nil, fmt.Errorf("max players must be at least 2, got %d", maxPlayers)
	}

	forceRelay := opts.ForceRelay
	if !forceRelay {
		if v := os.Getenv("ELMO_FORCE_RELAY"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid ELMO_FORCE_RELAY %q: %w", v, err)
			}
			forceRelay = b
		}
	}

	return &Config{
		Domain:       domain,
		SignalingURL: signalingURL(domain),
		STUNServer:   pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer:   pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:     pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:     pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay:   forceRelay,
		MaxPlayers:   maxPlayers,
		Namespace:    pick(opts.Namespace, "ELMO_NAMESPACE", roomcode.DefaultNamespace),
	}, nil
}

// pick returns flag if set, then the environment variable, then def.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// signalingURL uses plain ws for local servers and wss everywhere else.
func signalingURL(domain string) string {
	if strings.Contains(domain, "://") {
		return domain
	}
	host := domain
	if h, _, err := net.SplitHostPort(domain); err == nil {
		host = h
	}
	scheme := "wss"
	if host == "localhost" || net.ParseIP(host).IsLoopback() {
		scheme = "ws"
	}
	return fmt.Sprintf("%s://%s/ws", scheme, domain)
}

// Codec returns the room code codec for the configured namespace.
func (c *Config) Codec() roomcode.Codec {
	return roomcode.New(c.Namespace)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turn:"), "turns:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
