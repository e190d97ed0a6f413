package transport

import (
	"net"
	"strings"

	"github.com/pion/webrtc/v4"

	"github.com/NicolasCrausaz-HEIG-VD/PLM-ElmO-Game/internal/config"
)

// ICEConfig holds ICE server configuration for WebRTC PeerConnections.
type ICEConfig struct {
	Servers []webrtc.ICEServer

	// Relay restricts candidates to TURN relays.
	Relay bool
}

// ICEConfigFromConfig builds the ICE servers from the STUN/TURN settings.
// Relay-only mode is used when asked for, or when the machine looks like it
// sits behind a VPN or carrier-grade NAT, but only if a TURN server exists.
func ICEConfigFromConfig(cfg *config.Config) ICEConfig {
	var ice ICEConfig
	if stun := cfg.GetSTUNServers(); stun != nil {
		ice.Servers = append(ice.Servers, webrtc.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		ice.Servers = append(ice.Servers, webrtc.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	ice.Relay = turnServers != nil && (cfg.ForceRelay || ShouldForceRelay())
	return ice
}

func (c ICEConfig) configuration() webrtc.Configuration {
	policy := webrtc.ICETransportPolicyAll
	if c.Relay {
		policy = webrtc.ICETransportPolicyRelay
	}
	return webrtc.Configuration{
		ICEServers:         c.Servers,
		ICETransportPolicy: policy,
	}
}

// cgnatBlock is 100.64.0.0/10, used by carrier-grade NAT, Tailscale and WARP.
var cgnatBlock = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// ShouldForceRelay checks if the system is likely behind a restrictive VPN or CGNAT,
// where direct peer-to-peer paths usually fail.
func ShouldForceRelay() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if vpnInterfaceName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && cgnatBlock.Contains(ipNet.IP) {
				return true
			}
		}
	}

	return false
}

func vpnInterfaceName(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range []string{"tun", "tap", "wg", "ppp", "warp"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
