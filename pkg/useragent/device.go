package useragent

import (
	"net/http"
	"strings"
)

// ExtractDeviceInfo builds a human-readable device label for session records.
// The mobile app sends an explicit X-Device-Name header; web and API clients
// fall back to a coarse User-Agent parse.
func ExtractDeviceInfo(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get("X-Device-Name")); name != "" {
		if len(name) > 100 {
			name = name[:100]
		}
		return name
	}

	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return "Unknown Device"
	}

	// The app identifies itself as "Sparkpad/<version> (<platform>)"
	if strings.HasPrefix(ua, "Sparkpad/") {
		version := strings.TrimPrefix(ua, "Sparkpad/")
		if idx := strings.IndexByte(version, ' '); idx != -1 {
			version = version[:idx]
		}
		return "Sparkpad " + version + " on " + parsePlatform(ua)
	}

	browser := "Unknown Browser"
	if strings.Contains(ua, "Chrome/") && !strings.Contains(ua, "Edg") {
		browser = "Chrome"
	} else if strings.Contains(ua, "Safari/") && !strings.Contains(ua, "Chrome") {
		browser = "Safari"
	} else if strings.Contains(ua, "Firefox/") {
		browser = "Firefox"
	} else if strings.Contains(ua, "Edg/") {
		browser = "Edge"
	}

	return browser + " on " + parsePlatform(ua)
}

func parsePlatform(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iOS"):
		return "iOS"
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac OS X"), strings.Contains(ua, "macOS"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	}
	return "Unknown OS"
}

// ExtractIPAddress gets the real IP address from the request
// Handles proxies and load balancers by checking X-Forwarded-For and X-Real-IP headers
func ExtractIPAddress(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// X-Real-IP is set by nginx
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}

	return ip
}
