package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/user_agent"
)

// GetIPAddress gets the real IP address from request
func GetIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// DescribeDevice turns a User-Agent header into a short label such as
// "Firefox 121.0 on Linux x86_64".
func DescribeDevice(header string) string {
	if header == "" {
		return "unknown device"
	}

	ua := user_agent.New(header)
	if ua.Bot() {
		name, _ := ua.Browser()
		return fmt.Sprintf("bot (%s)", name)
	}

	name, version := ua.Browser()
	if name == "" {
		return "unknown device"
	}

	label := name
	if version != "" {
		label += " " + version
	}
	if os := ua.OS(); os != "" {
		label += " on " + os
	}
	if ua.Mobile() {
		label += " (mobile)"
	}
	return label
}
