package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetClientIP resolve o IP de origem considerando proxies comuns na
// frente do serviço. Cabeçalhos inválidos caem no RemoteAddr do gin.
func GetClientIP(c *gin.Context) string {
	if ip := validateIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}

	if ips := c.GetHeader("X-Forwarded-For"); ips != "" {
		for _, part := range strings.Split(ips, ",") {
			if ip := validateIP(part); ip != "" {
				return ip
			}
		}
	}

	if ip := validateIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}

	return c.ClientIP()
}

func validateIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}

	// descarta porta quando presente (host:porta)
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	if net.ParseIP(ip) != nil {
		return ip
	}
	return ""
}
