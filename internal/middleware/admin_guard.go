package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
)

// AdminGuard restricts the admin API to whitelisted IPs and requires a valid
// TOTP code on every request. Localhost is always allowed through the IP
// check; the TOTP check applies regardless of source address.
type AdminGuard struct {
	logger     *logrus.Logger
	allowedIPs []string // IP addresses or CIDR ranges
	totpSecret string
}

// NewAdminGuard creates the admin access middleware.
func NewAdminGuard(logger *logrus.Logger, allowedIPs []string, totpSecret string) *AdminGuard {
	return &AdminGuard{
		logger:     logger,
		allowedIPs: allowedIPs,
		totpSecret: totpSecret,
	}
}

// Restrict enforces the IP whitelist and the TOTP code.
func (g *AdminGuard) Restrict() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !g.isAllowedIP(clientIP) {
			remoteIP, _, _ := net.SplitHostPort(c.Request.RemoteAddr)
			if remoteIP == clientIP || !isLocalhost(remoteIP) {
				g.logger.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"remote_ip": remoteIP,
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
				}).Warn("Reject non-whitelisted access to admin API")

				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"success": false,
					"error":   "This API is only accessible from allowed IP addresses",
					"code":    "IP_NOT_ALLOWED",
				})
				return
			}
			// Direct loopback connection behind a misreported client IP.
		}

		if g.totpSecret != "" {
			code := c.GetHeader("X-Admin-TOTP")
			if code == "" || !totp.Validate(code, g.totpSecret) {
				g.logger.WithFields(logrus.Fields{
					"client_ip": clientIP,
					"path":      c.Request.URL.Path,
				}).Warn("Access denied - TOTP verification failed")

				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"success": false,
					"error":   "Invalid or missing TOTP code",
					"code":    "INVALID_TOTP",
				})
				return
			}
		}

		g.logger.WithFields(logrus.Fields{
			"client_ip": clientIP,
			"path":      c.Request.URL.Path,
			"time":      time.Now().Format(time.RFC3339),
		}).Info("Admin access permitted")

		c.Next()
	}
}

func isLocalhost(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return ip == "localhost"
	}
	return parsedIP.IsLoopback()
}

func (g *AdminGuard) isAllowedIP(ip string) bool {
	if isLocalhost(ip) {
		return true
	}
	if len(g.allowedIPs) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	for _, allowed := range g.allowedIPs {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.Contains(allowed, "/") {
			_, ipNet, err := net.ParseCIDR(allowed)
			if err != nil {
				g.logger.WithFields(logrus.Fields{
					"allowed": allowed,
					"error":   err.Error(),
				}).Warn("Invalid CIDR in allowedIPs")
				continue
			}
			if parsedIP != nil && ipNet.Contains(parsedIP) {
				return true
			}
			continue
		}
		if allowed == ip {
			return true
		}
		if allowedIP := net.ParseIP(allowed); allowedIP != nil && parsedIP != nil && allowedIP.Equal(parsedIP) {
			return true
		}
	}
	return false
}
