package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
)

// GetSecuritySettings handles GET /api/streamers/:id/security. The
// settings model redacts the token and secret; lifecycle endpoints are
// the only place fresh credentials appear.
func (s *Server) GetSecuritySettings(c *gin.Context) {
	settings, err := s.securitySvc.GetByStreamerID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// UpdateSecuritySettings handles PUT /api/streamers/:id/security.
func (s *Server) UpdateSecuritySettings(c *gin.Context) {
	var req securitydomain.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.StreamerID = c.Param("id")

	settings, err := s.securitySvc.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

// RegenerateToken handles POST /api/streamers/:id/security/regenerate.
// The response is the only time the new token and secret are shown.
func (s *Server) RegenerateToken(c *gin.Context) {
	resp, err := s.securitySvc.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"token":     resp.Token,
		"secret":    resp.SignatureSecret,
		"widgetUrl": s.widgetURL(resp.Token),
	})
}

type revokeTokenRequest struct {
	Reason string `json:"reason"`
}

// RevokeToken handles POST /api/streamers/:id/security/revoke.
func (s *Server) RevokeToken(c *gin.Context) {
	var req revokeTokenRequest
	_ = c.ShouldBindJSON(&req) // reason optional

	if err := s.securitySvc.Revoke(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSecurityViolations handles GET /api/streamers/:id/security/violations.
func (s *Server) ListSecurityViolations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	violations, err := s.securitySvc.ListViolations(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "violations": violations})
}
