package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
)

// CreateStreamer handles POST /api/streamers. A fresh streamer gets
// alert settings (and therefore a widget token) immediately.
func (s *Server) CreateStreamer(c *gin.Context) {
	var req streamerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	streamer, err := s.streamerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	settings, err := s.securitySvc.EnsureSettings(c.Request.Context(), streamer.ID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"streamer":  streamer,
		"token":     settings.Token,
		"widgetUrl": s.widgetURL(settings.Token),
	})
}

// UpdateBankCredentials handles PUT /api/streamers/:id/bank.
func (s *Server) UpdateBankCredentials(c *gin.Context) {
	var req streamerdomain.UpdateBankCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.StreamerID = c.Param("id")

	if err := s.streamerSvc.UpdateBankCredentials(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetDonationTotals handles GET /api/streamers/:id/donation-totals.
// Totals are recomputed from the ledger on every call.
func (s *Server) GetDonationTotals(c *gin.Context) {
	totals, err := s.txSvc.Totals(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "totals": totals})
}
