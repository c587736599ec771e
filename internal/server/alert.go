package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tipcast/tipcast/internal/alertqueue"
	"github.com/tipcast/tipcast/internal/overlay"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	"go.uber.org/zap"
)

type sendAlertRequest struct {
	DonorName     string `json:"donorName"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Message       string `json:"message"`
	DonationID    string `json:"donationId"`
	PaymentMethod string `json:"paymentMethod"`
	Anonymous     bool   `json:"anonymous"`
}

// validateGate runs the security gate for a token-addressed request.
// The rejection detail lands in the log only; the response sees the
// generic mapped error.
func (s *Server) validateGate(c *gin.Context, token string) (*securitydomain.ValidateResult, bool) {
	var timestamp int64
	if raw := c.GetHeader("X-Timestamp"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			timestamp = parsed
		}
	}

	res, err := s.securitySvc.Validate(c.Request.Context(), securitydomain.ValidateRequest{
		Token:     token,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Signature: c.GetHeader("X-Signature"),
		Nonce:     c.GetHeader("X-Nonce"),
		Timestamp: timestamp,
	})
	if err != nil {
		s.log.Warn("alert request rejected",
			zap.String("path", c.FullPath()),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return nil, false
	}
	return res, true
}

// SendAlert handles POST /api/alert/:token.
func (s *Server) SendAlert(c *gin.Context) {
	var req sendAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if strings.TrimSpace(req.DonorName) == "" || req.Amount <= 0 || strings.TrimSpace(req.Currency) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	token := c.Param("token")
	res, ok := s.validateGate(c, token)
	if !ok {
		return
	}

	donor := strings.TrimSpace(req.DonorName)
	if req.Anonymous {
		donor = "Anonymous"
	}

	alertID := s.genID.Generate().String()
	reference := strings.TrimSpace(req.DonationID)
	if reference == "" {
		reference = alertID
	}

	streamerID := res.StreamerID.String()
	s.queue.Enqueue(alertqueue.Alert{
		StreamerID: streamerID,
		DonorName:  donor,
		Amount:     req.Amount,
		Currency:   strings.TrimSpace(req.Currency),
		Message:    req.Message,
		Reference:  reference,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"alertId":          alertID,
		"widgetUrl":        s.widgetURL(token),
		"connectedWidgets": s.hub.ConnectedCount(streamerID),
	})
}

type testAlertRequest struct {
	sendAlertRequest

	// Unsaved widget settings to preview with. Falls back to the
	// streamer's stored media when absent.
	Settings *overlay.EffectiveSettings `json:"settings"`
	Levels   []overlay.DonationLevel    `json:"levels"`
}

// SendTestAlert handles POST /api/alert/:token/test. Test alerts skip
// the queue and are marked so widgets can render without persisting.
func (s *Server) SendTestAlert(c *gin.Context) {
	var req testAlertRequest
	_ = c.ShouldBindJSON(&req) // body optional

	token := c.Param("token")
	res, ok := s.validateGate(c, token)
	if !ok {
		return
	}

	donor := strings.TrimSpace(req.DonorName)
	if donor == "" || req.Anonymous {
		donor = "Anonymous"
	}
	amount := req.Amount
	if amount <= 0 {
		amount = 10000
	}
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = s.cfg.Bank.Currency
	}
	message := req.Message
	if message == "" {
		message = "Test alert"
	}

	base := overlay.EffectiveSettings{Media: decodeMediaMap(res.Settings.Media)}
	if req.Settings != nil {
		base = *req.Settings
	}
	effective := overlay.Resolve(base, overlay.SelectLevel(req.Levels, amount))

	streamerID := res.StreamerID.String()
	s.hub.BroadcastTest(alertqueue.Alert{
		StreamerID: streamerID,
		DonorName:  donor,
		Amount:     amount,
		Currency:   currency,
		Message:    message,
	}, &effective)

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"settings":         effective,
		"connectedWidgets": s.hub.ConnectedCount(streamerID),
	})
}

func decodeMediaMap(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var media map[string]string
	if err := json.Unmarshal(raw, &media); err != nil {
		return nil
	}
	return media
}

// WidgetStatus handles GET /api/widget/:token/status.
func (s *Server) WidgetStatus(c *gin.Context) {
	res, ok := s.validateGate(c, c.Param("token"))
	if !ok {
		return
	}

	streamerID := res.StreamerID.String()
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"streamerId":       streamerID,
		"connectedWidgets": s.hub.ConnectedCount(streamerID),
	})
}

func (s *Server) widgetURL(token string) string {
	return s.cfg.WidgetBaseURL + "?alertToken=" + token
}
