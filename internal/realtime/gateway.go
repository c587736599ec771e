package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Gateway upgrades widget connections after the token clears the
// security gate.
type Gateway struct {
	hub      *Hub
	gate     securitydomain.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

type GatewayParams struct {
	fx.In

	Hub  *Hub
	Gate securitydomain.Service
	Log  *zap.Logger
}

func NewGateway(p GatewayParams) *Gateway {
	return &Gateway{
		hub:  p.Hub,
		gate: p.Gate,
		log:  p.Log.Named("realtime.gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 4 << 10,
			// Widgets run inside OBS browser sources with arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle serves GET /ws/obs-widget. Rejections happen before the
// upgrade so the client sees a plain HTTP status.
func (g *Gateway) Handle(c *gin.Context) {
	token := c.Query("alertToken")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   gin.H{"type": "missing_token", "message": "alertToken query parameter is required"},
		})
		return
	}

	res, err := g.gate.Validate(c.Request.Context(), securitydomain.ValidateRequest{
		Token:     token,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"type": err.Error(), "message": "alert token rejected"},
		})
		return
	}

	streamerID := res.StreamerID.String()
	if max := res.Settings.MaxConnections; max > 0 && g.hub.ConnectedCount(streamerID) >= max {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error":   gin.H{"type": "connection_limit", "message": "widget connection limit reached"},
		})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	session := NewSession(g.hub, streamerID, conn, g.log)
	g.hub.Register(session)
	session.Run()
}
