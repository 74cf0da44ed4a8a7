package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/readback/readback/internal/server/policy"
)

func (s *Server) voices(c *gin.Context) {
	voices, premium, err := s.svc.Subscriptions.Voices(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, voicesResponse{Voices: voices, IsPremium: premium})
}

func (s *Server) subscription(c *gin.Context) {
	sub, err := s.svc.Subscriptions.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscription": toSubscription(sub),
		"isPremium":    policy.IsPremium(sub),
	})
}

func (s *Server) upgrade(c *gin.Context) {
	var req upgradeRequest
	// the body is optional until receipts are verified
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
			return
		}
	}

	if _, err := s.svc.Subscriptions.Upgrade(c.Request.Context(), currentUserID(c), req.Receipt); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Upgraded to Premium successfully"})
}
