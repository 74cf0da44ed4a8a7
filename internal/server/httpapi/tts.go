package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/readback/readback/internal/common"
	"github.com/readback/readback/internal/server/services"
)

func (s *Server) synthesize(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	res, err := s.svc.Synthesis.SynthesizeFor(c.Request.Context(), currentUserID(c), services.SynthesisRequest{
		SectionID: req.SectionID,
		VoiceID:   req.VoiceID,
		Content:   req.Content,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ttsResponse{AudioURL: res.AudioURL, Cached: res.Cached})
}

// audio streams an object from the configured AudioSource.
func (s *Server) audio(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		s.writeError(c, common.ErrorNotFound)
		return
	}

	rc, err := s.svc.Audio.Open(c.Request.Context(), key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.DataFromReader(http.StatusOK, -1, common.AudioContentType, rc, nil)
}
