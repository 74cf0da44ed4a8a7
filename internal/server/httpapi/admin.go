package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.svc.Admin.Dashboard(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDashboard(d))
}
