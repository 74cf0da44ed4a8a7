package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listSections(c *gin.Context) {
	list, err := s.svc.Sections.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	res := sectionListResponse{
		Sections:  make([]sectionResponse, 0, len(list.Sections)),
		Count:     list.Count,
		Limit:     list.Limit,
		CanCreate: list.CanCreate,
	}
	for _, sec := range list.Sections {
		res.Sections = append(res.Sections, toSection(sec))
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getSection(c *gin.Context) {
	sec, err := s.svc.Sections.Get(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSection(sec))
}

func (s *Server) createSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	sec, err := s.svc.Sections.Create(c.Request.Context(), currentUserID(c), req.Title, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSection(sec))
}

func (s *Server) updateSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	sec, err := s.svc.Sections.Update(c.Request.Context(), currentUserID(c), c.Param("id"), req.Title, req.Content)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSection(sec))
}

func (s *Server) deleteSection(c *gin.Context) {
	if err := s.svc.Sections.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
