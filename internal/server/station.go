package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	stationdomain "github.com/smallbiznis/airbill/internal/station/domain"
)

func (s *Server) GetStation(c *gin.Context) {
	resp, err := s.stationSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateStation(c *gin.Context) {
	var req stationdomain.UpdateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.stationSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func isStationValidationError(err error) bool {
	switch err {
	case stationdomain.ErrInvalidName,
		stationdomain.ErrInvalidAddress,
		stationdomain.ErrInvalidPrefix:
		return true
	default:
		return false
	}
}
