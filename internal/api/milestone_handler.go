package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/service"
)

type MilestoneHandler struct {
	milestones service.MilestoneService
}

func NewMilestoneHandler(milestones service.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones}
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	var req app.CreateMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := newMilestoneInput(req)
	if err != nil {
		writeError(c, err)
		return
	}

	m, err := h.milestones.Create(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, m.Version)
	c.JSON(http.StatusCreated, app.NewMilestoneView(m))
}

func (h *MilestoneHandler) List(c *gin.Context) {
	ms, err := h.milestones.ListByContract(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.NewMilestoneViews(ms))
}

func (h *MilestoneHandler) Get(c *gin.Context) {
	m, err := h.milestones.Get(c.Request.Context(), actor(c), c.Param("id"), c.Param("milestoneId"))
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, m.Version)
	c.JSON(http.StatusOK, app.NewMilestoneView(m))
}

func (h *MilestoneHandler) Update(c *gin.Context) {
	var req app.UpdateMilestoneRequest
	if !bindJSON(c, &req) {
		return
	}
	patch, err := req.Patch()
	if err != nil {
		writeError(c, err)
		return
	}
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}

	m, err := h.milestones.Update(c.Request.Context(), actor(c), c.Param("id"), c.Param("milestoneId"), patch, version)
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, m.Version)
	c.JSON(http.StatusOK, app.NewMilestoneView(m))
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := h.milestones.Delete(c.Request.Context(), actor(c), c.Param("id"), c.Param("milestoneId"), version); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MilestoneHandler) UpdateStatus(c *gin.Context) {
	var req app.UpdateMilestoneStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := domain.ParseMilestoneStatus(string(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}

	m, err := h.milestones.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), c.Param("milestoneId"), status, version)
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, m.Version)
	c.JSON(http.StatusOK, app.NewMilestoneView(m))
}
