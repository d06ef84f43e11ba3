package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/logger"
	"github.com/matic113/freelance-platform-sub003/internal/service"
	"github.com/matic113/freelance-platform-sub003/internal/statement"
)

type ContractHandler struct {
	contracts service.ContractService
}

func NewContractHandler(contracts service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

func (h *ContractHandler) Create(c *gin.Context) {
	var req app.CreateContractRequest
	if !bindJSON(c, &req) {
		return
	}

	a := actor(c)
	if req.ClientID == "" && a.Role == domain.RoleClient {
		req.ClientID = a.UserID
	}
	in, err := newContractInput(req)
	if err != nil {
		writeError(c, err)
		return
	}

	detail, err := h.contracts.Create(c.Request.Context(), a, in)
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, detail.Contract.Version)
	c.JSON(http.StatusCreated, detailView(detail))
}

func (h *ContractHandler) List(c *gin.Context) {
	contracts, err := h.contracts.ListForUser(c.Request.Context(), actor(c))
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]app.ContractView, 0, len(contracts))
	for _, ct := range contracts {
		views = append(views, app.NewContractView(ct))
	}
	c.JSON(http.StatusOK, views)
}

func (h *ContractHandler) Get(c *gin.Context) {
	detail, err := h.contracts.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, detail.Contract.Version)
	c.JSON(http.StatusOK, detailView(detail))
}

func (h *ContractHandler) Summary(c *gin.Context) {
	s, err := h.contracts.Summary(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.NewSummaryView(s))
}

func (h *ContractHandler) Accept(c *gin.Context) {
	h.transition(c, h.contracts.Accept)
}

func (h *ContractHandler) Reject(c *gin.Context) {
	h.transition(c, h.contracts.Reject)
}

func (h *ContractHandler) Cancel(c *gin.Context) {
	h.transition(c, h.contracts.Cancel)
}

type contractTransition func(ctx context.Context, actor domain.Actor, id string, expectedVersion int) (*domain.Contract, error)

func (h *ContractHandler) transition(c *gin.Context, fn contractTransition) {
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}
	ct, err := fn(c.Request.Context(), actor(c), c.Param("id"), version)
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, ct.Version)
	c.JSON(http.StatusOK, app.NewContractView(ct))
}

// Statement streams the contract statement as an xlsx workbook.
func (h *ContractHandler) Statement(c *gin.Context) {
	detail, err := h.contracts.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	f, err := statement.Build(detail.Contract, detail.Milestones, detail.PaymentRequests, detail.Summary)
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", statement.ContentType)
	c.Header("Content-Disposition", "attachment; filename="+statement.FileName(detail.Contract, time.Now()))
	if err := f.Write(c.Writer); err != nil {
		logger.Error(c.Request.Context(), "failed to write statement", "contract_id", detail.Contract.ID, "error", err)
	}
}

func newContractInput(req app.CreateContractRequest) (service.NewContract, error) {
	start, err := app.ParseDate("startDate", req.StartDate)
	if err != nil {
		return service.NewContract{}, err
	}
	end, err := app.ParseDate("endDate", req.EndDate)
	if err != nil {
		return service.NewContract{}, err
	}

	in := service.NewContract{
		ProjectID:    req.ProjectID,
		ClientID:     req.ClientID,
		FreelancerID: req.FreelancerID,
		ProposalID:   req.ProposalID,
		Title:        req.Title,
		Description:  req.Description,
		TotalAmount:  req.TotalAmount,
		Currency:     req.Currency,
		StartDate:    start,
		EndDate:      end,
	}
	for i, mr := range req.Milestones {
		m, err := newMilestoneInput(mr)
		if err != nil {
			return service.NewContract{}, fmt.Errorf("milestone %d: %w", i+1, err)
		}
		in.Milestones = append(in.Milestones, m)
	}
	return in, nil
}

func newMilestoneInput(req app.CreateMilestoneRequest) (service.NewMilestone, error) {
	if err := req.Validate(); err != nil {
		return service.NewMilestone{}, err
	}
	due, err := app.ParseOptionalDate("dueDate", req.DueDate)
	if err != nil {
		return service.NewMilestone{}, err
	}
	return service.NewMilestone{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		DueDate:     due,
		OrderIndex:  req.OrderIndex,
	}, nil
}

func detailView(d *service.ContractDetail) app.ContractDetail {
	actions := d.AllowedActions
	if actions == nil {
		actions = []domain.Action{}
	}
	return app.ContractDetail{
		Contract:        app.NewContractView(d.Contract),
		Milestones:      app.NewMilestoneViews(d.Milestones),
		PaymentRequests: app.NewPaymentRequestViews(d.PaymentRequests),
		Summary:         app.NewSummaryView(d.Summary),
		AllowedActions:  actions,
	}
}
