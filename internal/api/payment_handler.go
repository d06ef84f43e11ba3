package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/matic113/freelance-platform-sub003/internal/app"
	"github.com/matic113/freelance-platform-sub003/internal/domain"
	"github.com/matic113/freelance-platform-sub003/internal/service"
)

type PaymentHandler struct {
	payments service.PaymentService
}

func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func (h *PaymentHandler) Create(c *gin.Context) {
	var req app.CreatePaymentRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	p, err := h.payments.Create(c.Request.Context(), actor(c), service.NewPaymentRequest{
		ContractID:  req.ContractID,
		MilestoneID: req.MilestoneID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, p.Version)
	c.JSON(http.StatusCreated, app.NewPaymentRequestView(p))
}

func (h *PaymentHandler) Get(c *gin.Context) {
	p, err := h.payments.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, p.Version)
	c.JSON(http.StatusOK, app.NewPaymentRequestView(p))
}

func (h *PaymentHandler) ListByContract(c *gin.Context) {
	ps, err := h.payments.ListByContract(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.NewPaymentRequestViews(ps))
}

func (h *PaymentHandler) Approve(c *gin.Context) {
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.payments.Approve(c.Request.Context(), actor(c), c.Param("id"), version)
	h.respond(c, p, err)
}

func (h *PaymentHandler) Reject(c *gin.Context) {
	var req app.RejectPaymentRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.payments.Reject(c.Request.Context(), actor(c), c.Param("id"), req.Reason, version)
	h.respond(c, p, err)
}

func (h *PaymentHandler) Withdraw(c *gin.Context) {
	version, err := ExpectedVersion(c)
	if err != nil {
		writeError(c, err)
		return
	}
	p, err := h.payments.Withdraw(c.Request.Context(), actor(c), c.Param("id"), version)
	h.respond(c, p, err)
}

// MarkPaid records a gateway settlement. Only the system role passes.
func (h *PaymentHandler) MarkPaid(c *gin.Context) {
	var req app.SettlePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.MarkPaid(c.Request.Context(), actor(c), c.Param("id"), req.Reference)
	h.respond(c, p, err)
}

func (h *PaymentHandler) respond(c *gin.Context, p *domain.PaymentRequest, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	setETag(c, p.Version)
	c.JSON(http.StatusOK, app.NewPaymentRequestView(p))
}
