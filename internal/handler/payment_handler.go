package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"token-pay-api/internal/constant"
	"token-pay-api/internal/dto"
	"token-pay-api/internal/settlement"
	"token-pay-api/internal/utils"
)

// PaymentAPI 下单与订单查询
type PaymentAPI interface {
	Create(ctx context.Context, req dto.CreatePaymentReq) (*dto.CreatePaymentResp, error)
	Get(ctx context.Context, orderNo string) (*dto.TransactionVo, error)
}

// Reconciler 单订单入账
type Reconciler interface {
	Reconcile(ctx context.Context, orderNo string) settlement.Result
}

// PaymentHandler 充值订单处理器
type PaymentHandler struct {
	svc PaymentAPI
	rec Reconciler
	log logrus.FieldLogger
}

func NewPaymentHandler(svc PaymentAPI, rec Reconciler, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{svc: svc, rec: rec, log: log}
}

// Create 创建充值订单，返回网关支付链接
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if fields := utils.ValidationErrors(err); fields != nil {
			resp := utils.ErrorWithData(constant.CodeInvalidParams, fields)
			resp.TraceID = traceID(c)
			c.JSON(http.StatusOK, resp)
			return
		}
		c.JSON(http.StatusOK, utils.ErrorWithTrace(constant.CodeInvalidParams, traceID(c)))
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		h.log.WithField("traceId", traceID(c)).WithError(err).Error("[PAYMENT] 创建订单失败")
		c.JSON(http.StatusOK, utils.ErrorFrom(err, traceID(c)))
		return
	}
	c.JSON(http.StatusOK, utils.Success(resp))
}

// Get 订单查询
func (h *PaymentHandler) Get(c *gin.Context) {
	vo, err := h.svc.Get(c.Request.Context(), c.Param("orderNo"))
	if err != nil {
		c.JSON(http.StatusOK, utils.ErrorFrom(err, traceID(c)))
		return
	}
	c.JSON(http.StatusOK, utils.Success(vo))
}

// Reconcile 人工补单，重复调用不会重复加余额
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	orderNo := c.Param("orderNo")
	res := h.rec.Reconcile(c.Request.Context(), orderNo)

	body := dto.ReconcileResp{
		OrderNo:        res.OrderNo,
		Success:        res.Success,
		UserID:         res.UserID,
		TokensAdded:    res.TokensAdded,
		AlreadySynced:  res.AlreadySynced,
		MarkerRepaired: res.MarkerRepaired,
	}
	if res.Err != nil {
		body.ErrorKind = settlement.KindOf(res.Err).String()
		body.Error = res.Err.Error()
		resp := utils.ErrorFrom(res.Err, traceID(c))
		resp.Data = body
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusOK, utils.Success(body))
}
