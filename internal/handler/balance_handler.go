package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"token-pay-api/internal/dto"
	"token-pay-api/internal/utils"
)

type BalanceAPI interface {
	Get(ctx context.Context, userID string) (*dto.UserBalanceVo, error)
	Credits(ctx context.Context, userID string, limit int) ([]dto.CreditLogVo, error)
}

// BalanceHandler 用户余额查询
type BalanceHandler struct{ svc BalanceAPI }

func NewBalanceHandler(svc BalanceAPI) *BalanceHandler {
	return &BalanceHandler{svc: svc}
}

func (h *BalanceHandler) Get(c *gin.Context) {
	vo, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusOK, utils.ErrorFrom(err, traceID(c)))
		return
	}
	c.JSON(http.StatusOK, utils.Success(vo))
}

// Credits 入账流水，?limit= 默认 20
func (h *BalanceHandler) Credits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.svc.Credits(c.Request.Context(), c.Param("userId"), limit)
	if err != nil {
		c.JSON(http.StatusOK, utils.ErrorFrom(err, traceID(c)))
		return
	}
	c.JSON(http.StatusOK, utils.Success(list))
}
