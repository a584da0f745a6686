package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sokopay/paygate/internal/app/service/payment"
	"github.com/sokopay/paygate/internal/app/service/statistics"
	"github.com/sokopay/paygate/internal/platform/daraja"
	"github.com/sokopay/paygate/pkg/response"
	"github.com/sokopay/paygate/pkg/types"
)

type ListTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

// @Summary      List Transactions (Admin)
// @Description  Retrieves a paginated and filterable list of payment transactions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body ListTransactionsRequest true "List transactions request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListTransactions
// @Router       /api/v1/admin/list_transactions [post]
func ApiListTransactions(svc payment.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListTransactionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanTransactions(c.Request.Context(), &payment.ScanTransactionsRequest{
			Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder,
		})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Payment Statistics (Admin)
// @Description  Retrieves daily payment statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.PaymentStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespPaymentStatistic
// @Router       /api/v1/admin/get_payment_statistic [post]
func ApiGetPaymentStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.PaymentStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetDailyPaymentStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Circuit Breaker Status (Admin)
// @Description  Returns the current gateway circuit breaker snapshot.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  handlers.RespBreakerStatus
// @Router       /api/v1/admin/breaker_status [get]
func ApiBreakerStatus(breaker *daraja.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(breaker.Status()))
	}
}

func RegisterAdminRoutes(r gin.IRouter, svc payment.PaymentService, stats *statistics.Service, breaker *daraja.CircuitBreaker) {
	r.POST("/list_transactions", ApiListTransactions(svc))
	r.POST("/get_payment_statistic", ApiGetPaymentStatistic(stats))
	r.GET("/breaker_status", ApiBreakerStatus(breaker))
}
