package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/app/service/payment"
	"github.com/sokopay/paygate/internal/platform/daraja"
	"github.com/sokopay/paygate/pkg/logctx"
	"github.com/sokopay/paygate/pkg/response"
)

// @Summary      Initiate STK Push
// @Description  Sends a push-payment prompt to the customer's phone. The returned checkout_request_id correlates the later result callback.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Param        request body payment.InitiatePaymentRequest true "Payment initiation request"
// @Success      200  {object}  handlers.RespInitiatePayment
// @Router       /api/v1/payments/stkpush [post]
func ApiInitiatePayment(svc payment.PaymentService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.InitiatePayment(c.Request.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, daraja.ErrInvalidPhoneNumber):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, daraja.ErrServiceUnavailable),
				errors.Is(err, daraja.ErrGatewayUnavailable),
				errors.Is(err, daraja.ErrRetryExhausted),
				errors.Is(err, daraja.ErrAuthFailure):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnavailable, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}

		if res.LedgerWriteErr != nil {
			// fail-open write: worth a log line, never a user-facing error
			logctx.FromGin(c, log).Warnw("initiation_ledger_write_failed",
				"checkout_request_id", res.CheckoutRequestID,
				"error", res.LedgerWriteErr.Error(),
			)
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Payment Status
// @Description  Looks up a transaction by its checkout request id.
// @Tags         Payment
// @Produce      json
// @Param        checkout_request_id path string true "Checkout request id"
// @Success      200  {object}  handlers.RespTransaction
// @Router       /api/v1/payments/{checkout_request_id} [get]
func ApiGetPayment(svc payment.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("checkout_request_id")
		if id == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing checkout_request_id"))
			return
		}

		txn, err := svc.GetTransaction(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, ledger.ErrTransactionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(txn))
	}
}

func RegisterPaymentRoutes(r gin.IRouter, svc payment.PaymentService, log *zap.SugaredLogger) {
	r.POST("/stkpush", ApiInitiatePayment(svc, log))
	r.GET("/:checkout_request_id", ApiGetPayment(svc))
}
