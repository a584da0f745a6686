package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sokopay/paygate/internal/app/service/reconciliation"
	"github.com/sokopay/paygate/pkg/logctx"
	"github.com/sokopay/paygate/pkg/response"
)

// @Summary      M-Pesa Result Callback
// @Description  Receives the asynchronous STK push result from the Daraja gateway and reconciles it onto the stored transaction.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body reconciliation.STKCallbackEnvelope true "STK callback payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/payments/callback [post]
func ApiMpesaCallback(r *reconciliation.Reconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		logctx.FromGin(c, log).Infow("callback_received")

		var payload reconciliation.STKCallbackEnvelope
		if err := c.ShouldBindJSON(&payload); err != nil {
			logctx.FromGin(c, log).Errorw("callback_bind_error", "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		if _, err := r.Reconcile(c.Request.Context(), &payload); err != nil {
			logctx.FromGin(c, log).Errorw("callback_handle_error", "error", err.Error())
			switch {
			case errors.Is(err, reconciliation.ErrMalformedCallback):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, reconciliation.ErrUnknownTransaction):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			default:
				// gateway retries delivery on its own schedule
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}

		logctx.FromGin(c, log).Infow("callback_handled")
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterCallbackRoutes(r gin.IRouter, rec *reconciliation.Reconciler, log *zap.SugaredLogger) {
	r.POST("/callback", ApiMpesaCallback(rec, log))
}
