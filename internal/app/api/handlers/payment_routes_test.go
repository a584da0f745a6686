package handlers

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegisterPaymentRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/payments")
	log := zap.NewNop().Sugar()
	RegisterCallbackRoutes(g, nil, log)
	RegisterPaymentRoutes(g, nil, log)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/payments/stkpush"))
	require.True(t, contains("POST /api/v1/payments/callback"))
	require.True(t, contains("GET /api/v1/payments/:checkout_request_id"))
}

func TestRegisterAdminRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/admin")
	RegisterAdminRoutes(g, nil, nil, nil)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/admin/list_transactions"))
	require.True(t, contains("POST /api/v1/admin/get_payment_statistic"))
	require.True(t, contains("GET /api/v1/admin/breaker_status"))
}
