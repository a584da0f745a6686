package daraja

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "https://daraja.test"

func newTestClient(t *testing.T, maxAttempts int) *Client {
	t.Helper()
	c := NewClient(ClientOptions{
		BaseURL:        testBaseURL,
		ShortCode:      "174379",
		Passkey:        "test-passkey",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		CallbackURL:    "https://pay.example.com/api/v1/payments/callback",
	}, NewCircuitBreaker(5, time.Minute), NewRetryPolicy(maxAttempts, time.Millisecond), zap.NewNop().Sugar())

	httpmock.ActivateNonDefault(c.http)
	t.Cleanup(httpmock.DeactivateAndReset)
	return c
}

func registerAuthOK() {
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+authPath,
		httpmock.NewStringResponder(http.StatusOK, `{"access_token":"tok-123","expires_in":"3599"}`))
}

func TestGetAccessToken(t *testing.T) {
	c := newTestClient(t, 1)
	registerAuthOK()

	tok, err := c.GetAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok-123", tok)
	require.Equal(t, 0, c.breaker.Status().Failures)
}

func TestGetAccessToken_NoTokenIsAuthFailure(t *testing.T) {
	c := newTestClient(t, 1)
	httpmock.RegisterResponder(http.MethodGet, testBaseURL+authPath,
		httpmock.NewStringResponder(http.StatusOK, `{}`))

	_, err := c.GetAccessToken(context.Background())
	require.True(t, errors.Is(err, ErrAuthFailure))
	require.Equal(t, 1, c.breaker.Status().Failures)
}

func TestInitiateSTKPush(t *testing.T) {
	c := newTestClient(t, 1)
	registerAuthOK()
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+stkPushPath,
		httpmock.NewStringResponder(http.StatusOK, `{
			"MerchantRequestID":"29115-34620561-1",
			"CheckoutRequestID":"ws_CO_191220191020363925",
			"ResponseCode":"0",
			"ResponseDescription":"Success. Request accepted for processing",
			"CustomerMessage":"Success. Request accepted for processing"
		}`))

	res, err := c.InitiateSTKPush(context.Background(), &STKPushRequest{
		PhoneNumber:      "0712345678",
		Amount:           150,
		AccountReference: "INV-001",
		Description:      "Order 001",
	})
	require.NoError(t, err)
	require.Equal(t, "29115-34620561-1", res.MerchantRequestID)
	require.Equal(t, "ws_CO_191220191020363925", res.CheckoutRequestID)
	require.Equal(t, "0", res.ResponseCode)
	require.Equal(t, BreakerStateClosed, c.breaker.Status().State)
}

func TestInitiateSTKPush_InvalidPhoneSkipsGateway(t *testing.T) {
	c := newTestClient(t, 1)

	_, err := c.InitiateSTKPush(context.Background(), &STKPushRequest{PhoneNumber: "12345", Amount: 10})
	require.True(t, errors.Is(err, ErrInvalidPhoneNumber))
	require.Equal(t, 0, httpmock.GetTotalCallCount())
	require.Equal(t, 0, c.breaker.Status().Failures)
}

func TestInitiateSTKPush_GatewayRejected(t *testing.T) {
	c := newTestClient(t, 3)
	registerAuthOK()
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+stkPushPath,
		httpmock.NewStringResponder(http.StatusOK, `{"ResponseCode":"1","ResponseDescription":"Insufficient balance"}`))

	_, err := c.InitiateSTKPush(context.Background(), &STKPushRequest{PhoneNumber: "0712345678", Amount: 10})
	require.True(t, errors.Is(err, ErrGatewayRejected))
	require.Contains(t, err.Error(), "Insufficient balance")
	// business rejection is not retried and does not feed the breaker
	require.Equal(t, 1, httpmock.GetCallCountInfo()["POST "+testBaseURL+stkPushPath])
	require.Equal(t, 0, c.breaker.Status().Failures)
}

func TestInitiateSTKPush_TransportErrorRetriesAndFeedsBreaker(t *testing.T) {
	c := newTestClient(t, 3)
	registerAuthOK()
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+stkPushPath,
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, err := c.InitiateSTKPush(context.Background(), &STKPushRequest{PhoneNumber: "0712345678", Amount: 10})
	require.True(t, errors.Is(err, ErrRetryExhausted))
	require.Equal(t, 3, httpmock.GetCallCountInfo()["POST "+testBaseURL+stkPushPath])
	require.Equal(t, 3, c.breaker.Status().Failures)
}

func TestInitiateSTKPush_BreakerOpenFailsFast(t *testing.T) {
	c := newTestClient(t, 1)
	for i := 0; i < 5; i++ {
		c.breaker.RecordFailure()
	}

	_, err := c.InitiateSTKPush(context.Background(), &STKPushRequest{PhoneNumber: "0712345678", Amount: 10})
	require.True(t, errors.Is(err, ErrServiceUnavailable))
	require.Equal(t, 0, httpmock.GetTotalCallCount())
}
