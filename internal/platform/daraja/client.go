package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	authPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	transactionTypePayBill = "CustomerPayBillOnline"

	// Fixed wall-clock budget for every outbound gateway call; exceeding it
	// is a transport failure and feeds the breaker.
	DefaultHTTPTimeout = 30 * time.Second

	timestampLayout = "20060102150405"
)

type ClientOptions struct {
	BaseURL        string
	ShortCode      string
	Passkey        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	HTTPTimeout    time.Duration
}

// Client performs the two external calls needed to initiate a push payment:
// Basic-auth token exchange and STK push submission. Every call goes through
// the injected circuit breaker; transport blips are absorbed by the retry
// policy within one permitted attempt.
type Client struct {
	opts    ClientOptions
	http    *http.Client
	breaker *CircuitBreaker
	retry   *RetryPolicy
	log     *zap.SugaredLogger

	now func() time.Time
}

func NewClient(opts ClientOptions, breaker *CircuitBreaker, retry *RetryPolicy, log *zap.SugaredLogger) *Client {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &Client{
		opts:    opts,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		retry:   retry,
		log:     log,
		now:     time.Now,
	}
}

func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// GetAccessToken exchanges the consumer key/secret for a bearer token.
// Every failure here records a breaker failure.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+authPath, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.opts.ConsumerKey + ":" + c.opts.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return "", fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}

	var auth authResponse
	if err := json.Unmarshal(body, &auth); err != nil || auth.AccessToken == "" {
		c.breaker.RecordFailure()
		c.log.Errorw("daraja_auth_no_token", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: gateway returned no token", ErrAuthFailure)
	}
	return auth.AccessToken, nil
}

// InitiateSTKPush submits a push-payment prompt. The breaker is consulted
// once up front; on success the gateway correlation ids are returned and the
// caller persists the PENDING transaction.
func (c *Client) InitiateSTKPush(ctx context.Context, req *STKPushRequest) (*STKPushResponse, error) {
	phone, err := NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		// validation fault: surfaced to the caller, never touches the breaker
		return nil, err
	}

	if !c.breaker.Allow() {
		c.log.Warnw("daraja_breaker_open", "breaker", c.breaker.Status())
		return nil, ErrServiceUnavailable
	}

	token, err := Execute(ctx, c.retry, func() (string, error) {
		return c.GetAccessToken(ctx)
	})
	if err != nil {
		return nil, err
	}

	ts := c.now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.opts.ShortCode + c.opts.Passkey + ts))

	payload := &stkPushPayload{
		BusinessShortCode: c.opts.ShortCode,
		Password:          password,
		Timestamp:         ts,
		TransactionType:   transactionTypePayBill,
		Amount:            strconv.FormatInt(int64(math.Round(req.Amount)), 10),
		PartyA:            phone,
		PartyB:            c.opts.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.opts.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	res, err := Execute(ctx, c.retry, func() (*STKPushResponse, error) {
		return c.submitSTKPush(ctx, token, payload)
	})
	if err != nil {
		return nil, err
	}

	c.breaker.RecordSuccess()
	return res, nil
}

func (c *Client) submitSTKPush(ctx context.Context, token string, payload *stkPushPayload) (*STKPushResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("%w: %v", ErrGatewayUnavailable, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+stkPushPath, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("%w: %v", ErrGatewayUnavailable, err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.breaker.RecordFailure()
		c.log.Errorw("daraja_stkpush_http_error", "status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: http %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var out STKPushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.breaker.RecordFailure()
		c.log.Errorw("daraja_stkpush_bad_response", "status", resp.StatusCode, "body", string(raw))
		return nil, fmt.Errorf("%w: undecodable response", ErrGatewayUnavailable)
	}

	if out.ResponseCode != "0" {
		// business rejection: no breaker failure, no retry
		return nil, Permanent(fmt.Errorf("%w: code=%s desc=%s", ErrGatewayRejected, out.ResponseCode, out.ResponseDescription))
	}
	return &out, nil
}
