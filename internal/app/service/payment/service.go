package payment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/internal/platform/daraja"
	"github.com/sokopay/paygate/pkg/logctx"
	"github.com/sokopay/paygate/pkg/metrics"
	"github.com/sokopay/paygate/pkg/tool"
	"github.com/sokopay/paygate/pkg/types"
)

// Gateway is the slice of the Daraja client the service needs.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, req *daraja.STKPushRequest) (*daraja.STKPushResponse, error)
}

type Service struct {
	gateway Gateway
	breaker *daraja.CircuitBreaker
	ledger  ledger.Ledger
	db      *gorm.DB
	log     *zap.SugaredLogger
}

func NewService(gateway Gateway, breaker *daraja.CircuitBreaker, l ledger.Ledger, db *gorm.DB, log *zap.SugaredLogger) PaymentService {
	return &Service{gateway: gateway, breaker: breaker, ledger: l, db: db, log: log}
}

func (s *Service) InitiatePayment(ctx context.Context, req *InitiatePaymentRequest) (*InitiatePaymentResult, error) {
	log := logctx.FromCtx(ctx, s.log)

	// Normalize here rather than trusting the gateway client to have done it,
	// so the PENDING row below can never carry an empty phone number.
	phone, err := daraja.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		metrics.PaymentInitiations.WithLabelValues(initiationResult(err)).Inc()
		return nil, err
	}

	res, err := s.gateway.InitiateSTKPush(ctx, &daraja.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           req.Amount,
		AccountReference: req.AccountReference,
		Description:      req.Description,
	})
	s.publishBreakerState()
	if err != nil {
		metrics.PaymentInitiations.WithLabelValues(initiationResult(err)).Inc()
		return nil, err
	}
	metrics.PaymentInitiations.WithLabelValues("accepted").Inc()

	out := &InitiatePaymentResult{
		MerchantRequestID:   res.MerchantRequestID,
		CheckoutRequestID:   res.CheckoutRequestID,
		ResponseDescription: res.ResponseDescription,
		CustomerMessage:     res.CustomerMessage,
	}

	txn := &models.Transaction{
		ID:                tool.GenerateUUIDV7(),
		MerchantRequestID: res.MerchantRequestID,
		CheckoutRequestID: res.CheckoutRequestID,
		PhoneNumber:       phone,
		Amount:            req.Amount,
		AccountReference:  req.AccountReference,
		Description:       req.Description,
		Status:            models.TransactionStatusPending,
	}
	if err := s.ledger.Create(ctx, txn); err != nil {
		// fail-open: the push prompt is already out, breaking the response
		// now would only confuse the caller. The callback for this checkout
		// id will surface as UnknownTransaction instead.
		log.Errorw("initiation_write_failed",
			"checkout_request_id", res.CheckoutRequestID,
			"error", err.Error(),
		)
		out.LedgerWriteErr = err
	}

	log.Infow("payment_initiated",
		"merchant_request_id", res.MerchantRequestID,
		"checkout_request_id", res.CheckoutRequestID,
		"amount", req.Amount,
	)
	return out, nil
}

func (s *Service) GetTransaction(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	return s.ledger.FindByCheckoutID(ctx, checkoutRequestID)
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.Transaction

	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ScanTransactionsResponse{Items: rows, Total: total}, nil
}

func (s *Service) publishBreakerState() {
	if s.breaker == nil {
		return
	}
	switch s.breaker.Status().State {
	case daraja.BreakerStateClosed:
		metrics.BreakerState.Set(0)
	case daraja.BreakerStateHalfOpen:
		metrics.BreakerState.Set(1)
	case daraja.BreakerStateOpen:
		metrics.BreakerState.Set(2)
	}
}

func initiationResult(err error) string {
	switch {
	case errors.Is(err, daraja.ErrInvalidPhoneNumber):
		return "invalid_phone"
	case errors.Is(err, daraja.ErrServiceUnavailable):
		return "breaker_open"
	case errors.Is(err, daraja.ErrGatewayRejected):
		return "rejected"
	case errors.Is(err, daraja.ErrAuthFailure):
		return "auth_failure"
	default:
		return "unavailable"
	}
}
