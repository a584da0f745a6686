package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/internal/platform/daraja"
)

type fakeGateway struct {
	res       *daraja.STKPushResponse
	err       error
	calls     int
	lastPhone string
}

func (f *fakeGateway) InitiateSTKPush(ctx context.Context, req *daraja.STKPushRequest) (*daraja.STKPushResponse, error) {
	f.calls++
	f.lastPhone = req.PhoneNumber
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeLedger struct {
	created   []*models.Transaction
	createErr error
}

func (f *fakeLedger) Create(ctx context.Context, txn *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, txn)
	return nil
}

func (f *fakeLedger) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	for _, txn := range f.created {
		if txn.CheckoutRequestID == checkoutRequestID {
			return txn, nil
		}
	}
	return nil, ledger.ErrTransactionNotFound
}

func (f *fakeLedger) UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, patch *ledger.TransactionPatch) (*models.Transaction, error) {
	return nil, ledger.ErrTransactionNotFound
}

func newTestService(gw Gateway, l ledger.Ledger) PaymentService {
	return NewService(gw, daraja.NewCircuitBreaker(0, 0), l, nil, zap.NewNop().Sugar())
}

func TestInitiatePayment_WritesPendingTransaction(t *testing.T) {
	gw := &fakeGateway{res: &daraja.STKPushResponse{
		MerchantRequestID:   "29115-34620561-1",
		CheckoutRequestID:   "ws_CO_191220191020363925",
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}}
	l := &fakeLedger{}
	svc := newTestService(gw, l)

	res, err := svc.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		PhoneNumber:      "0712345678",
		Amount:           150,
		AccountReference: "INV-001",
		Description:      "order 42",
	})
	require.NoError(t, err)
	require.Equal(t, "ws_CO_191220191020363925", res.CheckoutRequestID)
	require.NoError(t, res.LedgerWriteErr)

	require.Len(t, l.created, 1)
	txn := l.created[0]
	require.Equal(t, models.TransactionStatusPending, txn.Status)
	require.Equal(t, "254712345678", txn.PhoneNumber)
	require.Equal(t, 150.0, txn.Amount)
	require.Equal(t, "ws_CO_191220191020363925", txn.CheckoutRequestID)
	require.NotEmpty(t, txn.ID)
}

func TestInitiatePayment_InvalidPhoneSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	l := &fakeLedger{}
	svc := newTestService(gw, l)

	_, err := svc.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		PhoneNumber:      "12345",
		Amount:           150,
		AccountReference: "INV-001",
	})
	require.True(t, errors.Is(err, daraja.ErrInvalidPhoneNumber))
	require.Equal(t, 0, gw.calls)
	require.Empty(t, l.created)
}

func TestInitiatePayment_GatewayReceivesNormalizedPhone(t *testing.T) {
	gw := &fakeGateway{res: &daraja.STKPushResponse{
		MerchantRequestID: "29115-34620561-3",
		CheckoutRequestID: "ws_CO_4",
		ResponseCode:      "0",
	}}
	l := &fakeLedger{}
	svc := newTestService(gw, l)

	_, err := svc.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		PhoneNumber:      "+254712345678",
		Amount:           150,
		AccountReference: "INV-001",
	})
	require.NoError(t, err)
	require.Equal(t, "254712345678", gw.lastPhone)
	require.Equal(t, "254712345678", l.created[0].PhoneNumber)
}

func TestInitiatePayment_GatewayErrorPassesThrough(t *testing.T) {
	gw := &fakeGateway{err: daraja.ErrServiceUnavailable}
	l := &fakeLedger{}
	svc := newTestService(gw, l)

	_, err := svc.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		PhoneNumber:      "0712345678",
		Amount:           150,
		AccountReference: "INV-001",
	})
	require.True(t, errors.Is(err, daraja.ErrServiceUnavailable))
	require.Empty(t, l.created)
}

func TestInitiatePayment_LedgerWriteIsFailOpen(t *testing.T) {
	gw := &fakeGateway{res: &daraja.STKPushResponse{
		MerchantRequestID: "29115-34620561-2",
		CheckoutRequestID: "ws_CO_2",
		ResponseCode:      "0",
	}}
	l := &fakeLedger{createErr: errors.New("connection refused")}
	svc := newTestService(gw, l)

	res, err := svc.InitiatePayment(context.Background(), &InitiatePaymentRequest{
		PhoneNumber:      "0712345678",
		Amount:           150,
		AccountReference: "INV-001",
	})
	// the prompt is already on the customer's phone, so the call still succeeds
	require.NoError(t, err)
	require.Equal(t, "ws_CO_2", res.CheckoutRequestID)
	require.Error(t, res.LedgerWriteErr)
}

func TestGetTransaction(t *testing.T) {
	l := &fakeLedger{created: []*models.Transaction{{
		ID:                "txn-1",
		CheckoutRequestID: "ws_CO_3",
		Status:            models.TransactionStatusPending,
	}}}
	svc := newTestService(&fakeGateway{}, l)

	txn, err := svc.GetTransaction(context.Background(), "ws_CO_3")
	require.NoError(t, err)
	require.Equal(t, "txn-1", txn.ID)

	_, err = svc.GetTransaction(context.Background(), "ws_CO_missing")
	require.True(t, errors.Is(err, ledger.ErrTransactionNotFound))
}
