package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/models"
)

// fakeLedger keeps transactions in a map and records every patch applied, so
// tests can assert both the outcome and the write traffic.
type fakeLedger struct {
	rows      map[string]*models.Transaction
	patches   []*ledger.TransactionPatch
	updateErr error
}

func newFakeLedger(txns ...*models.Transaction) *fakeLedger {
	f := &fakeLedger{rows: map[string]*models.Transaction{}}
	for _, txn := range txns {
		f.rows[txn.CheckoutRequestID] = txn
	}
	return f
}

func (f *fakeLedger) Create(ctx context.Context, txn *models.Transaction) error {
	f.rows[txn.CheckoutRequestID] = txn
	return nil
}

func (f *fakeLedger) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	txn, ok := f.rows[checkoutRequestID]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeLedger) UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, patch *ledger.TransactionPatch) (*models.Transaction, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	txn, ok := f.rows[checkoutRequestID]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	f.patches = append(f.patches, patch)

	txn.Status = patch.Status
	txn.ResultCode = patch.ResultCode
	txn.ResultDesc = patch.ResultDesc
	if patch.MpesaReceiptNumber != nil {
		txn.MpesaReceiptNumber = patch.MpesaReceiptNumber
	}
	if patch.TransactionDate != nil {
		txn.TransactionDate = patch.TransactionDate
	}
	cp := *txn
	return &cp, nil
}

var testClock = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func newTestReconciler(l ledger.Ledger) *Reconciler {
	log := zap.NewNop().Sugar()
	r := NewReconciler(l, nil, NewMetadataParser(log), log)
	r.now = func() time.Time { return testClock }
	return r
}

func pendingTxn(checkoutID string) *models.Transaction {
	return &models.Transaction{
		ID:                "txn-" + checkoutID,
		MerchantRequestID: "mr-" + checkoutID,
		CheckoutRequestID: checkoutID,
		PhoneNumber:       "254712345678",
		Amount:            150,
		Status:            models.TransactionStatusPending,
	}
}

func envelope(checkoutID string, resultCode int, items []CallbackItem) *STKCallbackEnvelope {
	cb := &STKCallback{
		MerchantRequestID: "mr-" + checkoutID,
		CheckoutRequestID: checkoutID,
		ResultCode:        lo.ToPtr(resultCode),
		ResultDesc:        fmt.Sprintf("result %d", resultCode),
	}
	if items != nil {
		cb.CallbackMetadata = &CallbackMetadata{Item: items}
	}
	env := &STKCallbackEnvelope{}
	env.Body.StkCallback = cb
	return env
}

func TestReconcile_SuccessWithMetadata(t *testing.T) {
	l := newFakeLedger(pendingTxn("ws_CO_1"))
	r := newTestReconciler(l)

	txn, err := r.Reconcile(context.Background(), envelope("ws_CO_1", 0, []CallbackItem{
		{Name: "Amount", Value: 150.0},
		{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
		{Name: "TransactionDate", Value: "20250601120000"},
		{Name: "PhoneNumber", Value: "254712345678"},
	}))
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusSuccess, txn.Status)
	require.Equal(t, "NLJ7RT61SV", *txn.MpesaReceiptNumber)
	require.Equal(t, 0, *txn.ResultCode)

	want := time.Date(2025, 6, 1, 12, 0, 0, 0, eat)
	require.Equal(t, want.Unix(), txn.TransactionDate.Unix())
	require.Len(t, l.patches, 1)
}

func TestReconcile_SuccessWithoutMetadataUsesPlaceholder(t *testing.T) {
	l := newFakeLedger(pendingTxn("ws_CO_2"))
	r := newTestReconciler(l)

	txn, err := r.Reconcile(context.Background(), envelope("ws_CO_2", 0, nil))
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusSuccess, txn.Status)
	require.Equal(t, "N/A-ws_CO_2", *txn.MpesaReceiptNumber)
	require.Equal(t, testClock.Unix(), txn.TransactionDate.Unix())
}

func TestReconcile_FailureCodes(t *testing.T) {
	cases := []struct {
		code int
		want models.TransactionStatus
	}{
		{1032, models.TransactionStatusCancelled},
		{1037, models.TransactionStatusTimeout},
		{1, models.TransactionStatusFailed},
		{2001, models.TransactionStatusFailed},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("code_%d", tc.code), func(t *testing.T) {
			id := fmt.Sprintf("ws_CO_%d", tc.code)
			l := newFakeLedger(pendingTxn(id))
			r := newTestReconciler(l)

			txn, err := r.Reconcile(context.Background(), envelope(id, tc.code, nil))
			require.NoError(t, err)
			require.Equal(t, tc.want, txn.Status)
			// failure callbacks never carry a receipt
			require.Nil(t, txn.MpesaReceiptNumber)
		})
	}
}

func TestReconcile_UnknownTransaction(t *testing.T) {
	l := newFakeLedger()
	r := newTestReconciler(l)

	_, err := r.Reconcile(context.Background(), envelope("ws_CO_missing", 0, nil))
	require.True(t, errors.Is(err, ErrUnknownTransaction))
	require.Empty(t, l.patches)
}

func TestReconcile_MalformedEnvelope(t *testing.T) {
	l := newFakeLedger()
	r := newTestReconciler(l)

	for name, env := range map[string]*STKCallbackEnvelope{
		"no_callback":    {},
		"no_result_code": envelopeWithoutResultCode("ws_CO_3"),
		"no_checkout_id": envelope("", 0, nil),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := r.Reconcile(context.Background(), env)
			require.True(t, errors.Is(err, ErrMalformedCallback))
		})
	}
}

func envelopeWithoutResultCode(checkoutID string) *STKCallbackEnvelope {
	env := envelope(checkoutID, 0, nil)
	env.Body.StkCallback.ResultCode = nil
	return env
}

func TestReconcile_TerminalTransactionIsNoOp(t *testing.T) {
	done := pendingTxn("ws_CO_4")
	done.Status = models.TransactionStatusSuccess
	done.MpesaReceiptNumber = lo.ToPtr("NLJ7RT61SV")
	l := newFakeLedger(done)
	r := newTestReconciler(l)

	// a late TIMEOUT delivery must not overwrite the success
	txn, err := r.Reconcile(context.Background(), envelope("ws_CO_4", 1037, nil))
	require.NoError(t, err)
	require.Equal(t, models.TransactionStatusSuccess, txn.Status)
	require.Equal(t, "NLJ7RT61SV", *txn.MpesaReceiptNumber)
	require.Empty(t, l.patches)
}

func TestReconcile_PersistenceFailure(t *testing.T) {
	l := newFakeLedger(pendingTxn("ws_CO_5"))
	l.updateErr = errors.New("connection reset")
	r := newTestReconciler(l)

	_, err := r.Reconcile(context.Background(), envelope("ws_CO_5", 0, nil))
	require.True(t, errors.Is(err, ErrPersistenceFailure))
}
