package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	callbacklog "github.com/sokopay/paygate/internal/app/service/callback_log"
	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/pkg/logctx"
	"github.com/sokopay/paygate/pkg/metrics"
)

// Gateway result codes with a dedicated terminal status; any other non-zero
// code maps to FAILED.
const (
	resultCodeSuccess   = 0
	resultCodeCancelled = 1032
	resultCodeTimeout   = 1037
)

// STKCallbackEnvelope is the inbound webhook body.
type STKCallbackEnvelope struct {
	Body struct {
		StkCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        *int              `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

// Reconciler turns one webhook delivery into at most one state transition of
// the matching transaction. Transitions are idempotent: PENDING is the only
// state it will move, a callback for an already-terminal transaction is a
// logged no-op. Reconciliation writes are never retried locally; the gateway
// has its own delivery-retry policy.
type Reconciler struct {
	ledger ledger.Ledger
	cbLog  *callbacklog.Service
	parser *MetadataParser
	log    *zap.SugaredLogger

	now func() time.Time
}

func NewReconciler(l ledger.Ledger, cbLog *callbacklog.Service, parser *MetadataParser, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{ledger: l, cbLog: cbLog, parser: parser, log: log, now: time.Now}
}

func (r *Reconciler) Reconcile(ctx context.Context, payload *STKCallbackEnvelope) (txn *models.Transaction, resErr error) {
	log := logctx.FromCtx(ctx, r.log)

	cb := payload.Body.StkCallback
	if cb == nil || cb.MerchantRequestID == "" || cb.CheckoutRequestID == "" || cb.ResultCode == nil {
		metrics.CallbackOutcomes.WithLabelValues("malformed").Inc()
		return nil, ErrMalformedCallback
	}

	r.saveAudit(ctx, cb, payload, models.CallbackLogStatusReceived, nil)
	defer func() {
		status := models.CallbackLogStatusHandled
		if resErr != nil {
			status = models.CallbackLogStatusHandleFailed
		}
		r.saveAudit(ctx, cb, payload, status, resErr)
	}()

	existing, err := r.ledger.FindByCheckoutID(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			// replayed/forged callback, or a lost initiation write
			metrics.CallbackOutcomes.WithLabelValues("unknown").Inc()
			return nil, fmt.Errorf("%w: checkout_request_id=%s", ErrUnknownTransaction, cb.CheckoutRequestID)
		}
		metrics.CallbackOutcomes.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	if existing.IsTerminal() {
		log.Infow("callback_ignored_terminal",
			"checkout_request_id", cb.CheckoutRequestID,
			"current_status", existing.Status,
			"result_code", *cb.ResultCode,
		)
		metrics.CallbackOutcomes.WithLabelValues("duplicate").Inc()
		return existing, nil
	}

	status := statusFromResultCode(*cb.ResultCode)
	patch := &ledger.TransactionPatch{
		Status:     status,
		ResultCode: cb.ResultCode,
		ResultDesc: lo.ToPtr(cb.ResultDesc),
	}

	if status == models.TransactionStatusSuccess {
		r.enrichSuccess(cb, existing, patch, log)
	}

	updated, err := r.ledger.UpdateByCheckoutID(ctx, cb.CheckoutRequestID, patch)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			// lookup/write race
			metrics.CallbackOutcomes.WithLabelValues("unknown").Inc()
			return nil, fmt.Errorf("%w: checkout_request_id=%s", ErrUnknownTransaction, cb.CheckoutRequestID)
		}
		metrics.CallbackOutcomes.WithLabelValues("persistence_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	log.Infow("callback_reconciled",
		"checkout_request_id", cb.CheckoutRequestID,
		"result_code", *cb.ResultCode,
		"status", updated.Status,
	)
	metrics.CallbackOutcomes.WithLabelValues(string(updated.Status)).Inc()
	return updated, nil
}

// enrichSuccess fills receipt number and transaction timestamp from the
// metadata item list. The gateway sometimes omits the list entirely on
// success; a placeholder receipt and the current time are substituted so the
// success record is never incomplete.
func (r *Reconciler) enrichSuccess(cb *STKCallback, existing *models.Transaction, patch *ledger.TransactionPatch, log *zap.SugaredLogger) {
	if cb.CallbackMetadata == nil || len(cb.CallbackMetadata.Item) == 0 {
		log.Warnw("callback_metadata_missing", "checkout_request_id", cb.CheckoutRequestID)
		patch.MpesaReceiptNumber = lo.ToPtr("N/A-" + cb.CheckoutRequestID)
		patch.TransactionDate = lo.ToPtr(r.now())
		return
	}

	meta := r.parser.Parse(cb.CallbackMetadata.Item)

	receipt := meta.MpesaReceiptNumber
	if receipt == "" {
		receipt = "N/A-" + cb.CheckoutRequestID
	}
	patch.MpesaReceiptNumber = lo.ToPtr(receipt)

	when := meta.TransactionDate
	if when.IsZero() {
		when = r.now()
	}
	patch.TransactionDate = lo.ToPtr(when)

	if meta.Balance != nil || meta.PhoneNumber != "" || len(meta.Extra) > 0 {
		extra := existing.GetExtra()
		if extra == nil {
			extra = &models.TransactionExtra{}
		}
		extra.CallbackBalance = meta.Balance
		extra.CallbackPhoneNumber = meta.PhoneNumber
		extra.CallbackMetadata = meta.Extra
		patch.Extra = extra
	}
}

func (r *Reconciler) saveAudit(ctx context.Context, cb *STKCallback, payload *STKCallbackEnvelope, status models.CallbackLogStatus, handleErr error) {
	if r.cbLog == nil {
		return
	}
	var traceID string
	if v, ok := ctx.Value("traceID").(string); ok {
		traceID = v
	}

	dataBytes, _ := json.Marshal(payload)
	row := &models.CallbackLog{
		CheckoutRequestID: cb.CheckoutRequestID,
		MerchantRequestID: cb.MerchantRequestID,
		TraceID:           traceID,
		CallbackTime:      r.now(),
		Data:              datatypes.JSON(dataBytes),
		Status:            status,
	}
	if status != models.CallbackLogStatusReceived {
		resMap := map[string]any{}
		if handleErr != nil {
			resMap["error"] = handleErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		row.Result = lo.ToPtr(datatypes.JSON(resBytes))
	}
	r.cbLog.Save(ctx, row)
}

func statusFromResultCode(code int) models.TransactionStatus {
	switch code {
	case resultCodeSuccess:
		return models.TransactionStatusSuccess
	case resultCodeCancelled:
		return models.TransactionStatusCancelled
	case resultCodeTimeout:
		return models.TransactionStatusTimeout
	default:
		return models.TransactionStatusFailed
	}
}
