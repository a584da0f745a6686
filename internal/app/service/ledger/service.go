package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/pkg/tool"
)

// ErrTransactionNotFound is returned when no transaction matches the
// checkout request id, both on lookup and when an update matched no row.
var ErrTransactionNotFound = errors.New("ledger: transaction not found")

// TransactionPatch is the reconciliation write: only non-nil fields are
// applied. Status is always set by the reconciler.
type TransactionPatch struct {
	Status             models.TransactionStatus
	ResultCode         *int
	ResultDesc         *string
	MpesaReceiptNumber *string
	TransactionDate    *time.Time
	Extra              *models.TransactionExtra
}

// Ledger is the durable store of transactions keyed by the gateway-issued
// checkout request id. Per-record write consistency is the database's job;
// callers do not add locking on top.
type Ledger interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
	UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, patch *TransactionPatch) (*models.Transaction, error)
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) Ledger {
	return &Service{db: db, log: log}
}

func (s *Service) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		txn.ID = tool.GenerateUUIDV7()
	}
	if txn.Status == "" {
		txn.Status = models.TransactionStatusPending
	}
	if err := s.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *Service) FindByCheckoutID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.WithContext(ctx).Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &txn, nil
}

func (s *Service) UpdateByCheckoutID(ctx context.Context, checkoutRequestID string, patch *TransactionPatch) (*models.Transaction, error) {
	updates := map[string]any{"status": patch.Status}
	if patch.ResultCode != nil {
		updates["result_code"] = *patch.ResultCode
	}
	if patch.ResultDesc != nil {
		updates["result_desc"] = *patch.ResultDesc
	}
	if patch.MpesaReceiptNumber != nil {
		updates["mpesa_receipt_number"] = *patch.MpesaReceiptNumber
	}
	if patch.TransactionDate != nil {
		updates["transaction_date"] = *patch.TransactionDate
	}
	if patch.Extra != nil {
		updates["extra"] = datatypes.NewJSONType(patch.Extra)
	}

	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("checkout_request_id = ?", checkoutRequestID).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTransactionNotFound
	}

	return s.FindByCheckoutID(ctx, checkoutRequestID)
}
