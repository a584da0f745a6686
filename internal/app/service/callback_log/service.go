package callback_log

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sokopay/paygate/internal/models"
	"github.com/sokopay/paygate/pkg/logctx"
	"github.com/sokopay/paygate/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a callback audit row. Nil input is ignored;
// a failed write is logged, never surfaced — audit rows must not affect the
// webhook response path.
func (s *Service) Save(ctx context.Context, row *models.CallbackLog) {
	go func() {
		if row == nil {
			return
		}
		if row.ID == "" {
			row.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save callback log: %v", err)
		}
	}()
}
