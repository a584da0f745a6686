package app

import (
	"time"

	"github.com/sokopay/paygate/internal/app/api/server"
	callbacklog "github.com/sokopay/paygate/internal/app/service/callback_log"
	"github.com/sokopay/paygate/internal/app/service/ledger"
	"github.com/sokopay/paygate/internal/app/service/payment"
	"github.com/sokopay/paygate/internal/app/service/reconciliation"
	"github.com/sokopay/paygate/internal/app/service/statistics"
	"github.com/sokopay/paygate/internal/platform/db"
	"github.com/sokopay/paygate/pkg/config"
	"github.com/sokopay/paygate/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	ledger.Module,
	callbacklog.Module,
	reconciliation.Module,
	payment.Module,
	statistics.Module,
)
