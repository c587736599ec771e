package migration

import (
	securitydomain "github.com/tipcast/tipcast/internal/security/domain"
	streamerdomain "github.com/tipcast/tipcast/internal/streamer/domain"
	txdomain "github.com/tipcast/tipcast/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run applies schema migrations on startup.
func Run(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	return db.AutoMigrate(
		&streamerdomain.Streamer{},
		&txdomain.BankTransaction{},
		&securitydomain.AlertSettings{},
		&securitydomain.SecurityViolation{},
	)
}

var Module = fx.Module("migration",
	fx.Invoke(Run),
)
