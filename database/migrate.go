package database

import (
	"fmt"

	"github.com/lgcert/indigene-certificate/internal/application"
	"github.com/lgcert/indigene-certificate/internal/auditlog"
	"github.com/lgcert/indigene-certificate/internal/auth"
	"github.com/lgcert/indigene-certificate/internal/certificate"
	"github.com/lgcert/indigene-certificate/internal/digitization"
	"github.com/lgcert/indigene-certificate/internal/dynamicfield"
	"github.com/lgcert/indigene-certificate/internal/lifecycle"
	"github.com/lgcert/indigene-certificate/internal/localgovernment"
	"github.com/lgcert/indigene-certificate/internal/notification"
	"github.com/lgcert/indigene-certificate/internal/payment"
	"github.com/lgcert/indigene-certificate/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the portal, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&auth.UserRole{},
		&localgovernment.LocalGovernment{},
		&auth.User{},
		&auditlog.AuditLog{},
		&dynamicfield.DynamicField{},
		&application.Application{},
		&digitization.Request{},
		&lifecycle.History{},
		&certificate.Certificate{},
		&payment.Payment{},
		&notification.NotificationLog{},
		&notification.InAppNotification{},
		&notification.DeviceToken{},
	}
}

func Migrate(db *gorm.DB, log *logger.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Info("database migration completed")
	return nil
}

// Seed inserts the fixed roles, the bootstrap superadmin and the local
// government catalogue. Every step is idempotent.
func Seed(db *gorm.DB, superAdminEmail, superAdminPassword string, log *logger.Logger) error {
	if err := auth.SeedUserRoles(db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	if err := auth.SeedSuperAdminUser(db, superAdminEmail, superAdminPassword); err != nil {
		return fmt.Errorf("seed superadmin: %w", err)
	}
	if err := localgovernment.SeedLocalGovernments(db); err != nil {
		return fmt.Errorf("seed local governments: %w", err)
	}
	log.Info("seed data ready")
	return nil
}
