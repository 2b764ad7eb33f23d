package revocation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/models"
)

// GormLedger keeps revocations in the revoked_tokens table. Rows past expires_at are
// ignored by lookups and removed by Purge.
type GormLedger struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{DB: db}
}

func (l *GormLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *GormLedger) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	row := models.RevokedToken{JTI: jti, ExpiresAt: l.now().Add(ttl)}
	err := l.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "jti"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", ErrUnavailable, jti, err)
	}
	return nil
}

func (l *GormLedger) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := l.DB.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, l.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: lookup %s: %v", ErrUnavailable, jti, err)
	}
	return count > 0, nil
}

func (l *GormLedger) Ping(ctx context.Context) error {
	sqlDB, err := l.DB.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Purge deletes entries whose tokens have expired and returns how many went.
func (l *GormLedger) Purge(ctx context.Context) (int64, error) {
	res := l.DB.WithContext(ctx).
		Where("expires_at <= ?", l.now()).
		Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}

// RunPurge calls Purge every interval until ctx is done.
func (l *GormLedger) RunPurge(ctx context.Context, every time.Duration) {
	lg := logging.FromContext(ctx).With("component", "revocation.purge")
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Purge(ctx)
			if err != nil {
				lg.Error("purge_failed", "error", err)
				continue
			}
			if n > 0 {
				lg.Info("purged_expired_revocations", "count", n)
			}
		}
	}
}
