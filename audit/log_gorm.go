package audit

import (
	"context"

	"gorm.io/gorm"
)

type GormLog struct {
	db *gorm.DB
}

func NewGormLog(db *gorm.DB) (*GormLog, error) {
	if err := db.AutoMigrate(&ModAction{}, &NukeSession{}); err != nil {
		return nil, err
	}
	return &GormLog{db: db}, nil
}

func (l *GormLog) Append(ctx context.Context, action *ModAction) error {
	return l.db.WithContext(ctx).Create(action).Error
}

func (l *GormLog) Recent(ctx context.Context, channel string, limit int) ([]ModAction, error) {
	var out []ModAction
	err := l.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (l *GormLog) ForUser(ctx context.Context, channel, userID string, limit int) ([]ModAction, error) {
	var out []ModAction
	err := l.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (l *GormLog) AppendNuke(ctx context.Context, session *NukeSession) error {
	return l.db.WithContext(ctx).Create(session).Error
}

func (l *GormLog) RecentNukes(ctx context.Context, channel string, limit int) ([]NukeSession, error) {
	var out []NukeSession
	err := l.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
