package strikes

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(ctx context.Context, channel, userID string) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) Put(ctx context.Context, rec *Record) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

func (s *GormStore) Clear(ctx context.Context, channel, userID string) error {
	return s.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		Delete(&Record{}).Error
}
