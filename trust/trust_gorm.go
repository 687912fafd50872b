package trust

import (
	"context"
	"errors"
	"time"

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

func (s *GormStore) GetOrCreate(ctx context.Context, channel, userID, username string, now time.Time) (*Record, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		First(&rec).Error
	if err == nil {
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	rec = Record{
		Channel:   channel,
		UserID:    userID,
		Username:  username,
		Score:     DefaultScore,
		FirstSeen: now,
		LastSeen:  now,
	}
	// a concurrent lane may have raced the insert; the existing row wins
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) BumpMessage(ctx context.Context, channel, userID string, now time.Time) error {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	count, score := bumpDrift(rec.MessageCount, rec.Score)
	return s.db.WithContext(ctx).Model(&rec).
		Updates(map[string]interface{}{
			"message_count": count,
			"score":         score,
			"last_seen":     now,
		}).Error
}

func (s *GormStore) AdjustScore(ctx context.Context, channel, userID string, delta int) error {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("channel = ? AND user_id = ?", channel, userID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&rec).
		Update("score", clampScore(rec.Score+delta)).Error
}

func (s *GormStore) SetWhitelisted(ctx context.Context, channel, userID string, whitelisted bool) error {
	rec := Record{
		Channel:   channel,
		UserID:    userID,
		Username:  userID,
		Score:     DefaultScore,
		FirstSeen: time.Now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&Record{}).
		Where("channel = ? AND user_id = ?", channel, userID).
		Update("whitelisted", whitelisted).Error
}
