package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fremancer/fremancer/internal/apperr"
	"github.com/fremancer/fremancer/internal/models"
)

// profileOf loads the membership profile of a caller. Every list query is
// scoped through it: freelancers see their own rows, hirers see rows of
// their contracts.
func profileOf(db *gorm.DB, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authorization("no profile for caller")
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &profile, nil
}

// bankOf fetches or creates the caller's bank record.
func bankOf(db *gorm.DB, userID uint) (*models.BankRecord, error) {
	var bank models.BankRecord
	err := db.Where("user_id = ?", userID).First(&bank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bank = models.BankRecord{UserID: userID}
		if err := db.Create(&bank).Error; err != nil {
			return nil, fmt.Errorf("create bank record: %w", err)
		}
		return &bank, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load bank record: %w", err)
	}
	return &bank, nil
}
