package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pps-segura/pesotrack/internal/models"
	"github.com/pps-segura/pesotrack/internal/store"
)

const (
	heightMinM        = 0.4
	heightMaxM        = 2.72
	weightMinKg       = 2.0
	weightMaxKg       = 650.0
	weightVariationKg = 5.0 // per elapsed day
	birthDateMinYear  = 1900
	birthDateLayout   = "2006-01-02"
)

type WeightService struct {
	Store store.ProfileStore
}

type BMIResult struct {
	WeightKg   float64
	HeightM    float64
	BMI        float64
	Category   string
	RecordedAt time.Time
}

func (s *WeightService) Profile(ctx context.Context, accountID uint) (*models.Profile, error) {
	p, err := s.Store.Profile(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

func (s *WeightService) SaveProfile(ctx context.Context, accountID uint, firstName, lastName, birthDate string, heightM float64) (*models.Profile, error) {
	first, err := sanitizeName(firstName)
	if err != nil {
		return nil, fmt.Errorf("%w: first name: %v", ErrValidation, err)
	}
	last, err := sanitizeName(lastName)
	if err != nil {
		return nil, fmt.Errorf("%w: last name: %v", ErrValidation, err)
	}

	born, err := time.Parse(birthDateLayout, birthDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid birth date", ErrValidation)
	}
	if born.Year() < birthDateMinYear || born.After(time.Now()) {
		return nil, fmt.Errorf("%w: birth date out of range", ErrValidation)
	}

	if heightM < heightMinM || heightM > heightMaxM {
		return nil, fmt.Errorf("%w: height out of range", ErrValidation)
	}

	profile := &models.Profile{
		AccountID: accountID,
		FirstName: first,
		LastName:  last,
		BirthDate: born,
		HeightM:   heightM,
	}
	if err := s.Store.SaveProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}

// AddWeight records a measurement. A second measurement on the same
// calendar day replaces the first; against the latest entry from another
// day, the change may not exceed 5 kg per elapsed day.
func (s *WeightService) AddWeight(ctx context.Context, accountID uint, weightKg float64, recordedAt time.Time) (*models.WeightEntry, error) {
	if weightKg < weightMinKg || weightKg > weightMaxKg {
		return nil, fmt.Errorf("%w: weight out of range", ErrValidation)
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	prev, err := s.Store.LatestWeightOtherDay(ctx, accountID, recordedAt)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load previous weight: %w", err)
	}
	if prev != nil {
		days := recordedAt.Sub(prev.RecordedAt).Hours() / 24
		if days < 1 {
			days = 1
		}
		if math.Abs(weightKg-prev.WeightKg) > weightVariationKg*days {
			return nil, fmt.Errorf("%w: weight variation too large", ErrValidation)
		}
	}

	entry := &models.WeightEntry{
		AccountID:  accountID,
		WeightKg:   weightKg,
		RecordedAt: recordedAt,
	}
	if err := s.Store.SaveWeight(ctx, entry); err != nil {
		return nil, fmt.Errorf("save weight: %w", err)
	}
	return entry, nil
}

func (s *WeightService) History(ctx context.Context, accountID uint) ([]models.WeightEntry, error) {
	entries, err := s.Store.WeightHistory(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

func (s *WeightService) CurrentBMI(ctx context.Context, accountID uint) (*BMIResult, error) {
	profile, err := s.Profile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	latest, err := s.Store.LatestWeight(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load latest weight: %w", err)
	}

	bmi := CalculateBMI(latest.WeightKg, profile.HeightM)
	return &BMIResult{
		WeightKg:   latest.WeightKg,
		HeightM:    profile.HeightM,
		BMI:        bmi,
		Category:   BMICategory(bmi),
		RecordedAt: latest.RecordedAt,
	}, nil
}

func (s *WeightService) Stats(ctx context.Context, accountID uint) (*store.WeightStats, error) {
	stats, err := s.Store.WeightStats(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

// CalculateBMI rounds kg/m² to one decimal.
func CalculateBMI(weightKg, heightM float64) float64 {
	if heightM <= 0 {
		return 0
	}
	return math.Round(weightKg/(heightM*heightM)*10) / 10
}

// BMICategory maps a BMI value to its WHO classification key.
func BMICategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "underweight"
	case bmi < 25:
		return "normal"
	case bmi < 30:
		return "overweight"
	case bmi < 35:
		return "obese_class_i"
	case bmi < 40:
		return "obese_class_ii"
	default:
		return "obese_class_iii"
	}
}
