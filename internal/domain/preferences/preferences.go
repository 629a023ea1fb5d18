package preferences

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("preferences not found")

type Preferences struct {
	UserID           string    `json:"userId"`
	Currency         string    `json:"currency"`
	Locale           string    `json:"locale"`
	Timezone         string    `json:"timezone"`
	PriceAlertEmails bool      `json:"priceAlertEmails"`
	WeeklyDigest     bool      `json:"weeklyDigest"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type UpdateRequest struct {
	Currency         string `json:"currency" binding:"required,len=3,uppercase"`
	Locale           string `json:"locale" binding:"required,bcp47_language_tag"`
	Timezone         string `json:"timezone" binding:"required,timezone"`
	PriceAlertEmails *bool  `json:"priceAlertEmails" binding:"required"`
	WeeklyDigest     *bool  `json:"weeklyDigest" binding:"required"`
}

// Defaults is what a user sees before they have saved anything.
func Defaults(userID string) Preferences {
	return Preferences{
		UserID:           userID,
		Currency:         "USD",
		Locale:           "en-US",
		Timezone:         "UTC",
		PriceAlertEmails: true,
		WeeklyDigest:     false,
	}
}

func FromUpdate(userID string, req UpdateRequest, now time.Time) Preferences {
	p := Preferences{
		UserID:    userID,
		Currency:  req.Currency,
		Locale:    req.Locale,
		Timezone:  req.Timezone,
		UpdatedAt: now,
	}

	if req.PriceAlertEmails != nil {
		p.PriceAlertEmails = *req.PriceAlertEmails
	}
	if req.WeeklyDigest != nil {
		p.WeeklyDigest = *req.WeeklyDigest
	}

	return p
}
