package models

import "github.com/google/uuid"

const DefaultThemeName = "Padrão"

type Settings struct {
	Base
	UserID         uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	ThemeNameLight string    `gorm:"not null" json:"themeNameLight"`
	ThemeNameDark  string    `gorm:"not null" json:"themeNameDark"`
}

func (Settings) TableName() string {
	return "settings"
}

func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:         userID,
		ThemeNameLight: DefaultThemeName,
		ThemeNameDark:  DefaultThemeName,
	}
}
