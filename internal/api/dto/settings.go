package dto

import "github.com/hugh/chronos/internal/api/validation"

// SettingsRequest is the PUT /settings body. Only the theme names are
// accepted; the decoder rejects any other key.
type SettingsRequest struct {
	ThemeNameLight *string `json:"themeNameLight"`
	ThemeNameDark  *string `json:"themeNameDark"`
}

func (r SettingsRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ThemeNameLight != nil {
		if msg := validation.ValidateThemeName(*r.ThemeNameLight); msg != "" {
			errors["themeNameLight"] = msg
		}
	}
	if r.ThemeNameDark != nil {
		if msg := validation.ValidateThemeName(*r.ThemeNameDark); msg != "" {
			errors["themeNameDark"] = msg
		}
	}

	return errors
}

type SettingsResponse struct {
	ThemeNameLight string `json:"themeNameLight"`
	ThemeNameDark  string `json:"themeNameDark"`
}
