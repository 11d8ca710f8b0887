package ocr

import "strings"

// Settings is the caller-owned recognition configuration. It is read, never
// modified, by a recognition call.
type Settings struct {
	Language    string `json:"language"`
	PageSegMode int    `json:"pageSegMode"`
	EngineMode  int    `json:"ocrEngineMode"`
	Whitelist   string `json:"whitelist,omitempty"`
	Blacklist   string `json:"blacklist,omitempty"`
}

// DefaultSettings returns English, fully automatic page segmentation and the
// LSTM engine.
func DefaultSettings() Settings {
	return Settings{
		Language:    "eng",
		PageSegMode: 3,
		EngineMode:  1,
	}
}

// Parameters builds the engine parameter set. Inter-word spacing is always
// preserved.
func (s Settings) Parameters() Parameters {
	return Parameters{
		EngineMode:              s.EngineMode,
		PageSegMode:             s.PageSegMode,
		PreserveInterwordSpaces: true,
		Whitelist:               s.Whitelist,
		Blacklist:               s.Blacklist,
	}
}

func (s Settings) language() string {
	if lang := strings.TrimSpace(s.Language); lang != "" {
		return lang
	}
	return DefaultSettings().Language
}
