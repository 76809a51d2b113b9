// Package language detects the request language and translates text to and
// from English around model calls.
package language

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamasafe/go-mamasafe/internal/ai"
)

// Supported language codes
const (
	English = "en"
	Yoruba  = "yo"
	Igbo    = "ig"
	Hausa   = "ha"
	// Auto asks the service to detect the language
	Auto = "auto"
)

var names = map[string]string{
	English: "English",
	Yoruba:  "Yoruba",
	Igbo:    "Igbo",
	Hausa:   "Hausa",
}

// Name returns the language name for code
func Name(code string) string {
	if name, ok := names[code]; ok {
		return name
	}
	return "the local language"
}

// Normalize lowercases code and maps unsupported codes to English. Auto is kept.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == Auto {
		return Auto
	}
	if _, ok := names[code]; ok {
		return code
	}
	return English
}

// Service translates via a Generator. Every failure degrades to English or
// to the untranslated text.
type Service struct {
	gen    ai.Generator
	logger *zap.Logger
}

// New creates a language service. A nil generator disables translation.
func New(gen ai.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger}
}

// Detect returns en, yo, ig or ha for text
func (s *Service) Detect(ctx context.Context, text string) string {
	if s.gen == nil || strings.TrimSpace(text) == "" {
		return English
	}
	prompt := fmt.Sprintf(`Detect the language of this text: %q

Return only one of these codes:
- "yo" for Yoruba
- "ig" for Igbo
- "ha" for Hausa
- "en" for English

Return only the language code, nothing else.`, text)

	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("language detection failed", zap.Error(err))
		return English
	}
	code := strings.Trim(strings.ToLower(strings.TrimSpace(out)), `"'.`)
	if _, ok := names[code]; !ok {
		return English
	}
	return code
}

// ToEnglish translates text from lang into English
func (s *Service) ToEnglish(ctx context.Context, text, lang string) string {
	if lang == English || s.gen == nil || strings.TrimSpace(text) == "" {
		return text
	}
	prompt := fmt.Sprintf("Translate this %s text to English: %q\n\nReturn only the English translation, nothing else.",
		Name(lang), text)
	return s.translate(ctx, prompt, text)
}

// FromEnglish translates English text into lang
func (s *Service) FromEnglish(ctx context.Context, text, lang string) string {
	if lang == English || s.gen == nil || strings.TrimSpace(text) == "" {
		return text
	}
	name := Name(lang)
	prompt := fmt.Sprintf("Translate this English text to %s: %q\n\nReturn only the %s translation, nothing else.",
		name, text, name)
	return s.translate(ctx, prompt, text)
}

func (s *Service) translate(ctx context.Context, prompt, fallback string) string {
	out, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		s.logger.Debug("translation failed, keeping original text", zap.Error(err))
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}
