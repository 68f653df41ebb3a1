package ai

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

var detectable = []lingua.Language{
	lingua.English, lingua.Chinese, lingua.Japanese, lingua.Korean,
	lingua.Spanish, lingua.French, lingua.German, lingua.Portuguese,
	lingua.Russian, lingua.Italian, lingua.Arabic, lingua.Dutch,
	lingua.Polish, lingua.Turkish, lingua.Vietnamese, lingua.Thai,
	lingua.Indonesian, lingua.Hindi,
}

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectable...).
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when the text is
// too short or the language is unknown.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < 3 {
		return ""
	}
	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// ShouldTranslate reports whether text needs translating into targetLang.
// Undetectable text is translated.
func ShouldTranslate(text, targetLang string) bool {
	detected := DetectLanguage(text)
	if detected == "" {
		return true
	}
	return detected != NormalizeLang(targetLang)
}

// NormalizeLang reduces a language tag such as "en-US" to "en".
func NormalizeLang(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) > 2 {
		code = code[:2]
	}
	return code
}
