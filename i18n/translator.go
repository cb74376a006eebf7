package i18n

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// Message keys for validation assertions.
const (
	NumberMaxInclusive = "number_max_inclusive"
	NumberMaxExclusive = "number_max_exclusive"
	NumberMinInclusive = "number_min_inclusive"
	NumberMinExclusive = "number_min_exclusive"
	NumberMultipleOf   = "number_multiple_of"
	StringMaxLength    = "string_max_length"
	StringMinLength    = "string_min_length"
	StringRegex        = "string_regex"
	ArrayMaxItems      = "array_max_items"
	ArrayMinItems      = "array_min_items"
	UnionNoVariant     = "union_no_variant"
)

// Translator retrieves localized assertion messages. args fill the
// placeholders of the message template (bounds, lengths, patterns).
type Translator interface {
	Message(key string, args ...any) string
}

var catalogs = map[language.Tag]map[string]string{
	language.English: {
		NumberMaxInclusive: "number must be less than or equal to %v",
		NumberMaxExclusive: "number must be less than %v",
		NumberMinInclusive: "number must be greater than or equal to %v",
		NumberMinExclusive: "number must be greater than %v",
		NumberMultipleOf:   "number must be multiple of %v",
		StringMaxLength:    "string longer than max length (%v)",
		StringMinLength:    "string shorter than min length (%v)",
		StringRegex:        "string regex mismatch (%v)",
		ArrayMaxItems:      "array must have at most %v items",
		ArrayMinItems:      "array must have at least %v items",
		UnionNoVariant:     "value does not pass any of the variant checks",
	},
	language.Japanese: {
		NumberMaxInclusive: "数値は %v 以下である必要があります",
		NumberMaxExclusive: "数値は %v 未満である必要があります",
		NumberMinInclusive: "数値は %v 以上である必要があります",
		NumberMinExclusive: "数値は %v より大きい必要があります",
		NumberMultipleOf:   "数値は %v の倍数である必要があります",
		StringMaxLength:    "文字列が最大長 (%v) を超えています",
		StringMinLength:    "文字列が最小長 (%v) に達していません",
		StringRegex:        "文字列がパターン (%v) に一致しません",
		ArrayMaxItems:      "配列の要素数は %v 以下である必要があります",
		ArrayMinItems:      "配列の要素数は %v 以上である必要があります",
		UnionNoVariant:     "どのバリアントの条件も満たしていません",
	},
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Japanese})

// dictTranslator is the built-in catalog-based Translator.
type dictTranslator struct{ lang language.Tag }

func (t dictTranslator) Message(key string, args ...any) string {
	tmpl, ok := catalogs[t.lang][key]
	if !ok {
		tmpl, ok = catalogs[language.English][key]
	}
	if !ok {
		return key
	}
	return fmt.Sprintf(tmpl, args...)
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: language.English}
)

// SetLanguage switches the built-in Translator to the best match for the
// given BCP 47 tags ("ja", "en-US", "ja-JP;q=0.8"...). Unsupported
// languages fall back to English.
func SetLanguage(langs ...string) {
	tags := make([]language.Tag, 0, len(langs))
	for _, l := range langs {
		if parsed, _, err := language.ParseAcceptLanguage(l); err == nil {
			tags = append(tags, parsed...)
		}
	}
	_, idx, conf := matcher.Match(tags...)
	tag := language.English
	if conf != language.No && idx == 1 {
		tag = language.Japanese
	}
	SetTranslator(dictTranslator{lang: tag})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: language.English}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given key using the current Translator.
func T(key string, args ...any) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(key, args...)
}
