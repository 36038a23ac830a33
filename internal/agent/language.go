package agent

import (
	"regexp"
	"strings"

	"sales-crm-workers/internal/intelligence"
)

type Language string

const (
	English Language = "English"
	Hindi   Language = "Hindi"
	Marathi Language = "Marathi"
)

// anyWord matches any of the words as whole words, case-insensitively.
func anyWord(words ...string) func(string) bool {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re := regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	return re.MatchString
}

var languageTable = intelligence.Table[string, Language]{
	{Name: "marathi", Result: Marathi, Match: anyWord("aahe", "pahije", "kuth", "kay", "bol", "kasa", "mi", "tula")},
	{Name: "hindi", Result: Hindi, Match: anyWord("hai", "kya", "kaise", "main", "tum", "aap", "chahiye", "bhai")},
}

// DetectLanguage guesses the language of romanised text. Marathi markers
// are checked before Hindi; anything else is English.
func DetectLanguage(text string) Language {
	return languageTable.Classify(text, English)
}
