package intelligence

import "strings"

// Rule pairs a predicate with the result it yields when the predicate holds.
type Rule[In, Out any] struct {
	Name   string
	Match  func(In) bool
	Result Out
}

// Table is an ordered list of rules. Evaluation is top-down and the first
// matching rule wins.
type Table[In, Out any] []Rule[In, Out]

// Match returns the first rule whose predicate holds for in.
func (t Table[In, Out]) Match(in In) (Rule[In, Out], bool) {
	for _, r := range t {
		if r.Match(in) {
			return r, true
		}
	}
	return Rule[In, Out]{}, false
}

// Classify returns the result of the first matching rule, or fallback.
func (t Table[In, Out]) Classify(in In, fallback Out) Out {
	if r, ok := t.Match(in); ok {
		return r.Result
	}
	return fallback
}

// keywordRules builds one substring rule per keyword, all yielding result.
// Rule names are the keywords themselves so a match reports its trigger.
func keywordRules[Out any](result Out, words ...string) []Rule[string, Out] {
	rules := make([]Rule[string, Out], 0, len(words))
	for _, w := range words {
		word := w
		rules = append(rules, Rule[string, Out]{
			Name:   word,
			Match:  func(text string) bool { return strings.Contains(text, word) },
			Result: result,
		})
	}
	return rules
}

func containsAny(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func concat[In, Out any](groups ...[]Rule[In, Out]) Table[In, Out] {
	var t Table[In, Out]
	for _, g := range groups {
		t = append(t, g...)
	}
	return t
}
