package retriever

import (
	"strings"
	"unicode"
)

// elisionPrefixes are short article/pronoun contractions whose remainder
// carries the actual search term ("l'anniversaire" -> "anniversaire").
var elisionPrefixes = []string{"qu'", "d'", "l'", "j'", "c'", "n'", "s'", "t'", "m'"}

var stopwords = map[string]struct{}{
	// english
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "has": {}, "had": {}, "his": {}, "him": {},
	"she": {}, "who": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"with": {}, "this": {}, "that": {}, "from": {}, "they": {}, "them": {},
	"were": {}, "been": {}, "have": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "about": {}, "there": {}, "their": {}, "then": {}, "than": {},
	"did": {}, "does": {}, "how": {}, "why": {}, "say": {}, "said": {},
	// french
	"les": {}, "des": {}, "est": {}, "une": {}, "dans": {}, "pour": {},
	"que": {}, "qui": {}, "pas": {}, "sur": {}, "par": {}, "mais": {},
	"avec": {}, "sont": {}, "nous": {}, "vous": {}, "ils": {}, "elles": {},
	"elle": {}, "son": {}, "ses": {}, "ces": {}, "cette": {}, "leur": {},
	"tout": {}, "tous": {}, "fait": {}, "être": {}, "avoir": {}, "aux": {},
	"quand": {}, "quoi": {}, "comme": {}, "plus": {}, "moi": {}, "toi": {},
}

func isKeywordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\''
}

// ExtractKeywords tokenizes a query into the lexical terms used by the
// keyword stage. Apostrophe handling keeps French elisions usable
// ("j'ai dit" contributes "dit", not "j'ai").
func ExtractKeywords(query string) []string {
	normalized := strings.ToLower(query)
	normalized = strings.NewReplacer("’", "'", "‘", "'").Replace(normalized)
	var b strings.Builder
	for _, r := range normalized {
		if isKeywordRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	var keywords []string
	for _, token := range strings.Fields(b.String()) {
		token = strings.Trim(token, "'-")
		if token == "" {
			continue
		}
		elided := false
		for _, prefix := range elisionPrefixes {
			if strings.HasPrefix(token, prefix) {
				rest := token[len(prefix):]
				if keep(rest) {
					keywords = append(keywords, rest)
				}
				elided = true
				break
			}
		}
		if elided {
			continue
		}
		if strings.Contains(token, "'") {
			for _, part := range strings.Split(token, "'") {
				if len([]rune(part)) > 2 && keep(part) {
					keywords = append(keywords, part)
				}
			}
			continue
		}
		if keep(token) {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

func keep(token string) bool {
	if len([]rune(token)) <= 2 {
		return false
	}
	_, stopped := stopwords[token]
	return !stopped
}
