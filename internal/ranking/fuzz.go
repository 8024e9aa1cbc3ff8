package ranking

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// existsInTitle reports whether word appears in the release title,
// tolerant of punctuation and surrounding noise. Both strings are
// cleansed (lowercased, punctuation stripped) before the partial match.
func existsInTitle(word, title string, titleExistsRatio int) bool {
	return fuzzy.PartialRatio(fuzzy.Cleanse(word, false), fuzzy.Cleanse(title, false)) > titleExistsRatio
}

// vaguelyExistInTitle counts how many of the given names score above the
// threshold against the release title, word order ignored.
func vaguelyExistInTitle(words []string, title string, nameExistsRatio int) int {
	n := 0
	for _, w := range words {
		if fuzzy.TokenSetRatio(w, title) > nameExistsRatio {
			n++
		}
	}
	return n
}
