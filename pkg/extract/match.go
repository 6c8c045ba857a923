package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/homeflux/homeflux/pkg/types"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// stopwords never count toward a device match.
var stopwords = map[string]bool{
	"i": true, "my": true, "the": true, "a": true, "an": true,
	"will": true, "want": true, "would": true, "like": true, "need": true,
	"to": true, "use": true, "run": true, "start": true, "turn": true,
	"on": true, "at": true, "in": true, "am": true, "pm": true,
	"please": true, "today": true, "and": true, "of": true,
}

func tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if stopwords[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// matchDevice finds the catalog device whose name or alias best matches the
// utterance. A name matches only when every one of its tokens appears in the
// utterance; longer matches win, ties break on device id so the result is
// deterministic.
func matchDevice(cat types.DeviceCatalog, utterance string) (types.Device, bool) {
	utterTokens := tokenize(utterance)
	present := make(map[string]bool, len(utterTokens))
	for _, tok := range utterTokens {
		present[tok] = true
	}

	ids := cat.IDs()
	sort.Strings(ids)

	var best types.Device
	bestScore := 0
	for _, id := range ids {
		d := cat[id]
		names := append([]string{strings.ReplaceAll(id, "_", " ")}, d.Aliases...)
		for _, name := range names {
			nameTokens := tokenRe.FindAllString(strings.ToLower(name), -1)
			if len(nameTokens) == 0 {
				continue
			}
			all := true
			for _, tok := range nameTokens {
				if !present[tok] {
					all = false
					break
				}
			}
			if all && len(nameTokens) > bestScore {
				best = d
				bestScore = len(nameTokens)
			}
		}
	}
	return best, bestScore > 0
}
