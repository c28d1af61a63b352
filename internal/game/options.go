package game

import (
	"math/rand/v2"

	"k8s.io/utils/set"
)

// buildOptions implements §4.4 step 3. bag is the full song multiset for
// the game, played is the set of song ids already consumed by prior
// rounds (current is not yet a member of played when this is called),
// and current is this round's song.
//
// Below 4 distinct (title, artist) pairs, SPEC_FULL/§9's open question is
// resolved by padding from already-played songs (excluding current's id)
// and, failing that, returning fewer than 4 options — the extreme case for
// a bag with fewer than 4 distinct (title, artist) pairs (§8 boundary
// cases, S4).
func buildOptions(bag []Song, played set.Set[string], current Song) ([]OptionPair, int) {
	remaining := make([]Song, 0, len(bag))
	for _, s := range bag {
		if !played.Has(s.ID) {
			remaining = append(remaining, s)
		}
	}

	options := dedupPairs(remaining)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	if len(options) > 4 {
		options = options[:4]
	}

	currentPair := OptionPair{Title: current.Title, Artist: current.Artist}
	if !containsPair(options, currentPair) {
		switch {
		case len(options) == 0:
			options = append(options, currentPair)
		default:
			options[rand.IntN(len(options))] = currentPair
		}
	}

	if len(options) < 4 {
		var playedSongs []Song
		for _, s := range bag {
			if played.Has(s.ID) && s.ID != current.ID {
				playedSongs = append(playedSongs, s)
			}
		}
		pad := dedupPairs(playedSongs)
		rand.Shuffle(len(pad), func(i, j int) { pad[i], pad[j] = pad[j], pad[i] })
		for _, p := range pad {
			if len(options) >= 4 {
				break
			}
			options = append(options, p)
		}
	}

	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	correctIdx := -1
	for i, p := range options {
		if p == currentPair {
			correctIdx = i
			break
		}
	}
	return options, correctIdx
}

// dedupPairs returns the distinct (title, artist) pairs among songs, in
// first-seen order.
func dedupPairs(songs []Song) []OptionPair {
	seen := make(map[OptionPair]bool, len(songs))
	out := make([]OptionPair, 0, len(songs))
	for _, s := range songs {
		p := OptionPair{Title: s.Title, Artist: s.Artist}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func containsPair(options []OptionPair, p OptionPair) bool {
	for _, o := range options {
		if o == p {
			return true
		}
	}
	return false
}
