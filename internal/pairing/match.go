package pairing

// Pair joins one caption file with the image file sharing its stem.
type Pair struct {
	ImagePath   string
	CaptionPath string
}

// MatchByStem pairs each caption file with the first image file whose stem
// is byte-equal to the caption stem. Captions without a matching image are
// returned separately so callers can count them as skipped.
func MatchByStem(captions, images []string) ([]Pair, []string) {
	index := make(map[string]string, len(images))
	for _, img := range images {
		stem := Stem(img)
		if _, ok := index[stem]; !ok {
			index[stem] = img
		}
	}

	var pairs []Pair
	var unmatched []string
	for _, capFile := range captions {
		img, ok := index[Stem(capFile)]
		if !ok {
			unmatched = append(unmatched, capFile)
			continue
		}
		pairs = append(pairs, Pair{ImagePath: img, CaptionPath: capFile})
	}
	return pairs, unmatched
}
