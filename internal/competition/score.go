package competition

import "math"

// Score measures typed against target. Progress is the share of the target
// typed so far, capped at 100. Accuracy is the rounded share of typed
// characters matching the target at the same position. Both are 0 when
// nothing was typed.
func Score(target, typed string) (progress, accuracy float64) {
	t := []rune(target)
	s := []rune(typed)
	if len(s) == 0 || len(t) == 0 {
		return 0, 0
	}

	progress = math.Min(100, float64(len(s))/float64(len(t))*100)

	matches := 0
	for i, r := range s {
		if i < len(t) && t[i] == r {
			matches++
		}
	}
	accuracy = math.Round(float64(matches) / float64(len(s)) * 100)

	return progress, accuracy
}
