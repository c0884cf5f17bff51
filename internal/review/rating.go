// Package review holds the rating arithmetic shared by the title
// endpoints. The rating is derived from the review set at read time,
// never stored, so it cannot drift out of sync with the reviews.
package review

// Average returns the arithmetic mean of the given scores. The second
// return value is false when there are no scores; a title without
// reviews has no rating at all rather than a rating of zero.
func Average(scores []int) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}

	sum := 0
	for _, s := range scores {
		sum += s
	}
	return float64(sum) / float64(len(scores)), true
}
