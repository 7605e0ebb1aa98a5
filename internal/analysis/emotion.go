package analysis

import "strings"

// The fixed five-category taxonomy.
const (
	Happy     = "happy"
	Neutral   = "neutral"
	Stressed  = "stressed"
	Angry     = "angry"
	Confident = "confident"
)

var Emotions = []string{Happy, Neutral, Stressed, Angry, Confident}

const (
	DefaultEmotion = Neutral
	DefaultScore   = 0.5
)

// NormalizeEmotion maps a classifier label onto the taxonomy.
func NormalizeEmotion(label string) (string, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	for _, e := range Emotions {
		if l == e {
			return e, true
		}
	}
	return "", false
}
