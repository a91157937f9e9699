package language

import (
	"math"

	"github.com/rcliao/hye-memory/internal/model"
)

var positiveWords = set(
	"love", "loved", "loves", "like", "liked", "enjoy", "enjoyed", "great", "good",
	"awesome", "amazing", "happy", "glad", "fun", "nice", "wonderful", "best",
	"excellent", "fantastic", "favorite", "favourite", "beautiful", "cool", "thanks",
	"thank", "excited", "exciting", "cute", "perfect", "delicious", "win", "won",
	"lol", "haha", "yay", "sweet", "brilliant", "proud", "relaxing", "friendly",
)

var negativeWords = set(
	"hate", "hated", "hates", "dislike", "bad", "terrible", "awful", "sad", "angry",
	"annoying", "annoyed", "boring", "bored", "worst", "horrible", "ugly", "sick",
	"tired", "upset", "lost", "lose", "fail", "failed", "broken", "pain", "hurt",
	"scary", "scared", "afraid", "disappointed", "gross", "stupid", "lonely", "cry",
	"sucks", "stressed", "worried", "miss", "missed", "cold",
)

var negators = set("not", "no", "never", "don't", "dont", "didn't", "didnt",
	"isn't", "isnt", "wasn't", "wasnt", "can't", "cant", "won't", "wont")

// scoreSentiment labels text POSITIVE or NEGATIVE with a confidence in [0.5, 1].
// A negator flips the polarity of the next lexicon word. Neutral text is
// POSITIVE at 0.5.
func scoreSentiment(text string) model.Sentiment {
	var balance float64
	var hits int
	negate := false
	for _, w := range words(text) {
		if _, ok := negators[w]; ok {
			negate = true
			continue
		}
		polarity := 0.0
		if _, ok := positiveWords[w]; ok {
			polarity = 1
		} else if _, ok := negativeWords[w]; ok {
			polarity = -1
		}
		if polarity == 0 {
			continue
		}
		if negate {
			polarity = -polarity
			negate = false
		}
		balance += polarity
		hits++
	}

	if hits == 0 {
		return model.Sentiment{Label: Positive, Score: 0.5}
	}
	label := Positive
	if balance < 0 {
		label = Negative
	}
	// Confidence grows with the margin between polarities.
	score := 0.5 + 0.5*math.Tanh(math.Abs(balance))
	return model.Sentiment{Label: label, Score: score}
}
