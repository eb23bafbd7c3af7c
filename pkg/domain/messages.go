package domain

import "github.com/samber/lo"

// LoadingMessages are shown while the expand collaborator is working.
var LoadingMessages = []string{
	"Dreaming up possibilities...",
	"Exploring new ideas...",
	"Wandering through imagination...",
	"Chasing creative thoughts...",
	"Weaving dreams together...",
	"Gathering inspiration...",
	"Connecting the dots...",
	"Following the daydream...",
	"Brewing up ideas...",
	"Letting imagination flow...",
}

// WakingMessages are shown while the complete collaborator is working.
var WakingMessages = []string{
	"Waking up...",
	"Coming back to reality...",
	"Gathering the dream pieces...",
	"Crystallizing thoughts...",
	"Bringing the dream to life...",
	"Emerging from imagination...",
	"Capturing the essence...",
	"Drawing conclusions...",
	"Wrapping up the journey...",
	"Making sense of it all...",
}

// PickMessage returns a random entry of messages other than last, unless
// last is the only choice.
func PickMessage(messages []string, last string) string {
	candidates := lo.Without(messages, last)
	if len(candidates) == 0 {
		candidates = messages
	}
	return lo.Sample(candidates)
}
