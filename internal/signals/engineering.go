// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signals

import (
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const codeHostMarker = "github.com"

var (
	inferenceKeywords = []string{"inference", "serving"}
	latencyKeywords   = []string{"latency"}
	memoryKeywords    = []string{"memory", "compression"}
	trainingKeywords  = []string{"training", "optimization"}
)

// ApplyEngineering sets c.Signals.Engineering from the candidate's links and
// text. Running it again overwrites the namespace with the same values.
func ApplyEngineering(c *types.Candidate) *types.EngineeringSignal {
	text := searchText(c)

	hasCode := strings.Contains(text, codeHostMarker)
	for _, link := range c.Links {
		if strings.Contains(link, codeHostMarker) {
			hasCode = true
			break
		}
	}

	sig := &types.EngineeringSignal{
		HasCodeLink:       hasCode,
		MentionsInference: containsAny(text, inferenceKeywords),
		MentionsLatency:   containsAny(text, latencyKeywords),
		MentionsMemory:    containsAny(text, memoryKeywords),
		MentionsTraining:  containsAny(text, trainingKeywords),
	}
	c.Signals.Engineering = sig
	return sig
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
