// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signals

import (
	"strings"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// searchText is the lower-cased text that keyword signals match against.
func searchText(c *types.Candidate) string {
	return strings.ToLower(c.Title + " " + c.Abstract)
}

// AssignTopics sets c.Topics to the buckets with at least one keyword
// occurring (case-insensitively) in the title or abstract. Topics follow
// bucket order.
func AssignTopics(c *types.Candidate, buckets types.TopicBuckets) []string {
	text := searchText(c)
	topics := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		for _, kw := range bucket.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				topics = append(topics, bucket.Name)
				break
			}
		}
	}
	c.Topics = topics
	return topics
}

// NoveltyHit is 1 when the candidate matched at least one topic bucket.
func NoveltyHit(c *types.Candidate) float64 {
	if len(c.Topics) > 0 {
		return 1
	}
	return 0
}
