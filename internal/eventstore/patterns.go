package eventstore

import (
	"fmt"
	"sort"
	"time"
)

type patternKey struct {
	producer string
	domain   string
	success  bool
}

func (k patternKey) string() string {
	return fmt.Sprintf("%s|%s|%t", k.producer, k.domain, k.success)
}

// PatternAnalysis clusters events by (producer, domain, success),
// keeps clusters with more than one member, classifies each by recency
// concentration, and attaches an AngelInsight to every event in the
// pattern.
func (s *Store) PatternAnalysis() []Pattern {
	events := s.snapshotForAnalytics()
	now := time.Now()

	clusters := map[patternKey][]LearningEvent{}
	for _, e := range events {
		k := patternKey{producer: e.Angel, domain: e.Domain, success: e.Output.succeeded()}
		clusters[k] = append(clusters[k], e)
	}

	total := len(events)
	var patterns []Pattern
	for k, members := range clusters {
		if len(members) <= 1 {
			continue
		}
		var recentHour int
		ids := make([]string, 0, len(members))
		for _, m := range members {
			if now.Sub(m.Timestamp) <= time.Hour {
				recentHour++
			}
			ids = append(ids, m.ID)
		}
		recentFraction := float64(recentHour) / float64(len(members))

		var classification PatternStrength
		switch {
		case recentFraction >= 0.7:
			classification = PatternEmerging
		case recentFraction >= 0.3:
			classification = PatternStable
		default:
			classification = PatternDeclining
		}

		strength := 0.0
		if total > 0 {
			strength = float64(len(members)) / float64(total)
		}

		patterns = append(patterns, Pattern{
			Producer:       k.producer,
			Domain:         k.domain,
			Success:        k.success,
			Count:          len(members),
			Strength:       strength,
			Classification: classification,
			EventIDs:       ids,
		})

		s.AttachInsight(ids, insightFor(classification, k, strength, now))
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Strength > patterns[j].Strength })
	return patterns
}

func insightFor(classification PatternStrength, k patternKey, strength float64, now time.Time) AngelInsight {
	var t InsightType
	switch classification {
	case PatternEmerging:
		t = InsightEmergingPattern
	case PatternDeclining:
		t = InsightDecliningPattern
	default:
		t = InsightStablePattern
	}
	return AngelInsight{
		Type:         t,
		PatternKey:   k.string(),
		Significance: strength,
		Timestamp:    now,
	}
}
