// Package eventstore implements an append-only learning-event log with
// analytics rollups, pattern mining, and insight attachment, keyed per
// angel/domain stream.
package eventstore

import "time"

// LearningEvent is immutable once appended.
type LearningEvent struct {
	ID        string             `json:"id"`
	Angel     string             `json:"angel"`
	Domain    string             `json:"domain"`
	Input     any                `json:"input"`
	Output    Output             `json:"output"`
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp time.Time          `json:"timestamp"`
	Insights  []AngelInsight     `json:"insights,omitempty"`
}

// Output is the opaque result payload with an optional success flag.
type Output struct {
	Success *bool `json:"success,omitempty"`
	Payload any   `json:"payload,omitempty"`
}

func (o Output) succeeded() bool {
	return o.Success != nil && *o.Success
}

// InsightType enumerates the kinds of AngelInsight pattern_analysis can emit.
type InsightType string

const (
	InsightEmergingPattern  InsightType = "emerging_pattern"
	InsightDecliningPattern InsightType = "declining_pattern"
	InsightStablePattern    InsightType = "stable_pattern"
	InsightAnomaly          InsightType = "anomaly"
)

// AngelInsight is attached to zero or more events by id.
type AngelInsight struct {
	Type          InsightType `json:"type"`
	PatternKey    string      `json:"pattern_key"`
	Significance  float64     `json:"significance"`
	Timestamp     time.Time   `json:"timestamp"`
}

// QueryFilter selects a subset of events for Query.
type QueryFilter struct {
	Angel            string
	Domain           string
	Since            time.Time
	Limit            int
	IncludeAnalytics bool
}

// DailySummary is the result of DailySummary.
type DailySummary struct {
	Count               int            `json:"count"`
	SuccessRate          float64        `json:"success_rate"`
	AvgProcessingTimeMs  float64        `json:"avg_processing_time_ms"`
	TopDomains           []NamedCount   `json:"top_domains"`
	TopProducers         []NamedCount   `json:"top_producers"`
	InsightExcerpts      []AngelInsight `json:"insight_excerpts"`
}

// NamedCount is a (name, count) pair used for top-N lists.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AnalyticsPeriod names the rollup window for AnalyticsSnapshot.
type AnalyticsPeriod string

const (
	Period1h  AnalyticsPeriod = "1h"
	Period6h  AnalyticsPeriod = "6h"
	Period24h AnalyticsPeriod = "24h"
	Period7d  AnalyticsPeriod = "7d"
)

// Trend direction for a rollup, by comparing a recent window to the
// daily average.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// AnalyticsSnapshot is the result of AnalyticsSnapshot.
type AnalyticsSnapshot struct {
	Period              AnalyticsPeriod    `json:"period"`
	DomainDistribution  map[string]int     `json:"domain_distribution"`
	ProducerPerformance map[string]float64 `json:"producer_performance"`
	Hourly24            [24]int            `json:"hourly_24"`
	Daily7              [7]int             `json:"daily_7"`
	Trend               Trend              `json:"trend"`
	GeneratedAt         time.Time          `json:"generated_at"`
}

// PatternStrength classifies how concentrated a detected pattern is.
type PatternStrength string

const (
	PatternEmerging  PatternStrength = "emerging"
	PatternStable    PatternStrength = "stable"
	PatternDeclining PatternStrength = "declining"
)

// Pattern is one (producer, domain, success) cluster found by
// PatternAnalysis.
type Pattern struct {
	Producer   string          `json:"producer"`
	Domain     string          `json:"domain"`
	Success    bool            `json:"success"`
	Count      int             `json:"count"`
	Strength   float64         `json:"strength"`
	Classification PatternStrength `json:"classification"`
	EventIDs   []string        `json:"event_ids"`
}
