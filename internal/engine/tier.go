package engine

import (
	"strings"
	"time"
)

type Tier string

const (
	TierElite Tier = "elite"
	TierPro   Tier = "pro"
	TierFree  Tier = "free"
)

func ParseTier(s string) Tier {
	return Tier(strings.ToLower(strings.TrimSpace(s)))
}

// NewsArticle carries the per-tier release instants of a story.
type NewsArticle struct {
	Headline         string    `json:"headline,omitempty"`
	PublishedAt      time.Time `json:"published_at"`
	EliteReleaseTime time.Time `json:"elite_release_time"`
	ProReleaseTime   time.Time `json:"pro_release_time"`
	FreeReleaseTime  time.Time `json:"free_release_time"`
}

type AnalysisQuality struct {
	Accuracy float64  `json:"accuracy"`
	Depth    string   `json:"depth"`
	Features []string `json:"features"`
}

// HasNewsAccess reports whether tier may read the article at now.
// Unknown tiers never have access.
func HasNewsAccess(tier Tier, article NewsArticle, now time.Time) bool {
	var release time.Time
	switch tier {
	case TierElite:
		release = article.EliteReleaseTime
	case TierPro:
		release = article.ProReleaseTime
	case TierFree:
		release = article.FreeReleaseTime
	default:
		return false
	}
	return !now.Before(release)
}

func NewsDelay(tier Tier) time.Duration {
	switch tier {
	case TierElite:
		return 0
	case TierPro:
		return 15 * time.Minute
	case TierFree:
		return 30 * time.Minute
	default:
		return 60 * time.Minute
	}
}

func AnalysisQualityFor(tier Tier) AnalysisQuality {
	switch tier {
	case TierElite:
		return AnalysisQuality{
			Accuracy: 0.95,
			Depth:    "comprehensive",
			Features: []string{"advanced_charting", "whale_tracking", "firm_intelligence", "exclusive_research"},
		}
	case TierPro:
		return AnalysisQuality{
			Accuracy: 0.85,
			Depth:    "standard",
			Features: []string{"advanced_charting", "real_time_alerts"},
		}
	case TierFree:
		return AnalysisQuality{Accuracy: 0.70, Depth: "basic", Features: []string{"basic_charting"}}
	default:
		return AnalysisQuality{Accuracy: 0.50, Depth: "minimal", Features: []string{}}
	}
}

// ReleaseSchedule stamps the tier release times of an article published at published.
func ReleaseSchedule(headline string, published time.Time) NewsArticle {
	return NewsArticle{
		Headline:         headline,
		PublishedAt:      published,
		EliteReleaseTime: published.Add(NewsDelay(TierElite)),
		ProReleaseTime:   published.Add(NewsDelay(TierPro)),
		FreeReleaseTime:  published.Add(NewsDelay(TierFree)),
	}
}
