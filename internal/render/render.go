// Package render projects an analysis report into view fragments: metadata
// rows, the quality score tier, classified indicators and the frame gallery.
// Rendering is pure; every call builds fresh fragments.
package render

import (
	"fmt"
	"strings"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/labels"
	"github.com/sleuth/sleuth-agent/internal/search"
)

// Tier is the discrete classification of a quality score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Category is the display class of an indicator.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryDanger  Category = "danger"
	CategoryNeutral Category = "neutral"
)

const (
	highThreshold   = 70
	mediumThreshold = 50
)

// Fragments is the complete renderable view of one analysis report.
type Fragments struct {
	Metadata   []MetadataRow   `json:"metadata"`
	Score      ScoreView       `json:"score"`
	Indicators []IndicatorView `json:"indicators"`
	Gallery    []GalleryItem   `json:"gallery"`
}

type MetadataRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ScoreView struct {
	Score          int    `json:"score"`
	Tier           Tier   `json:"tier"`
	CircleText     string `json:"circle_text"`
	ScoreText      string `json:"score_text"`
	ConfidenceText string `json:"confidence_text"`
}

type IndicatorView struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
}

type GalleryItem struct {
	Index     int          `json:"index"`
	Path      string       `json:"path"`
	Alt       string       `json:"alt"`
	Timestamp int          `json:"timestamp,omitempty"`
	Links     []SearchLink `json:"links"`
}

type SearchLink struct {
	Engine search.Engine `json:"engine"`
	Label  string        `json:"label"`
	URL    string        `json:"url"`
}

// Renderer holds the inputs every render pass shares.
type Renderer struct {
	Labels labels.Dictionary
	// Origin is prepended to frame paths to build externally reachable URLs.
	Origin string
}

func New(origin string) *Renderer {
	return &Renderer{Labels: labels.Default, Origin: strings.TrimRight(origin, "/")}
}

func (r *Renderer) Render(result *cloud.AnalysisResult) Fragments {
	if result == nil {
		return Fragments{Metadata: []MetadataRow{}, Indicators: []IndicatorView{}, Gallery: []GalleryItem{}}
	}
	return Fragments{
		Metadata:   r.metadataRows(result.VideoInfo),
		Score:      scoreView(result.QualityAnalysis),
		Indicators: indicatorViews(result.QualityAnalysis.Indicators),
		Gallery:    r.gallery(result.Frames),
	}
}

func (r *Renderer) metadataRows(info cloud.OrderedInfo) []MetadataRow {
	rows := make([]MetadataRow, 0, len(info))
	for _, f := range info {
		rows = append(rows, MetadataRow{Label: r.Labels.Label(f.Key), Value: f.Value})
	}
	return rows
}

// ClassifyScore maps a score onto its tier: [70,∞) high, [50,70) medium, below 50 low.
func ClassifyScore(score int) Tier {
	switch {
	case score >= highThreshold:
		return TierHigh
	case score >= mediumThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

func scoreView(q cloud.QualityAnalysis) ScoreView {
	return ScoreView{
		Score:          q.Score,
		Tier:           ClassifyScore(q.Score),
		CircleText:     fmt.Sprintf("%d%%", q.Score),
		ScoreText:      fmt.Sprintf("درجة الجودة: %d%%", q.Score),
		ConfidenceText: "مستوى الثقة: " + q.ConfidenceLevel,
	}
}

// ClassifyIndicator returns the category encoded by an indicator's leading glyph.
func ClassifyIndicator(indicator string) Category {
	switch {
	case strings.HasPrefix(indicator, "✓"):
		return CategorySuccess
	case strings.HasPrefix(indicator, "⚠"):
		return CategoryWarning
	case strings.HasPrefix(indicator, "✗"):
		return CategoryDanger
	default:
		return CategoryNeutral
	}
}

func indicatorViews(indicators []string) []IndicatorView {
	views := make([]IndicatorView, 0, len(indicators))
	for _, ind := range indicators {
		views = append(views, IndicatorView{Text: ind, Category: ClassifyIndicator(ind)})
	}
	return views
}

func (r *Renderer) gallery(frames []cloud.Frame) []GalleryItem {
	items := make([]GalleryItem, 0, len(frames))
	for i, f := range frames {
		links := make([]SearchLink, 0, len(search.Engines))
		for _, e := range search.Engines {
			u, err := search.BuildURL(f.Path, r.Origin, e)
			if err != nil {
				continue
			}
			links = append(links, SearchLink{Engine: e, Label: e.Label(), URL: u})
		}
		items = append(items, GalleryItem{
			Index:     i,
			Path:      f.Path,
			Alt:       fmt.Sprintf("لقطة شاشة %d", i+1),
			Timestamp: f.Timestamp,
			Links:     links,
		})
	}
	return items
}
