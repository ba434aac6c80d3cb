package ports

import "context"

// ClickEvent is emitted when a visitor follows the recommendation card.
type ClickEvent struct {
	Event     string `json:"event"`
	SongTitle string `json:"songTitle"`
	SongGenre string `json:"songGenre"`
	SongID    string `json:"songId"`
}

// EventRecommendationClicked is the event name for card click-throughs.
const EventRecommendationClicked = "recommendation_clicked"

// AnalyticsSink delivers click events to an external analytics collector.
type AnalyticsSink interface {
	Publish(ctx context.Context, ev ClickEvent) error
}
