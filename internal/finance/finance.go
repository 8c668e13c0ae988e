// Package finance defines the market data gateway used by the stock tools.
package finance

import (
	"context"
	"time"
)

// Provider is a read-only source of market data.
type Provider interface {
	// Historical returns daily bars for symbol from since until today, oldest first.
	Historical(ctx context.Context, symbol string, since time.Time) ([]Quote, error)
	// Search returns matching instruments and related news for a free-text query.
	Search(ctx context.Context, query string) (*SearchResult, error)
	// Insights returns the research summary for symbol.
	Insights(ctx context.Context, symbol string) (*Insights, error)
}

// Quote is a single daily bar.
type Quote struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose *float64  `json:"adjClose,omitempty"`
	Volume   int64     `json:"volume"`
}

type SearchResult struct {
	Quotes []Instrument `json:"quotes"`
	News   []NewsItem   `json:"news"`
}

type Instrument struct {
	Symbol    string `json:"symbol"`
	ShortName string `json:"shortname,omitempty"`
	LongName  string `json:"longname,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	QuoteType string `json:"quoteType,omitempty"`
}

type NewsItem struct {
	UUID        string    `json:"uuid,omitempty"`
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher,omitempty"`
	Link        string    `json:"link,omitempty"`
	PublishedAt time.Time `json:"providerPublishTime"`
	Tickers     []string  `json:"relatedTickers,omitempty"`
}

// Insights is the subset of the research summary the assistant reasons about.
type Insights struct {
	Symbol              string          `json:"symbol"`
	ShortTermOutlook    *Outlook        `json:"shortTermOutlook,omitempty"`
	IntermediateOutlook *Outlook        `json:"intermediateTermOutlook,omitempty"`
	LongTermOutlook     *Outlook        `json:"longTermOutlook,omitempty"`
	Valuation           *Valuation      `json:"valuation,omitempty"`
	Recommendation      *Recommendation `json:"recommendation,omitempty"`
	SigDevs             []Development   `json:"sigDevs,omitempty"`
}

type Outlook struct {
	Direction   string  `json:"direction"`
	Score       float64 `json:"score"`
	Description string  `json:"scoreDescription,omitempty"`
}

type Valuation struct {
	Description string `json:"description,omitempty"`
	Discount    string `json:"discount,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

type Recommendation struct {
	Rating      string  `json:"rating,omitempty"`
	TargetPrice float64 `json:"targetPrice,omitempty"`
	Provider    string  `json:"provider,omitempty"`
}

type Development struct {
	Headline string `json:"headline"`
	Date     string `json:"date"`
}
