package models

// Requests for the markets HTTP endpoints.

type MarketRequest struct {
	MarketID string `param:"marketId" validate:"required"`
	Asset    string `param:"asset" validate:"required"`
}

type HistoryRequest struct {
	MarketID string `param:"marketId" validate:"required"`
	Asset    string `param:"asset" validate:"required"`
	From     string `query:"from"`
	To       string `query:"to"`
	Limit    int    `query:"limit" default:"500" validate:"gte=1,lte=10000"`
}
