package web

import "github.com/JonMunkholm/cardimport/internal/core"

type textRequest struct {
	Text string `json:"text" validate:"required"`
}

type urlRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

type cardRequest struct {
	ID         string   `json:"id" validate:"required,max=128"`
	Name       string   `json:"name" validate:"required,max=300"`
	SetCode    string   `json:"setCode" validate:"max=16"`
	SetName    string   `json:"setName" validate:"max=300"`
	ScryfallID *string  `json:"scryfallId" validate:"omitempty,uuid"`
	PriceEUR   *float64 `json:"priceEur" validate:"omitempty,gte=0"`
}

func (c cardRequest) toCard() core.ResolvedCard {
	return core.ResolvedCard{
		ID:         c.ID,
		Name:       c.Name,
		SetCode:    c.SetCode,
		SetName:    c.SetName,
		ScryfallID: c.ScryfallID,
		PriceEUR:   c.PriceEUR,
	}
}

type overrideRequest struct {
	RowIndex *int         `json:"rowIndex" validate:"required,gte=0"`
	Card     *cardRequest `json:"card" validate:"required"`
}

type commitRequest struct {
	DuplicateMode core.DuplicateMode `json:"duplicateMode" validate:"max=16"`
}
