package models

// Requests for the crisis HTTP endpoints. Defined in domain for consistency and reuse.

type VolatilityTickRequest struct {
	Index     float64 `json:"index" validate:"gte=0,lte=1000"`
	Change24h float64 `json:"change_24h"`
}

type AddAlertRequest struct {
	Type    string `json:"type" default:"warning" validate:"oneof=warning critical emergency"`
	Title   string `json:"title" validate:"required,max=120"`
	Message string `json:"message" validate:"required,max=1000"`
}

type SetRegimeRequest struct {
	Regime     string  `json:"regime" validate:"required,oneof=steady volatile crisis recovery"`
	Confidence float64 `json:"confidence" default:"0.85" validate:"gte=0,lte=1"`
	Trigger    string  `json:"trigger" validate:"max=200"`
}

type ParanoiaRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type HistoryRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=100"`
}

type ArchiveRequest struct {
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=2000"`
}
