package models

// Requests for the regime endpoints. Shared by the HTTP, websocket and Kafka entry points.
// Counts are pointers so an explicit 0 is validated instead of being replaced by the default.

type AnalysisRequest struct {
	Symbol  string `query:"symbol" json:"symbol" form:"symbol" validate:"required,max=32"`
	Period  string `query:"period" json:"period" form:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y"`
	Regimes *int   `query:"regimes" json:"regimes" form:"regimes" default:"3" validate:"required,gte=2,lte=5"`
}

// RegimeCount returns the requested regime count, or 0 when unset.
func (r AnalysisRequest) RegimeCount() int { return deref(r.Regimes) }

type HistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
	Limit  *int   `query:"limit" json:"limit" default:"20" validate:"required,gte=1,lte=100"`
}

func (r HistoryRequest) LimitCount() int { return deref(r.Limit) }

type ChartRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,max=32"`
	Period  string `query:"period" json:"period" default:"2y" validate:"oneof=6mo 1y 2y 5y"`
	Regimes *int   `query:"regimes" json:"regimes" default:"3" validate:"required,gte=2,lte=5"`
	Width   int    `query:"width" json:"width" default:"1024" validate:"gte=200,lte=4096"`
	Height  int    `query:"height" json:"height" default:"420" validate:"gte=150,lte=2160"`
}

func (r ChartRequest) RegimeCount() int { return deref(r.Regimes) }

// IntPtr returns a pointer to n, for building requests in code.
func IntPtr(n int) *int { return &n }

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
