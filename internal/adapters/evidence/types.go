package evidence

// evidenceRequest es el body de POST /v1/evidence.
type evidenceRequest struct {
	MarketID         uint64        `json:"market_id"`
	Question         string        `json:"question"`
	Description      string        `json:"description"`
	Category         string        `json:"category"`
	ResolutionHeight uint64        `json:"resolution_height"`
	MetadataURI      string        `json:"metadata_uri,omitempty"`
	Reference        *priceContext `json:"reference,omitempty"`
}

type priceContext struct {
	Symbol      string `json:"symbol"`
	Price       string `json:"price"`
	PublishTime int64  `json:"publish_time"`
}

// evidenceResponse es la respuesta de POST /v1/evidence.
type evidenceResponse struct {
	Outcome       string   `json:"outcome"` // "YES" | "NO"
	ConfidenceBps int64    `json:"confidence_bps"`
	Sources       []string `json:"sources"`
	Reasoning     string   `json:"reasoning"`
}

// priceResponse es la respuesta de GET /v1/price/{symbol}.
type priceResponse struct {
	Symbol      string `json:"symbol"`
	Price       string `json:"price"` // decimal string, never a float
	PublishTime int64  `json:"publish_time"`
}
