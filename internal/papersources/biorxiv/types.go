package biorxiv

// DetailsResponse is the bioRxiv/medRxiv details API envelope.
type DetailsResponse struct {
	Messages   []Message `json:"messages"`
	Collection []Record  `json:"collection"`
}

// Message carries the API's paging status for one call.
type Message struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Record is one preprint version in the details collection.
type Record struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Authors  string `json:"authors"` // "Smith, A.; Jones, B."
	Date     string `json:"date"`    // "2024-01-15"
	Version  string `json:"version"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Abstract string `json:"abstract"`
	Server   string `json:"server"`
}
