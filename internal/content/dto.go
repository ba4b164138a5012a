// AngelaMos | 2026
// dto.go

package content

type CreateItemRequest struct {
	Subject  string `json:"subject"   validate:"required,max=100"`
	Chapter  string `json:"chapter"   validate:"max=200"`
	Title    string `json:"title"     validate:"required,max=300"`
	Kind     string `json:"kind"      validate:"required,oneof=video pdf note"`
	MediaURL string `json:"media_url" validate:"omitempty,url,max=2048"`
	Body     string `json:"body"      validate:"max=100000"`
	Position int    `json:"position"  validate:"min=0"`
}

type ItemResponse struct {
	ID       int64  `json:"id"`
	Subject  string `json:"subject"`
	Chapter  string `json:"chapter"`
	Title    string `json:"title"`
	Kind     string `json:"kind"`
	MediaURL string `json:"media_url,omitempty"`
	Body     string `json:"body,omitempty"`
	Position int    `json:"position"`
}

type ListResponse struct {
	BatchID int64          `json:"batch_id"`
	Locked  bool           `json:"locked"`
	Reason  string         `json:"reason"`
	Items   []ItemResponse `json:"items"`
}

func ToItemResponse(it *Item) ItemResponse {
	return ItemResponse{
		ID:       it.ID,
		Subject:  it.Subject,
		Chapter:  it.Chapter,
		Title:    it.Title,
		Kind:     it.Kind,
		MediaURL: it.MediaURL,
		Body:     it.Body,
		Position: it.Position,
	}
}

func ToItemResponseList(items []Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for i := range items {
		out = append(out, ToItemResponse(&items[i]))
	}
	return out
}
