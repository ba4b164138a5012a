// AngelaMos | 2026
// entity.go

package content

import (
	"time"
)

const (
	KindVideo = "video"
	KindPDF   = "pdf"
	KindNote  = "note"
)

// Item is one lesson inside a batch. MediaURL and Body are the gated part;
// outline reads leave them empty.
type Item struct {
	ID        int64     `db:"id"`
	BatchID   int64     `db:"batch_id"`
	Subject   string    `db:"subject"`
	Chapter   string    `db:"chapter"`
	Title     string    `db:"title"`
	Kind      string    `db:"kind"`
	MediaURL  string    `db:"media_url"`
	Body      string    `db:"body"`
	Position  int       `db:"position"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
