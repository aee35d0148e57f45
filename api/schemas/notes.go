package schemas

// NoteType tags the media kind of a note.
type NoteType string

const (
	NoteTypeImage NoteType = "image"
	NoteTypeVideo NoteType = "video"
)

// Summary is one search-result card. Produced once during listing harvest and
// never modified afterwards; NoteURL keeps whatever access token the card carried.
type Summary struct {
	NoteID      string   `json:"note_id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	AuthorID    string   `json:"author_id"`
	CoverURL    string   `json:"cover_url"`
	Likes       int      `json:"likes"`
	NoteURL     string   `json:"note_url"`
	NoteType    NoteType `json:"note_type"`
	PublishTime string   `json:"publish_time"`
}

// Detail is the full record of a single note, with its comment thread attached.
type Detail struct {
	NoteID        string    `json:"note_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Author        string    `json:"author"`
	AuthorID      string    `json:"author_id"`
	PublishTime   string    `json:"publish_time"`
	Likes         int       `json:"likes"`
	Collects      int       `json:"collects"`
	CommentsCount int       `json:"comments_count"`
	Shares        int       `json:"shares"`
	Tags          []string  `json:"tags"`
	Images        []string  `json:"images"`
	NoteType      NoteType  `json:"note_type"`
	VideoURL      string    `json:"video_url,omitempty"`
	Comments      []Comment `json:"comments"`
}

// Comment is a single top-level comment on a note.
type Comment struct {
	CommentID  string `json:"comment_id"`
	NoteID     string `json:"note_id"`
	UserName   string `json:"user_name"`
	UserID     string `json:"user_id"`
	Content    string `json:"content"`
	Likes      int    `json:"likes"`
	Time       string `json:"time"`
	IPLocation string `json:"ip_location"`
}

// WithComments returns a copy of d with the given comments attached.
func (d Detail) WithComments(comments []Comment) Detail {
	out := d
	out.Comments = make([]Comment, len(comments))
	copy(out.Comments, comments)
	return out
}
