// Package extract turns rendered page snapshots into structured records.
//
// Every field is resolved through an ordered selector cascade and silently falls
// back to its zero value when nothing matches. A record whose identifier cannot
// be resolved is never returned; callers get (zero, false) instead.
package extract

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/notecrawl/api/schemas"
)

// Extractor holds the logger used to report skipped records.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger.Named("extract")}
}

// ParseDocument parses an HTML snapshot.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html snapshot: %w", err)
	}
	return doc, nil
}

// MatchCascade returns the first selector in the cascade that matches at least
// one element of doc, together with those elements.
func MatchCascade(doc *goquery.Document, selectors []string) (string, *goquery.Selection, bool) {
	for _, sel := range selectors {
		if nodes := doc.Find(sel); nodes.Length() > 0 {
			return sel, nodes, true
		}
	}
	return "", nil, false
}

// recordGuard converts a panic raised while reading one node into "no record",
// so a single malformed node never aborts the rest of a batch.
func (e *Extractor) recordGuard(kind string, ok *bool) {
	if r := recover(); r != nil {
		e.logger.Warn("Failed to extract record, skipping.", zap.String("kind", kind), zap.Any("panic", r))
		*ok = false
	}
}

// Cards extracts every card matched by sel, skipping cards without an id.
func (e *Extractor) Cards(doc *goquery.Document, sel string) []schemas.Summary {
	out := []schemas.Summary{}
	doc.Find(sel).Each(func(i int, card *goquery.Selection) {
		if s, ok := e.Card(card); ok {
			out = append(out, s)
		} else {
			e.logger.Debug("Card skipped.", zap.Int("index", i))
		}
	})
	return out
}

// Card extracts a summary from one search-result card.
func (e *Extractor) Card(card *goquery.Selection) (rec schemas.Summary, ok bool) {
	defer e.recordGuard("card", &ok)

	var noteURL, noteID string
	// The hidden /explore/ anchor is preferred: its URL has no access token.
	if href, found := Attr(card, []string{"href"}, cardExploreAnchor...); found {
		noteURL = absoluteURL(href)
		if noteURL == "" {
			noteURL = href
		}
		noteID = lastPathSegment(href)
	}
	if noteID == "" {
		if link, found := First(card, cardFallbackLinks...); found {
			href := strings.TrimSpace(link.AttrOr("href", ""))
			noteURL = absoluteURL(href)
			noteID = lastPathSegment(href)
		}
	}
	if noteID == "" {
		return schemas.Summary{}, false
	}

	rec = schemas.Summary{
		NoteID:   noteID,
		NoteURL:  noteURL,
		NoteType: schemas.NoteTypeImage,
	}
	rec.CoverURL, _ = Attr(card, imageAttrs, cardCoverImages...)
	rec.Title, _ = Text(card, cardTitles...)
	rec.Author, _ = Text(card, cardAuthors...)
	for _, sel := range cardAuthorLinks {
		if id, found := profileID(card.Find(sel).First().AttrOr("href", "")); found {
			rec.AuthorID = id
			break
		}
	}
	rec.PublishTime, _ = Text(card, cardTimes...)
	rec.Likes = Count(card, cardLikes...)
	if card.Find(cardVideoMarker).Length() > 0 {
		rec.NoteType = schemas.NoteTypeVideo
	}
	return rec, true
}

// Detail extracts the note record from a detail page snapshot. noteID comes from
// the page URL; an empty id means there is no record.
func (e *Extractor) Detail(doc *goquery.Document, noteID string) (rec schemas.Detail, ok bool) {
	defer e.recordGuard("detail", &ok)

	if noteID == "" {
		return schemas.Detail{}, false
	}
	root := doc.Selection

	rec = schemas.Detail{
		NoteID:   noteID,
		NoteType: schemas.NoteTypeImage,
		Comments: []schemas.Comment{},
	}
	rec.Title, _ = Text(root, detailTitles...)
	rec.Content, _ = Text(root, detailContents...)
	rec.Author, _ = Text(root, detailAuthors...)
	for _, sel := range detailAuthorLinks {
		if id, found := profileID(root.Find(sel).First().AttrOr("href", "")); found {
			rec.AuthorID = id
			break
		}
	}
	rec.PublishTime, _ = Text(root, detailDates...)
	rec.Likes = Count(root, detailLikes...)
	rec.Collects = Count(root, detailCollects...)
	rec.CommentsCount = Count(root, detailComments...)
	rec.Shares = Count(root, detailShares...)

	rec.Tags = []string{}
	for _, tag := range Texts(root, detailTags) {
		if tag = strings.TrimSpace(strings.TrimPrefix(tag, "#")); tag != "" {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	rec.Images = Attrs(root, detailImages, imageAttrs)

	if video, found := First(root, detailVideos...); found {
		rec.NoteType = schemas.NoteTypeVideo
		rec.VideoURL = strings.TrimSpace(video.AttrOr("src", ""))
		if rec.VideoURL == "" {
			rec.VideoURL = strings.TrimSpace(video.Find("source").First().AttrOr("src", ""))
		}
	}
	return rec, true
}

// Comments extracts up to max comments matched by sel.
func (e *Extractor) Comments(doc *goquery.Document, sel, noteID string, max int) []schemas.Comment {
	out := []schemas.Comment{}
	if max <= 0 {
		return out
	}
	doc.Find(sel).EachWithBreak(func(i int, node *goquery.Selection) bool {
		if i >= max {
			return false
		}
		if c, ok := e.Comment(node, noteID); ok {
			out = append(out, c)
		} else {
			e.logger.Debug("Comment skipped.", zap.Int("index", i))
		}
		return true
	})
	return out
}

// Comment extracts one comment node. The node's id attribute ("comment-{id}")
// is the identifier.
func (e *Extractor) Comment(node *goquery.Selection, noteID string) (rec schemas.Comment, ok bool) {
	defer e.recordGuard("comment", &ok)

	id := strings.TrimPrefix(strings.TrimSpace(node.AttrOr("id", "")), "comment-")
	if id == "" {
		return schemas.Comment{}, false
	}

	rec = schemas.Comment{CommentID: id, NoteID: noteID}
	rec.UserName, _ = Text(node, commentUserNames...)
	for _, sel := range commentUserLinks {
		if uid, found := profileID(node.Find(sel).First().AttrOr("href", "")); found {
			rec.UserID = uid
			break
		}
	}
	rec.Content, _ = Text(node, commentContents...)
	rec.Likes = Count(node, commentLikes...)
	rec.IPLocation, _ = Text(node, commentLocations...)
	if date, found := Text(node, commentDates...); found {
		rec.Time, rec.IPLocation = splitLocation(date, rec.IPLocation)
	}
	return rec, true
}

// splitLocation separates the geo-location suffix from a comment's date text.
// A known location is trimmed off; otherwise a trailing all-Han token that is
// not a relative day ("01-05 广东") is taken as the location.
func splitLocation(date, location string) (string, string) {
	date = strings.TrimSpace(date)
	if location != "" {
		return strings.TrimSpace(strings.TrimSuffix(date, location)), location
	}
	i := strings.LastIndexFunc(date, unicode.IsSpace)
	if i < 0 {
		return date, ""
	}
	head, tail := strings.TrimSpace(date[:i]), strings.TrimSpace(date[i:])
	if head == "" || !isPlaceName(tail) {
		return date, ""
	}
	return head, tail
}

func isPlaceName(s string) bool {
	if s == "" || strings.HasSuffix(s, "前") {
		return false
	}
	switch s {
	case "刚刚", "今天", "昨天", "前天":
		return false
	}
	for _, r := range s {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}
