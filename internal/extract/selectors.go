package extract

// Selector vocabulary for the three page types. Each list is a cascade: the most
// specific locator first, broader fallbacks after it.

// BaseURL is the origin every relative note or profile link resolves against.
const BaseURL = "https://www.xiaohongshu.com"

// CardSelectors locate one search-result card on the listing page.
var CardSelectors = []string{
	"section.note-item",
	"div.note-item",
	"[class*='NoteItem']",
	".search-result-list > *",
}

// DetailReadySelectors signal that a note page has rendered its content.
var DetailReadySelectors = []string{
	"#noteContainer",
	"#detail-title",
	".note-content",
	".note-container",
}

// CommentSelectors locate one comment. The first only matches top-level comments;
// the fallbacks also pick up nested replies.
var CommentSelectors = []string{
	".parent-comment > .comment-item",
	".comments-container .comment-item",
	".comment-item",
}

// CommentScrollers are the scrollable containers that hold the comment thread.
var CommentScrollers = []string{
	".note-scroller",
	".interaction-container",
}

// LoggedInSelector is present on every page only while an account is signed in.
const LoggedInSelector = "a[href*='/user/profile']"

var (
	cardExploreAnchor = []string{`a[href*="/explore/"]`}
	cardFallbackLinks = []string{"a.cover", "a"}
	cardCoverImages   = []string{"a.cover img", "img:not(.author-avatar)"}
	cardTitles        = []string{
		".footer a.title span",
		".footer a.title",
		".footer .title span",
		".footer .title",
		"a.title span",
		"a.title",
	}
	cardAuthors = []string{
		".card-bottom-wrapper .author .name",
		".card-bottom-wrapper .name",
		".author-wrapper .name",
		".author .name",
	}
	cardAuthorLinks = []string{
		".card-bottom-wrapper a.author[href*='/user/profile/']",
		"a.author[href*='/user/profile/']",
		"a[href*='/user/profile/']",
	}
	cardTimes       = []string{".name-time-wrapper .time", ".time"}
	cardLikes       = []string{".like-wrapper .count", ".likes .count", ".count"}
	cardVideoMarker = ".video-icon, .type-video, [class*='play-icon']"

	detailTitles      = []string{"#detail-title", ".note-content .title"}
	detailContents    = []string{"#detail-desc .note-text", "#detail-desc", ".note-content .desc"}
	detailAuthors     = []string{".author-container .username", ".author-wrapper .username", ".author .name"}
	detailAuthorLinks = []string{".author-container a[href*='/user/profile/']", ".author-wrapper a[href*='/user/profile/']"}
	detailDates       = []string{".note-content .bottom-container .date", ".note-content .date"}
	detailLikes       = []string{".interact-container .like-wrapper .count", ".like-wrapper .count"}
	detailCollects    = []string{".interact-container .collect-wrapper .count", ".collect-wrapper .count"}
	detailComments    = []string{".interact-container .chat-wrapper .count", ".chat-wrapper .count"}
	detailShares      = []string{".interact-container .share-wrapper .count", ".share-wrapper .count"}
	detailTags        = "#detail-desc a.tag"
	detailImages      = ".swiper-slide img"
	detailVideos      = []string{".player-container video", "video"}

	commentUserNames = []string{".right .author-wrapper .author a.name", ".author a.name", "a.name"}
	commentUserLinks = []string{".right .author-wrapper a[href*='/user/profile/']", "a[href*='/user/profile/']"}
	commentContents  = []string{".right .content .note-text", ".content .note-text", ".content"}
	commentLikes     = []string{".right .info .interactions .like .count", ".right .info .interactions .like"}
	commentLocations = []string{".right .info .date .location"}
	commentDates     = []string{".right .info .date"}

	// The image URL may be lazily loaded into data-src.
	imageAttrs = []string{"data-src", "src"}
)
