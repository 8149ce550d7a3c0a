package event

// Compile-time interface check
var _ Event = LinkCreated{}

const LinkCreatedName = "link.created"

// LinkCreated is raised when a new short link is created.
type LinkCreated struct {
	Base
	LinkID       int64  `json:"link_id"`
	TargetURL    string `json:"target_url"`
	RedirectKind string `json:"redirect_kind"`
}

func NewLinkCreated(linkID int64, shortCode, targetURL, redirectKind string) LinkCreated {
	return LinkCreated{
		Base:         NewBase(shortCode),
		LinkID:       linkID,
		TargetURL:    targetURL,
		RedirectKind: redirectKind,
	}
}

func (e LinkCreated) EventName() string {
	return LinkCreatedName
}
