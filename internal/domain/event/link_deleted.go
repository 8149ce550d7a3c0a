package event

var _ Event = LinkDeleted{}

const LinkDeletedName = "link.deleted"

// LinkDeleted is raised when a link and its history are removed.
type LinkDeleted struct {
	Base
}

func NewLinkDeleted(shortCode string) LinkDeleted {
	return LinkDeleted{Base: NewBase(shortCode)}
}

func (e LinkDeleted) EventName() string {
	return LinkDeletedName
}
