package domain

// Viewing is symmetric between sender and recipient; changing the read state
// is reserved for the recipient.

// AuthorizeView returns ErrForbidden unless username took part in m.
func AuthorizeView(m *Message, username string) error {
	if username == "" {
		return ErrForbidden
	}
	if username == m.FromUsername || username == m.ToUsername {
		return nil
	}
	return ErrForbidden
}

// AuthorizeMarkRead returns ErrForbidden unless username is the recipient of m.
func AuthorizeMarkRead(m *Message, username string) error {
	if username == "" || username != m.ToUsername {
		return ErrForbidden
	}
	return nil
}

// AuthorizeSelf returns ErrForbidden unless requester is the owner of the
// user-scoped resource.
func AuthorizeSelf(owner, requester string) error {
	if requester == "" || owner != requester {
		return ErrForbidden
	}
	return nil
}
