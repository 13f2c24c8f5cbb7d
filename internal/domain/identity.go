package domain

// IdentityKind discriminates the resolved principal of a request.
type IdentityKind int

const (
	KindAnonymous IdentityKind = iota
	KindAuthenticated
	KindGuest
)

func (k IdentityKind) String() string {
	switch k {
	case KindAuthenticated:
		return "authenticated"
	case KindGuest:
		return "guest"
	default:
		return "anonymous"
	}
}

// Identity is the principal resolved for a request. Exactly one of the
// variants applies, selected by Kind:
//
//	Anonymous                      no fields set
//	Authenticated{UserID, Role}    bearer token verified and user exists
//	Guest{UserID, SessionID}       UserID is the guest session's internal id
type Identity struct {
	Kind      IdentityKind
	UserID    string
	Role      string
	SessionID string
}

// Anonymous returns the identity of a request with no credentials.
func Anonymous() Identity {
	return Identity{Kind: KindAnonymous}
}

// Authenticated returns the identity of a verified user.
func Authenticated(userID, role string) Identity {
	return Identity{Kind: KindAuthenticated, UserID: userID, Role: role}
}

// Guest returns the identity of a request carrying a valid guest session.
func Guest(internalID, sessionID string) Identity {
	return Identity{Kind: KindGuest, UserID: internalID, Role: RoleGuest, SessionID: sessionID}
}

func (i Identity) IsAnonymous() bool     { return i.Kind == KindAnonymous }
func (i Identity) IsAuthenticated() bool { return i.Kind == KindAuthenticated }
func (i Identity) IsGuest() bool         { return i.Kind == KindGuest }

// IsUser reports whether the identity is the authenticated user userID.
func (i Identity) IsUser(userID string) bool {
	return i.Kind == KindAuthenticated && i.UserID == userID
}
