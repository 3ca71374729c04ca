package domain

// AuthorSummary is the slice of a user shown next to their content.
type AuthorSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// NewAuthorSummary summarizes u, or returns nil for a nil user.
func NewAuthorSummary(u *User) *AuthorSummary {
	if u == nil {
		return nil
	}
	return &AuthorSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// PostView is a post with its author resolved for display. Author is nil when
// the author record no longer exists.
type PostView struct {
	Post
	AuthorInfo *AuthorSummary `json:"authorInfo,omitempty"`
}
