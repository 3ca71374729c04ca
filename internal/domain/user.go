package domain

// User is an account that authors posts and comments and acts on posts.
//
// Likes, Bookmarks and Shares mirror the corresponding sets on Post and are
// only mutated by the interaction engine.
type User struct {
	Record
	Name         string   `json:"name" validate:"required,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	PasswordHash string   `json:"passwordHash,omitempty"`
	Bio          string   `json:"bio,omitempty" validate:"max=500"`
	Avatar       string   `json:"avatar,omitempty"`
	Friends      []string `json:"friends"`
	Likes        []string `json:"likes"`
	Bookmarks    []string `json:"bookmarks"`
	Shares       []string `json:"shares"`
}

// Normalize replaces nil sets with empty ones so stored documents never carry null arrays.
func (u *User) Normalize() {
	u.Friends = orEmpty(u.Friends)
	u.Likes = orEmpty(u.Likes)
	u.Bookmarks = orEmpty(u.Bookmarks)
	u.Shares = orEmpty(u.Shares)
}

// Profile is the user as shown to other users. It never carries the password hash.
type Profile struct {
	Record
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Bio       string   `json:"bio,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
	Friends   []string `json:"friends"`
	Likes     []string `json:"likes"`
	Bookmarks []string `json:"bookmarks"`
	Shares    []string `json:"shares"`
}

// Profile returns the public view of u.
func (u *User) Profile() Profile {
	return Profile{
		Record:    u.Record,
		Name:      u.Name,
		Email:     u.Email,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		Friends:   orEmpty(u.Friends),
		Likes:     orEmpty(u.Likes),
		Bookmarks: orEmpty(u.Bookmarks),
		Shares:    orEmpty(u.Shares),
	}
}

// ProfileUpdate carries the user-editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty" validate:"omitnil,notblank,max=100"`
	Email  *string `json:"email,omitempty" validate:"omitnil,email"`
	Bio    *string `json:"bio,omitempty" validate:"omitnil,max=500"`
	Avatar *string `json:"avatar,omitempty"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Bio == nil && p.Avatar == nil
}

// Apply copies the set fields onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}
