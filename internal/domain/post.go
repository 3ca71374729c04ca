package domain

// Post is a piece of authored content. A post created by sharing another post
// carries the origin's identifier in SharedFrom, which never changes afterwards.
type Post struct {
	Record
	Author        string   `json:"author" validate:"required"`
	Title         string   `json:"title" validate:"notblank,max=200"`
	Content       string   `json:"content" validate:"notblank"`
	Image         string   `json:"image,omitempty"`
	Likes         []string `json:"likes"`
	Bookmarks     []string `json:"bookmarks"`
	SharedFrom    string   `json:"sharedFrom,omitempty"`
	SharedBy      []string `json:"sharedBy"`
	ShareCount    int      `json:"shareCount" validate:"gte=0"`
	LikeCount     int      `json:"likeCount" validate:"gte=0"`
	BookmarkCount int      `json:"bookmarkCount" validate:"gte=0"`
}

// Normalize replaces nil sets with empty ones so stored documents never carry null arrays.
func (p *Post) Normalize() {
	p.Likes = orEmpty(p.Likes)
	p.Bookmarks = orEmpty(p.Bookmarks)
	p.SharedBy = orEmpty(p.SharedBy)
}

// IsShare reports whether the post was created by sharing another post.
func (p *Post) IsShare() bool {
	return p.SharedFrom != ""
}

// ShareCopy builds the post that results from actorID sharing p. The caller assigns
// the identifier and timestamps.
func (p *Post) ShareCopy(actorID string) Post {
	return Post{
		Author:     actorID,
		Title:      p.Title,
		Content:    p.Content,
		Image:      p.Image,
		Likes:      []string{},
		Bookmarks:  []string{},
		SharedFrom: p.ID,
		SharedBy:   []string{actorID},
	}
}

// PostUpdate carries the editable post fields. Author and SharedFrom are fixed at creation.
type PostUpdate struct {
	Title   *string `json:"title,omitempty" validate:"omitnil,notblank,max=200"`
	Content *string `json:"content,omitempty" validate:"omitnil,notblank"`
	Image   *string `json:"image,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil && u.Image == nil
}

// Apply copies the set fields onto p.
func (u PostUpdate) Apply(p *Post) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
	if u.Image != nil {
		p.Image = *u.Image
	}
}
