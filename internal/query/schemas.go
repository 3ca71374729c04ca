package query

// Collection names.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
)

const newestFirst = "-createdAt"

func str(name string) Field  { return Field{Name: name, Kind: KindString, Filterable: true, Sortable: true} }
func num(name string) Field  { return Field{Name: name, Kind: KindNumber, Filterable: true, Sortable: true} }
func ts(name string) Field   { return Field{Name: name, Kind: KindTime, Filterable: true, Sortable: true} }
func set(name string) Field  { return Field{Name: name, Kind: KindSet, Filterable: true} }
func text(name string) Field { return Field{Name: name, Kind: KindString, Filterable: true} }

// PostSchema is the allow-list for posts.
var PostSchema = NewSchema(CollectionPosts, newestFirst,
	str("id"),
	str("author"),
	str("title"),
	text("content"),
	text("image"),
	set("likes"),
	set("bookmarks"),
	str("sharedFrom"),
	set("sharedBy"),
	num("shareCount"),
	num("likeCount"),
	num("bookmarkCount"),
	ts("createdAt"),
	ts("updatedAt"),
)

// UserSchema is the allow-list for users.
var UserSchema = NewSchema(CollectionUsers, newestFirst,
	str("id"),
	str("name"),
	str("email"),
	Field{Name: "passwordHash", Kind: KindString, Hidden: true},
	text("bio"),
	text("avatar"),
	set("friends"),
	set("likes"),
	set("bookmarks"),
	set("shares"),
	ts("createdAt"),
	ts("updatedAt"),
)

// CommentSchema is the allow-list for comments.
var CommentSchema = NewSchema(CollectionComments, newestFirst,
	str("id"),
	str("post"),
	str("author"),
	text("text"),
	ts("createdAt"),
	ts("updatedAt"),
)

// SchemaFor returns the schema of a collection by name.
func SchemaFor(collection string) (*Schema, bool) {
	switch collection {
	case CollectionUsers:
		return UserSchema, true
	case CollectionPosts:
		return PostSchema, true
	case CollectionComments:
		return CommentSchema, true
	default:
		return nil, false
	}
}
