package api

import (
	"github.com/murmurapp/murmur-server/internal/events"
	"github.com/murmurapp/murmur-server/internal/service"
)

// Services groups the use cases the API server calls into.
type Services struct {
	Posts        *service.PostService
	Comments     *service.CommentService
	Users        *service.UserService
	Interactions *service.InteractionService
	// Events is optional. When it reports broker health, /health includes it.
	Events events.Publisher
}
