package plugins

import "context"

// Plugin is a self-contained feature module that can be toggled per
// user. Its one hot-path duty is answering "what should the model
// silently know about this user right now?".
//
// Context returns an empty string when there is nothing to say; an
// error means the plugin's own data read failed. It must never mutate
// state.
type Plugin interface {
	Name() string
	Title() string
	Description() string
	Context(ctx context.Context, userID int64) (string, error)
}
