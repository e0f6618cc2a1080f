package ports

import "context"

// Navigator moves the client between screens identified by route strings.
type Navigator interface {
	Navigate(route string)
	GoBack(fallback string)
}

// Translator maps a localization key to user facing text.
type Translator interface {
	Translate(key string) string
}

// TokenLifecycle is a process wide, reference counted credential used by map clients.
type TokenLifecycle interface {
	Init(ctx context.Context) error
	Stop()
}
