// Package loader registers the HTTP features of the server.
//
// A feature owns a route group (the sync jobs under /sync, the target checks
// under /integrity) and decides on its own whether it is active:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// Manager keeps features in registration order. LoadAll skips disabled
// features and stops at the first one failing to load.
package loader
