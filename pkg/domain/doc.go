// Package domain contains the core domain entities and types used by the
// application. These types represent the marketplace concepts (listings,
// listing types and the editors who publish them) and are intentionally free
// of infrastructure concerns so they can be shared across packages.
package domain
