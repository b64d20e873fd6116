// Package domain defines the core data structures of the Wharf application.
// It contains the primary domain models, such as Project, as well as the
// repository and collaborator interfaces that define the contracts for
// project persistence and certificate provisioning.
//
// By defining interfaces here, the proxy core remains independent of the
// SQLite registry implementation and of the certificate tooling, which makes
// both easy to substitute in tests.
package domain
