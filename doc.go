// Package hyperbun exposes bun models as hypermedia REST resources.
//
// A Manager (package manager) adapts the create, retrieve, list, update and
// delete verbs onto bun queries that run inside a session handler (package
// session). A Resource (package resource) wraps a manager with links,
// relationships and pre/post processors, and the rest package serves a
// registry of resources over echo as HAL JSON.
//
// The constructors in this package bind managers and resources to the global
// database set up by database.InitDB:
//
//	database.RegisterModels((*Author)(nil), (*Post)(nil))
//	if _, err := database.InitDB(cfg); err != nil {
//		return err
//	}
//	posts, err := hyperbun.NewResource[Post]()
//	if err != nil {
//		return err
//	}
//	registry := resource.NewRegistry("/api")
//	hyperbun.MustRegister(registry, posts)
//	server := rest.NewServer(rest.ServerConfig{Port: 8080}, registry, nil)
package hyperbun
