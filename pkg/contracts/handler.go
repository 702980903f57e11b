// Package contracts holds the interfaces pkg/app wires its HTTP surfaces through.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every domain handler and by the health handler.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// NewRouter returns a router carrying the routes of every handler, in order.
// Two handlers claiming the same method and path make httprouter panic.
func NewRouter(handlers ...Handler) *httprouter.Router {
	router := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
	return router
}
