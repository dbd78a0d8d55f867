// Package middleware provides HTTP middleware binding the authorization
// engine into a standard net/http handler chain.
//
//	authzMw, err := middleware.Authorization(engine, subjectFromSession)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	handler = authzMw(mux)
//
// The middleware consults the engine with the request's path and method;
// subject resolution is delegated to the authentication layer via a
// SubjectExtractor.
package middleware
