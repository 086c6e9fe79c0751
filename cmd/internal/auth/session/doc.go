// Package session implements PedeAí's stateless session model.
//
// A session is a single signed bearer token:
//
//	base64(JSON(claims)) + "." + base64(HMAC-SHA256(secret, base64(JSON(claims))))
//
// The token lives in two places kept in step by Bridge: a local key/value store read by
// client code, and the authToken cookie read by the edge gate on every request.
// There is no server-side session table and no revocation list; a token is valid
// until its exp even after logout on the issuing device.
package session
