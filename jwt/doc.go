// Package jwt issues and verifies the signed bearer tokens that carry a
// username and the opaque session token they are bound to.
//
// A token on its own never authenticates a request: the session it names
// must still validate in the session store. Verification is pure CPU work and
// runs before any store access.
package jwt
