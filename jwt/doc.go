// Package jwt issues and verifies signed session tokens. [Manager] satisfies
// session.TokenCodec so a deployment can swap the login surface's unsigned
// base64 format for HS256 or Ed25519 signatures without touching the store.
//
// Expiry is deliberately not enforced here: the session store compares the
// decoded expiry against its own clock so that an expired token takes the
// same logout path whichever codec produced it.
package jwt
