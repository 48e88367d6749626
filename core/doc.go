// Package core contains the connector domain contracts, the OAuth2 PKCE
// authorization-code flow against the CRM provider, and the credential and
// token stores it mutates. Lower-level adapters (transport, storage, http)
// depend on this package; core must not depend on them.
package core
