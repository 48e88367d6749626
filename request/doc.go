// Package request is the authenticated REST client for the connected org.
//
// Every call is resolved against {instance_url}/services/data/{version}/ and
// carries the stored bearer token. A 401 or 403 triggers one synchronous
// token refresh followed by exactly one retry; the retry may be served from
// the response cache when the same call previously succeeded.
package request
