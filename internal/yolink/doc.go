// Package yolink implements the upstream vendor API surface: the JSON
// envelope client, the OAuth-style session manager, and a typed view of
// device state payloads.
//
// # Client
//
// The upstream accepts a single JSON-over-HTTPS endpoint with a request
// envelope {time, method, targetDevice?, token?, params?} and returns
// {time, method, code, desc, data}. Code "000000" is success; every other
// code raises a typed *APIError, classified as user-relevant (warn-level
// log) or unexpected (error-level log).
//
// # Session
//
// The Session is the single owner of token state. It exchanges the account
// credentials (UAID + secret key) for an access/refresh token pair using
// client_credentials / refresh_token grants, refreshes on demand at 90% of
// the token lifetime, and carries a heartbeat timer at 95% as a guaranteed
// backstop. A process-wide mutex ensures exactly one exchange is in flight;
// concurrent callers await the same outcome.
//
// # State decoding
//
// DecodeState gives per-device-type adapters a tagged union over known
// state shapes, with a raw escape hatch for unrecognised types. The cache
// layer never depends on it; merging stays permissive.
package yolink
