// Package services defines clients for the provider's accounts and catalog HTTP APIs.
//
// # Token Exchange
//
// [OAuthClient] implements [TokenExchanger] on top of [golang.org/x/oauth2]. It builds the authorization URL
// and performs the two token endpoint calls of the authorization code flow:
//   - ExchangeCode : grant_type=authorization_code, one POST per code
//   - RefreshToken : grant_type=refresh_token, keeps the old refresh token when none is returned
//
// Client credentials are always sent as HTTP Basic auth. Every call is bounded by a timeout (3s by default).
//
// # Catalog
//
// [CatalogClient] implements [Catalog] with bearer-authenticated GETs against the Web API:
//   - /browse/new-releases : albums.items
//   - /albums/{id}/tracks  : items
//
// Requests are paced by a [golang.org/x/time/rate.Limiter]. Only a 200 response is decoded.
//
// # Memoization
//
// [CachedCatalog] wraps any [Catalog] with a [Cache] keyed by (access token, endpoint, params).
// Successful results are kept until invalidated; failures are never cached. Because the access token is part
// of the key, a refreshed token never sees results fetched with the previous one.
//
// # Error Handling
//
// Failed provider calls return a [*ResponseError] which matches, via [errors.Is]:
//   - [shared.ErrAuthExchange], [shared.ErrRefreshFailed] or [shared.ErrCatalogRequest] : what failed
//   - [shared.ErrTimeout] : the call exceeded its deadline
//
// StatusCode and Body carry the provider's response when one was received.
package services
