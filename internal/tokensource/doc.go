// Package tokensource performs the refresh-token exchange against the Kanban API and
// exposes stored credentials as oauth2 tokens.
//
// The API's refresh endpoint deviates from standard OAuth2:
//   - the request is a JSON body {"refreshToken": "..."} instead of a form-encoded grant
//   - the response uses camelCase {"accessToken", "refreshToken"} and carries no expires_in
//
// Exchanger drives golang.org/x/oauth2 through a transport that rewrites both directions.
//
// # Exchanger
//
//	ex := tokensource.NewExchanger("http://localhost:8080")
//	pair, err := ex.Refresh(ctx, refreshToken)
//
// # Custom Base Transport
//
// Configure a custom base transport for refresh requests (e.g., for proxies or tests):
//
//	ex := tokensource.NewExchanger(
//		baseURL,
//		tokensource.WithTransport(customTransport),
//	)
//
// # Stored Credentials
//
// StoreTokenSource reads the current pair from a tokenstore.TokenStore and reports it as
// an oauth2.Token with the expiry carried in the access token's JWT claims.
package tokensource
