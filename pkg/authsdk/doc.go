/*
Package authsdk is the Go client for the roomstay auth service, and the
home of the request, response and error types the service speaks.

# Client and Session

SDKClient covers the unauthenticated endpoints: signup and its
verification code, password reset, login and health probes.

	client := authsdk.NewSDKClient("https://auth.roomstay.example")

	err := client.Signup(ctx, authsdk.SignupRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "correct horse battery",
	})

	// The six digit code arrives by email.
	account, err := client.VerifySignup(ctx, "alice@example.com", "482913")

	session, err := client.Login(ctx, "alice", "correct horse battery")

Login returns a Session that carries the bearer token:

	me, err := session.Me(ctx)
	err = session.Logout(ctx)

Sessions do not refresh. Once the token expires, log in again.

# Errors

Every non-2xx response is returned as *APIError. Compare codes with IsCode:

	if authsdk.IsCode(err, authsdk.ErrorCodeInvalidCode) {
		// wrong code, attempts remain
	}
*/
package authsdk
