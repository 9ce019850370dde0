/*
Package authsdk is a client for the gatekeep HTTP API.

# SDKClient vs Session

SDKClient covers the unauthenticated endpoints: login, the second factor
step and the health probes. A successful login yields a Session, which
carries the session token and covers everything behind it: factor
enrollment, login history and logout.

	client := authsdk.NewSDKClient("https://gatekeep.example.com")

	session, err := client.Login(ctx, "owner@example.com", password, "")
	var sf *authsdk.SecondFactorRequiredError
	if errors.As(err, &sf) {
		// Ask the user for a code for sf.Factor, then:
		session, err = client.SubmitSecondFactor(ctx, sf.ChallengeRef, code)
	}

# Enrollment

	view, err := session.BeginEnrollment(ctx, authsdk.FactorTOTP)
	// Show view.ProvisioningURI as a QR code, then:
	err = session.ConfirmEnrollment(ctx, authsdk.FactorTOTP, code)

# Errors

Every non-2xx response is returned as an *APIError carrying the stable
error code, so callers can branch with IsCode:

	if authsdk.IsCode(err, authsdk.ErrorCodeChallengeExpired) {
		// start enrollment again
	}

Sessions have no refresh. Once the token expires, or the session is
logged out, call Login again.
*/
package authsdk
