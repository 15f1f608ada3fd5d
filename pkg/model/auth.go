package model

// LoginRequest is the body of POST /user/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token. Depending on the API version the
// token is returned as accessToken or token.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Token       string `json:"token"`
	Username    string `json:"username"`
}

// BearerToken returns the token to store, preferring accessToken.
func (r LoginResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
