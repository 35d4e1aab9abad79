package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LogoutRequest struct {
	AllDevices bool `json:"all_devices"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type ChangePasswordRequest struct {
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

type UpdateRoleRequest struct {
	Role string `json:"role"`
}

type CreateAPITokenRequest struct {
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	ExpiresAt string `json:"expires_at"`
}

type CreateRedirectRequest struct {
	Source          string  `json:"source"`
	Destination     string  `json:"destination"`
	Domain          *string `json:"domain"`
	StatusCode      int     `json:"status_code"`
	Enabled         *bool   `json:"enabled"`
	IsCaseSensitive bool    `json:"is_case_sensitive"`
}

type BatchCreateRedirectsRequest struct {
	Redirects []CreateRedirectRequest `json:"redirects"`
}

type BatchUpdateRedirectItem struct {
	ID int64 `json:"id"`
	RedirectPatch
}

type BatchUpdateRedirectsRequest struct {
	Updates []BatchUpdateRedirectItem `json:"updates"`
}

type BatchDeleteRedirectsRequest struct {
	IDs []int64 `json:"ids"`
}
