package auth

const (
	ScopeOpenID     = "openid"
	ScopeProfile    = "profile"
	ScopeEmail      = "email"
	ScopeFlowsRead  = "flows:read"
	ScopeFlowsWrite = "flows:write"
	ScopeFlowsRun   = "flows:run"
)

// LoginScopes are requested by the browser login flow.
var LoginScopes = []string{ScopeOpenID, ScopeProfile, ScopeEmail}

// AllScopes defines the full set of scopes offered by the Swagger UI.
var AllScopes = []string{
	ScopeOpenID,
	ScopeProfile,
	ScopeEmail,
	ScopeFlowsRead,
	ScopeFlowsWrite,
	ScopeFlowsRun,
}
