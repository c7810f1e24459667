package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
)

// DocsConfig configures the OpenAPI and Swagger UI endpoints.
type DocsConfig struct {
	SpecPath   string
	OktaIssuer string
	ClientID   string
	Scopes     []string
}

// SpecHandler serves the OpenAPI document. The {oktaIssuer} placeholder in
// the file is replaced with the configured issuer.
func SpecHandler(cfg DocsConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := os.ReadFile(cfg.SpecPath)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to load OpenAPI document")
		}
		spec := strings.ReplaceAll(string(data), "{oktaIssuer}", cfg.OktaIssuer)
		return c.Blob(http.StatusOK, "application/yaml", []byte(spec))
	}
}

// SwaggerHandler serves a Swagger UI page using CDN assets, wired for PKCE
// login against the same issuer as the application.
func SwaggerHandler(cfg DocsConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		redirect := c.Scheme() + "://" + c.Request().Host + "/docs/oauth2-redirect.html"
		page := strings.NewReplacer(
			"${SPEC_URL}", "/openapi.yaml",
			"${OAUTH2_REDIRECT}", redirect,
			"${CLIENT_ID}", cfg.ClientID,
			"${SCOPES}", strings.Join(cfg.Scopes, " "),
		).Replace(swaggerHTML)
		return c.HTML(http.StatusOK, page)
	}
}

// OAuth2RedirectHandler serves the page Swagger UI returns to after login.
func OAuth2RedirectHandler(c echo.Context) error {
	return c.HTML(http.StatusOK, oauthRedirectHTML)
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Flow Builder API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
  window.onload = function() {
    const ui = SwaggerUIBundle({
      url: "${SPEC_URL}",
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout",
      oauth2RedirectUrl: "${OAUTH2_REDIRECT}",
    });
    window.ui = ui;
    ui.initOAuth({
      clientId: "${CLIENT_ID}",
      scopes: "${SCOPES}",
      usePkceWithAuthorizationCodeGrant: true,
    });
  }
  </script>
</body>
</html>`

const oauthRedirectHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"/><title>OAuth2 Redirect</title></head>
<body>
<script>
if (window.opener && window.opener.swaggerUIRedirectCallback) {
  window.opener.swaggerUIRedirectCallback(window.location.href);
}
</script>
</body>
</html>`
