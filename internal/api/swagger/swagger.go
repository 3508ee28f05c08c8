// Package swagger serves the API reference: the embedded OpenAPI document and
// a Swagger UI page that loads it from the CDN.
package swagger

import (
	_ "embed"
	"net/http"
	"strings"
)

//go:embed openapi.yaml
var document []byte

const (
	uiVersion = "5.11.0"
	docPath   = "/openapi.yaml"
)

// Handler serves the reference page at "/" and the document at
// "/openapi.yaml". prefix is where the handler is mounted, e.g. "/docs", and
// is stripped by the caller.
func Handler(prefix string) http.Handler {
	page := strings.NewReplacer(
		"{{version}}", uiVersion,
		"{{doc}}", strings.TrimSuffix(prefix, "/")+docPath,
	).Replace(pageTemplate)

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+docPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(document)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})
	return mux
}

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>solarquote API reference</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@{{version}}/swagger-ui.css">
<style>
  body { margin: 0; background: #fffbeb; }
  header { padding: 12px 24px; background: #f59e0b; color: #1f2937; font-family: sans-serif; }
  header h1 { margin: 0; font-size: 18px; }
</style>
</head>
<body>
<header><h1>solarquote calculators, portfolio and admin API</h1></header>
<main id="reference"></main>
<script src="https://unpkg.com/swagger-ui-dist@{{version}}/swagger-ui-bundle.js"></script>
<script>
  SwaggerUIBundle({
    url: "{{doc}}",
    dom_id: "#reference",
    docExpansion: "none",
    tryItOutEnabled: true,
    persistAuthorization: true
  });
</script>
</body>
</html>
`
