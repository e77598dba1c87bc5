package apiv1

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettracer/assettracer/internal/pkg/auth"
)

const openAPIPath = "../../../public/docs/v1/openapi.yml"

var routeParam = regexp.MustCompile(`:(\w+)`)

func loadDocument(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromFile(openAPIPath)
	require.NoError(t, err)
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc := loadDocument(t)
	require.NoError(t, doc.Validate(context.Background()))
	assert.Equal(t, "/api/v1", doc.Servers[0].URL)
}

func TestEveryRouteIsDocumented(t *testing.T) {
	doc := loadDocument(t)

	app := fiber.New()
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer(auth.NewTokenVerifier("", ""), nil))

	seen := 0
	for _, r := range app.GetRoutes(true) {
		if r.Method == fiber.MethodHead || !strings.HasPrefix(r.Path, "/api/v1/") {
			continue
		}
		path := routeParam.ReplaceAllString(strings.TrimPrefix(r.Path, "/api/v1"), "{$1}")
		item := doc.Paths.Find(path)
		if !assert.NotNil(t, item, "route %s %s is not documented", r.Method, path) {
			continue
		}
		assert.NotNil(t, item.GetOperation(r.Method), "operation %s %s is not documented", r.Method, path)
		seen++
	}
	assert.Greater(t, seen, 60)
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	doc := loadDocument(t)
	for _, path := range []string{"/ping", "/public/invoices/{token}", "/billing/webhooks/stripe", "/billing/webhooks/polar"} {
		item := doc.Paths.Find(path)
		require.NotNil(t, item, path)
		for _, op := range item.Operations() {
			require.NotNil(t, op.Security, path)
			assert.Empty(t, *op.Security, path)
		}
	}
}
