package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/assettracer/assettracer/app/controllers"
	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/auth"
	"github.com/assettracer/assettracer/internal/pkg/entitlements"
	"github.com/assettracer/assettracer/internal/pkg/middleware"
)

// APIServer holds what the v1 routes need beyond the package level
// controllers.
type APIServer struct {
	verifier   *auth.TokenVerifier
	adminQueue *controllers.AdminQueueController
}

// NewAPIServer creates a new API server instance
func NewAPIServer(verifier *auth.TokenVerifier, queueRepo repository.QueueRepository) *APIServer {
	return &APIServer{
		verifier:   verifier,
		adminQueue: controllers.NewAdminQueueController(queueRepo),
	}
}

// RegisterHandlers mounts every v1 route on router. Public routes come first;
// everything after the auth group needs a session, API key or bearer token
// and has the organization tier loaded from the database.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", controllers.HandlePing)

	// Public
	router.Get("/public/invoices/:token", controllers.HandlePublicInvoice)
	router.Post("/billing/webhooks/stripe", controllers.HandleStripeWebhook)
	router.Post("/billing/webhooks/polar", controllers.HandlePolarWebhook)

	api := router.Group("", middleware.RequireAPIAuth(s.verifier), middleware.LoadTier)
	pdf := middleware.RequireFeature(entitlements.FeaturePDFExport)

	// Account
	api.Get("/me", controllers.HandleGetMe)
	api.Get("/subscription", controllers.HandleGetSubscription)
	api.Post("/me/api-key", controllers.HandleRotateAPIKey)
	api.Delete("/me/api-key", controllers.HandleRevokeAPIKey)

	// Organization
	api.Get("/organization", controllers.HandleGetOrganization)
	api.Put("/organization", middleware.RequireManager, controllers.HandleUpdateOrganization)
	api.Put("/organization/branding", middleware.RequireManager,
		middleware.RequireFeature(entitlements.FeatureCustomBranding), controllers.HandleUpdateBranding)

	// Billing
	api.Get("/billing/subscriptions", controllers.HandleListSubscriptions)
	api.Post("/billing/checkout", middleware.RequireRole("owner"), controllers.HandleCreateCheckout)

	// Assets
	api.Get("/assets", controllers.HandleListAssets)
	api.Post("/assets", controllers.HandleCreateAsset)
	api.Get("/assets/:id", controllers.HandleGetAsset)
	api.Put("/assets/:id", controllers.HandleUpdateAsset)
	api.Delete("/assets/:id", controllers.HandleDeleteAsset)
	api.Post("/assets/:id/photos", controllers.HandleUploadAssetPhoto)
	api.Get("/assets/:id/roi", middleware.RequireFeature(entitlements.FeatureROITracking), controllers.HandleGetAssetROI)

	// Inventory
	api.Get("/inventory", controllers.HandleListInventory)
	api.Post("/inventory", controllers.HandleCreateInventoryItem)
	api.Get("/inventory/:id", controllers.HandleGetInventoryItem)
	api.Put("/inventory/:id", controllers.HandleUpdateInventoryItem)
	api.Delete("/inventory/:id", controllers.HandleDeleteInventoryItem)
	api.Post("/inventory/:id/adjust", controllers.HandleAdjustInventory)

	// Clients
	api.Get("/clients", controllers.HandleListClients)
	api.Post("/clients", controllers.HandleCreateClient)
	api.Get("/clients/:id", controllers.HandleGetClient)
	api.Put("/clients/:id", controllers.HandleUpdateClient)
	api.Delete("/clients/:id", controllers.HandleDeleteClient)

	// Invoices
	api.Get("/invoices", controllers.HandleListInvoices)
	api.Post("/invoices", controllers.HandleCreateInvoice)
	api.Get("/invoices/:id", controllers.HandleGetInvoice)
	api.Put("/invoices/:id", controllers.HandleUpdateInvoice)
	api.Delete("/invoices/:id", controllers.HandleDeleteInvoice)
	api.Post("/invoices/:id/send", controllers.HandleSendInvoice)
	api.Post("/invoices/:id/remind", controllers.HandleRemindInvoice)
	api.Get("/invoices/:id/pdf", pdf, controllers.HandleInvoicePDF)

	// Quotations
	api.Get("/quotations", controllers.HandleListQuotations)
	api.Post("/quotations", controllers.HandleCreateQuotation)
	api.Get("/quotations/:id", controllers.HandleGetQuotation)
	api.Put("/quotations/:id", controllers.HandleUpdateQuotation)
	api.Delete("/quotations/:id", controllers.HandleDeleteQuotation)
	api.Post("/quotations/:id/convert", controllers.HandleConvertQuotation)
	api.Get("/quotations/:id/pdf", pdf, controllers.HandleQuotationPDF)

	// Reservations
	api.Get("/reservations", controllers.HandleListReservations)
	api.Post("/reservations", controllers.HandleCreateReservation)
	api.Get("/reservations/:id", controllers.HandleGetReservation)
	api.Put("/reservations/:id/status", controllers.HandleUpdateReservationStatus)
	api.Get("/reservations/:id/pdf", pdf, controllers.HandleReservationPDF)

	// Payments
	payments := middleware.RequireFeature(entitlements.FeaturePaymentIntegration)
	api.Post("/invoices/:id/payments", payments, controllers.HandleCreateInvoicePayment)
	api.Post("/payments/:id/status", payments, controllers.HandleRefreshPaymentStatus)
	api.Post("/payments/:id/refund", payments, middleware.RequireManager, controllers.HandleRefundPayment)

	// Team
	api.Get("/team", controllers.HandleListTeam)
	api.Post("/team/invitations", middleware.RequireManager, controllers.HandleCreateInvitation)
	api.Delete("/team/invitations/:id", middleware.RequireManager, controllers.HandleRevokeInvitation)
	api.Post("/team/invitations/:token/accept", controllers.HandleAcceptInvitation)
	api.Delete("/team/members/:id", middleware.RequireManager, controllers.HandleRemoveMember)

	// Reports
	api.Get("/reports/summary", controllers.HandleReportSummary)
	api.Get("/reports/monthly", middleware.RequireFeature(entitlements.FeatureMonthlyCharts), controllers.HandleReportMonthly)
	api.Get("/reports/top-assets", middleware.RequireFeature(entitlements.FeatureTopPerformersChart), controllers.HandleReportTopAssets)
	api.Get("/reports/growth", middleware.RequireFeature(entitlements.FeatureGrowthMetrics), controllers.HandleReportGrowth)
	api.Get("/reports/roi", middleware.RequireFeature(entitlements.FeatureROITracking), controllers.HandleReportROI)
	api.Get("/reports/advanced", middleware.RequireFeature(entitlements.FeatureAdvancedReporting), controllers.HandleReportAdvanced)

	// Exports
	api.Get("/exports/:resource.:format", middleware.RequireFeature(entitlements.FeatureCSVExport), controllers.HandleExport)

	// Email
	api.Post("/email/test", middleware.RequireManager, controllers.HandleSendTestEmail)

	// Platform admin
	admin := api.Group("/admin", middleware.RequireAdmin)
	admin.Get("/queue", s.adminQueue.HandleQueueStats)
	admin.Delete("/cache/reports", s.adminQueue.HandleFlushReportCache)
	admin.Put("/organizations/:id/tier", s.adminQueue.HandleOverrideTier)
}
