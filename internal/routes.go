package internal

import (
	"net/http"
	"voiceloop/internal/controllers"
	"voiceloop/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider("/api")

	routers.Get("/profile", http.HandlerFunc(apiController.GetProfile))
	routers.Get("/insights", http.HandlerFunc(apiController.GetInsights))
	routers.Get("/records", http.HandlerFunc(apiController.GetRecords))
	return routers
}
