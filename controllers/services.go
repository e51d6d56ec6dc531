package controllers

import (
	"github.com/stickerhub/sticker-shop-api/config"
	"github.com/stickerhub/sticker-shop-api/services"
)

// The handlers build their services per request from the shared database,
// configuration and collaborators set up in main.

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), services.GetCatalogCache())
}

func cartService() *services.CartService {
	return services.NewCartService(config.GetDB())
}

func orderService() *services.OrderService {
	baseURL := ""
	if cfg := config.GetConfig(); cfg != nil {
		baseURL = cfg.PublicBaseURL
	}
	return services.NewOrderService(
		config.GetDB(),
		services.NewStockLedger(),
		catalogService(),
		services.GetPaymentGateway(),
		services.GetNotifier(),
		baseURL,
	)
}

func approvalService() *services.ApprovalService {
	return services.NewApprovalService(
		config.GetDB(),
		catalogService(),
		services.GetNotifier(),
		services.ShopDefaultsFromConfig(config.GetConfig()),
	)
}

func authService() *services.AuthService {
	return services.NewAuthService(config.GetDB(), services.NewTokenService(config.GetConfig()))
}
