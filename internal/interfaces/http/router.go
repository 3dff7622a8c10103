package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-core/internal/application/auth"
	"github.com/jhoicas/inventario-core/internal/application/inventory"
	"github.com/jhoicas/inventario-core/internal/application/usecase"
	"github.com/jhoicas/inventario-core/internal/domain/access"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName     string
	CategoryUC  *usecase.CategoryUseCase
	SupplierUC  *usecase.SupplierUseCase
	WarehouseUC *usecase.WarehouseUseCase
	ProductUC   *usecase.ProductUseCase
	MovementUC  *inventory.MovementUseCase
	HistoryUC   *inventory.HistoryUseCase
	LowStockUC  *inventory.LowStockUseCase
	AuthUC      *auth.AuthUseCase
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token); cada grupo aplica la política de su recurso
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	protected.Post("/users", Authorize(access.ResourceUsers), authHandler.CreateUser)

	categories := protected.Group("/categories", Authorize(access.ResourceCategories))
	categoryHandler := NewCategoryHandler(deps.CategoryUC)
	categories.Get("/", categoryHandler.List)
	categories.Post("/", categoryHandler.Create)
	categories.Get("/:id", categoryHandler.GetByID)
	categories.Put("/:id", categoryHandler.Update)
	categories.Patch("/:id", categoryHandler.Update)
	categories.Delete("/:id", categoryHandler.Delete)

	suppliers := protected.Group("/suppliers", Authorize(access.ResourceSuppliers))
	supplierHandler := NewSupplierHandler(deps.SupplierUC)
	suppliers.Get("/", supplierHandler.List)
	suppliers.Post("/", supplierHandler.Create)
	suppliers.Get("/:id", supplierHandler.GetByID)
	suppliers.Put("/:id", supplierHandler.Update)
	suppliers.Patch("/:id", supplierHandler.Update)
	suppliers.Delete("/:id", supplierHandler.Delete)

	warehouses := protected.Group("/warehouses", Authorize(access.ResourceWarehouses))
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Post("/", warehouseHandler.Create)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", warehouseHandler.Update)
	warehouses.Patch("/:id", warehouseHandler.Update)
	warehouses.Delete("/:id", warehouseHandler.Delete)

	// Products: las rutas fijas van antes de /:id
	products := protected.Group("/products", Authorize(access.ResourceProducts))
	productHandler := NewProductHandler(deps.ProductUC, deps.HistoryUC, deps.LowStockUC)
	products.Get("/low-stock", productHandler.LowStock)
	products.Get("/low-stock/xlsx", productHandler.LowStockXLSX)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.GetByID)
	products.Get("/:id/history", productHandler.History)
	products.Get("/:id/history/pdf", productHandler.HistoryPDF)
	products.Put("/:id", productHandler.Update)
	products.Patch("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	movements := protected.Group("/movements", Authorize(access.ResourceMovements))
	movementHandler := NewMovementHandler(deps.MovementUC)
	movements.Get("/", movementHandler.List)
	movements.Post("/", movementHandler.Create)
	movements.Get("/:id", movementHandler.GetByID)
	movements.Put("/:id", movementHandler.Replace)
	movements.Patch("/:id", movementHandler.Update)
	movements.Delete("/:id", movementHandler.Delete)
}
