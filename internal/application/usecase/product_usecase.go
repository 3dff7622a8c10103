package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/inventory"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var productOrdering = []string{"sku", "name", "price", "stock_actual", "created_at"}

// ProductUseCase casos de uso CRUD para productos. Stock se maneja vía movimientos.
type ProductUseCase struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	supplierRepo repository.SupplierRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	supplierRepo repository.SupplierRepository,
) *ProductUseCase {
	return &ProductUseCase{repo: repo, categoryRepo: categoryRepo, supplierRepo: supplierRepo}
}

// Create crea un nuevo producto. El SKU se normaliza y el stock inicia en 0.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	sku := inventory.NormalizeSKU(in.SKU)
	if sku == "" {
		return nil, domain.NewValidationError("sku", "El SKU es requerido.")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "El nombre es requerido.")
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "El precio no puede ser negativo.")
	}
	existing, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateSKU()
	}
	now := time.Now()
	product := &entity.Product{
		ID:         uuid.New().String(),
		SKU:        sku,
		Name:       name,
		CategoryID: in.CategoryID,
		SupplierID: in.SupplierID,
		Price:      in.Price,
		Stock:      0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.resolveRefs(ctx, product); err != nil {
		return nil, err
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, duplicateSKU()
		}
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. No permite modificar el stock.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if in.SKU != nil {
		sku := inventory.NormalizeSKU(*in.SKU)
		if sku == "" {
			return nil, domain.NewValidationError("sku", "El SKU es requerido.")
		}
		if sku != product.SKU {
			existing, err := uc.repo.GetBySKU(ctx, sku)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, duplicateSKU()
			}
		}
		product.SKU = sku
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "El nombre es requerido.")
		}
		product.Name = name
	}
	if in.CategoryID != nil {
		product.CategoryID = *in.CategoryID
	}
	if in.SupplierID != nil {
		product.SupplierID = *in.SupplierID
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.NewValidationError("price", "El precio no puede ser negativo.")
		}
		product.Price = *in.Price
	}
	if err := uc.resolveRefs(ctx, product); err != nil {
		return nil, err
	}
	product.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, product); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, duplicateSKU()
		}
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con búsqueda (SKU, nombre, categoría, proveedor) y filtro stock_below.
func (uc *ProductUseCase) List(ctx context.Context, page dto.PageRequest, stockBelow *int) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	f, err := repository.NewListFilter(page.Search, page.Ordering, page.FetchLimit(), page.Offset, productOrdering...)
	if err != nil {
		return nil, err
	}
	list, err := uc.repo.List(ctx, repository.ProductFilter{ListFilter: f, StockBelow: stockBelow})
	if err != nil {
		return nil, err
	}
	list, meta := dto.PageOf(page, list)
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  meta,
	}, nil
}

// Delete elimina un producto. Falla con ErrReferenced si tiene movimientos.
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}

// resolveRefs verifica categoría y proveedor y completa sus nombres.
func (uc *ProductUseCase) resolveRefs(ctx context.Context, p *entity.Product) error {
	if p.CategoryID == "" {
		return domain.NewValidationError("category_id", "La categoría es requerida.")
	}
	category, err := uc.categoryRepo.GetByID(ctx, p.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return domain.NewValidationError("category_id", "La categoría no existe.")
	}
	if p.SupplierID == "" {
		return domain.NewValidationError("supplier_id", "El proveedor es requerido.")
	}
	supplier, err := uc.supplierRepo.GetByID(ctx, p.SupplierID)
	if err != nil {
		return err
	}
	if supplier == nil {
		return domain.NewValidationError("supplier_id", "El proveedor no existe.")
	}
	p.CategoryName = category.Name
	p.SupplierName = supplier.BusinessName
	return nil
}

// DuplicateSKUError conserva ErrDuplicate para el mapeo HTTP (409) con un mensaje propio.
type DuplicateSKUError struct{}

func (DuplicateSKUError) Error() string { return "El SKU ya existe." }

func (DuplicateSKUError) Unwrap() error { return domain.ErrDuplicate }

func duplicateSKU() error { return DuplicateSKUError{} }

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		SupplierID:   p.SupplierID,
		SupplierName: p.SupplierName,
		Price:        p.Price,
		Stock:        p.Stock,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
