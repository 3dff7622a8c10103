package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-core/internal/application/dto"
	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

var supplierOrdering = []string{"business_name", "tax_id", "created_at"}

// SupplierUseCase casos de uso CRUD para proveedores.
type SupplierUseCase struct {
	repo repository.SupplierRepository
}

// NewSupplierUseCase construye el caso de uso.
func NewSupplierUseCase(repo repository.SupplierRepository) *SupplierUseCase {
	return &SupplierUseCase{repo: repo}
}

// Create crea un proveedor.
func (uc *SupplierUseCase) Create(ctx context.Context, in dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	supplier := &entity.Supplier{
		ID:           uuid.New().String(),
		BusinessName: strings.TrimSpace(in.BusinessName),
		TaxID:        strings.TrimSpace(in.TaxID),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := validateSupplier(supplier); err != nil {
		return nil, err
	}
	now := time.Now()
	supplier.CreatedAt, supplier.UpdatedAt = now, now
	if err := uc.repo.Create(ctx, supplier); err != nil {
		return nil, err
	}
	return toSupplierResponse(supplier), nil
}

// GetByID obtiene un proveedor por ID.
func (uc *SupplierUseCase) GetByID(ctx context.Context, id string) (*dto.SupplierResponse, error) {
	supplier, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, nil
	}
	return toSupplierResponse(supplier), nil
}

// Update actualiza un proveedor.
func (uc *SupplierUseCase) Update(ctx context.Context, id string, in dto.UpdateSupplierRequest) (*dto.SupplierResponse, error) {
	supplier, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, nil
	}
	if in.BusinessName != nil {
		supplier.BusinessName = strings.TrimSpace(*in.BusinessName)
	}
	if in.TaxID != nil {
		supplier.TaxID = strings.TrimSpace(*in.TaxID)
	}
	if in.Email != nil {
		supplier.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		supplier.Phone = strings.TrimSpace(*in.Phone)
	}
	if err := validateSupplier(supplier); err != nil {
		return nil, err
	}
	supplier.UpdatedAt = time.Now()
	if err := uc.repo.Update(ctx, supplier); err != nil {
		return nil, err
	}
	return toSupplierResponse(supplier), nil
}

// List lista proveedores con búsqueda por razón social, RUT o email.
func (uc *SupplierUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.SupplierListResponse, error) {
	page.DefaultPage()
	f, err := repository.NewListFilter(page.Search, page.Ordering, page.FetchLimit(), page.Offset, supplierOrdering...)
	if err != nil {
		return nil, err
	}
	list, err := uc.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	list, meta := dto.PageOf(page, list)
	items := make([]dto.SupplierResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *toSupplierResponse(s))
	}
	return &dto.SupplierListResponse{
		Items: items,
		Page:  meta,
	}, nil
}

// Delete elimina un proveedor. Falla con ErrReferenced si tiene productos.
func (uc *SupplierUseCase) Delete(ctx context.Context, id string) error {
	return uc.repo.Delete(ctx, id)
}

func validateSupplier(s *entity.Supplier) error {
	if s.BusinessName == "" {
		return domain.NewValidationError("business_name", "La razón social es requerida.")
	}
	if s.TaxID == "" {
		return domain.NewValidationError("tax_id", "El RUT es requerido.")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return domain.NewValidationError("email", "Email inválido.")
	}
	return nil
}

func toSupplierResponse(s *entity.Supplier) *dto.SupplierResponse {
	if s == nil {
		return nil
	}
	return &dto.SupplierResponse{
		ID:           s.ID,
		BusinessName: s.BusinessName,
		TaxID:        s.TaxID,
		Email:        s.Email,
		Phone:        s.Phone,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
