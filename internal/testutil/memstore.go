// Package testutil provee dobles de prueba: un almacén en memoria que implementa los puertos
// de repositorio y el TxRunner del ledger con bloqueos por fila y rollback.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/inventario-core/internal/domain"
	"github.com/jhoicas/inventario-core/internal/domain/entity"
	"github.com/jhoicas/inventario-core/internal/domain/repository"
)

// Store almacén en memoria. Las lecturas fuera de Run ven solo datos confirmados.
// Dentro de Run, GetForUpdate toma un candado exclusivo por fila que se libera al
// confirmar o revertir; las escrituras quedan en staging hasta el commit.
type Store struct {
	mu         sync.Mutex
	categories map[string]entity.Category
	suppliers  map[string]entity.Supplier
	warehouses map[string]entity.Warehouse
	products   map[string]entity.Product
	movements  map[string]entity.Movement
	users      map[string]entity.User
	seq        map[string]int64
	nextSeq    int64

	locks       map[string]chan struct{}
	lockTimeout time.Duration
	failLocks   int
	commits     int
	rollbacks   int
}

// NewStore crea un almacén vacío. La espera máxima por un candado es 2s.
func NewStore() *Store {
	return &Store{
		categories:  map[string]entity.Category{},
		suppliers:   map[string]entity.Supplier{},
		warehouses:  map[string]entity.Warehouse{},
		products:    map[string]entity.Product{},
		movements:   map[string]entity.Movement{},
		users:       map[string]entity.User{},
		seq:         map[string]int64{},
		locks:       map[string]chan struct{}{},
		lockTimeout: 2 * time.Second,
	}
}

// SetLockTimeout cambia la espera máxima por un candado antes de devolver ErrLockTimeout.
func (s *Store) SetLockTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockTimeout = d
}

// FailNextLocks hace que los próximos n GetForUpdate fallen con domain.ErrLockTimeout.
func (s *Store) FailNextLocks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocks = n
}

// Commits cantidad de transacciones confirmadas.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// Rollbacks cantidad de transacciones revertidas.
func (s *Store) Rollbacks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollbacks
}

// Stock devuelve el stock confirmado de un producto (-1 si no existe).
func (s *Store) Stock(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return -1
	}
	return p.Stock
}

// MovementsOf devuelve los movimientos confirmados de un producto en orden de inserción.
func (s *Store) MovementsOf(productID string) []*entity.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Movement, 0)
	for _, m := range s.movements {
		if m.ProductID == productID {
			out = append(out, s.decorate(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

// ── Repositorios ─────────────────────────────────────────────────────────────

// Categories repositorio de categorías.
func (s *Store) Categories() repository.CategoryRepository { return &categoryRepo{s: s} }

// Suppliers repositorio de proveedores.
func (s *Store) Suppliers() repository.SupplierRepository { return &supplierRepo{s: s} }

// Warehouses repositorio de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository { return &warehouseRepo{s: s} }

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// ── TxRunner ─────────────────────────────────────────────────────────────────

type tx struct {
	s         *Store
	held      map[string]bool
	order     []string
	products  map[string]*entity.Product  // nil = eliminado
	movements map[string]*entity.Movement // nil = eliminado
}

// Run ejecuta fn con repositorios atados a una transacción en memoria.
// Si fn devuelve error nada de lo escrito se confirma.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	t := &tx{
		s:         s,
		held:      map[string]bool{},
		products:  map[string]*entity.Product{},
		movements: map[string]*entity.Movement{},
	}
	defer t.release()

	if err := fn(&movementRepo{s: s, tx: t}, &productRepo{s: s, tx: t}); err != nil {
		s.mu.Lock()
		s.rollbacks++
		s.mu.Unlock()
		return err
	}
	return t.commit()
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	s := t.s
	s.mu.Lock()
	if s.failLocks > 0 {
		s.failLocks--
		s.mu.Unlock()
		return fmt.Errorf("lock %s: %w", key, domain.ErrLockTimeout)
	}
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[key] = ch
	}
	timeout := s.lockTimeout
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		t.held[key] = true
		t.order = append(t.order, key)
		return nil
	case <-timer.C:
		return fmt.Errorf("lock %s: %w", key, domain.ErrLockTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tx) release() {
	s := t.s
	for i := len(t.order) - 1; i >= 0; i-- {
		s.mu.Lock()
		ch := s.locks[t.order[i]]
		s.mu.Unlock()
		<-ch
	}
	t.order = nil
	t.held = map[string]bool{}
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range t.products {
		if p == nil {
			delete(s.products, id)
			continue
		}
		if p.Stock < 0 {
			return fmt.Errorf("check constraint products_stock_check: stock %d", p.Stock)
		}
		s.products[id] = *p
	}
	for id, m := range t.movements {
		if m == nil {
			delete(s.movements, id)
			delete(s.seq, id)
			continue
		}
		s.movements[id] = plain(*m)
	}
	s.commits++
	return nil
}

// ── Productos ────────────────────────────────────────────────────────────────

type productRepo struct {
	s  *Store
	tx *tx
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.products {
		if other.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	if _, ok := s.categories[p.CategoryID]; !ok {
		return domain.ErrReferenced
	}
	if _, ok := s.suppliers[p.SupplierID]; !ok {
		return domain.ErrReferenced
	}
	if r.tx != nil {
		cp := *p
		r.tx.products[p.ID] = &cp
		return nil
	}
	s.products[p.ID] = *p
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.read(id), nil
}

func (r *productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.SKU == sku {
			return s.decorateProduct(p), nil
		}
	}
	return nil, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if r.tx == nil {
		return nil, errors.New("GetForUpdate fuera de transacción")
	}
	if err := r.tx.lock(ctx, "product:"+id); err != nil {
		return nil, err
	}
	return r.read(id), nil
}

func (r *productRepo) read(id string) *entity.Product {
	if r.tx != nil {
		if p, ok := r.tx.products[id]; ok {
			if p == nil {
				return nil
			}
			cp := *p
			return &cp
		}
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil
	}
	return s.decorateProduct(p)
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for id, other := range s.products {
		if id != p.ID && other.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	next := *p
	next.Stock = current.Stock
	if r.tx != nil {
		r.tx.products[p.ID] = &next
		return nil
	}
	s.products[p.ID] = next
	return nil
}

func (r *productRepo) UpdateStock(_ context.Context, id string, stock int) error {
	if r.tx == nil {
		return errors.New("UpdateStock fuera de transacción")
	}
	p := r.read(id)
	if p == nil {
		return domain.ErrNotFound
	}
	p.Stock = stock
	r.tx.products[id] = p
	return nil
}

func (r *productRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Product, 0, len(s.products))
	for _, p := range s.products {
		if f.StockBelow != nil && p.Stock >= *f.StockBelow {
			continue
		}
		d := s.decorateProduct(p)
		if !matches(f.Search, d.SKU, d.Name, d.CategoryName, d.SupplierName) {
			continue
		}
		out = append(out, d)
	}
	field, desc := repository.SplitOrder(f.OrderBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "name":
			return a.Name < b.Name
		case "price":
			return a.Price.LessThan(b.Price)
		case "stock_actual":
			return a.Stock < b.Stock
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.SKU < b.SKU
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *productRepo) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return domain.ErrNotFound
	}
	for _, m := range s.movements {
		if m.ProductID == id {
			return domain.ErrReferenced
		}
	}
	delete(s.products, id)
	return nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

type movementRepo struct {
	s  *Store
	tx *tx
}

func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.warehouses[m.WarehouseID]; !ok {
		return domain.ErrReferenced
	}
	s.nextSeq++
	s.seq[m.ID] = s.nextSeq
	if r.tx != nil {
		cp := plain(*m)
		r.tx.movements[m.ID] = &cp
		return nil
	}
	s.movements[m.ID] = plain(*m)
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	return r.read(id), nil
}

func (r *movementRepo) GetForUpdate(ctx context.Context, id string) (*entity.Movement, error) {
	if r.tx == nil {
		return nil, errors.New("GetForUpdate fuera de transacción")
	}
	if err := r.tx.lock(ctx, "movement:"+id); err != nil {
		return nil, err
	}
	return r.read(id), nil
}

func (r *movementRepo) read(id string) *entity.Movement {
	s := r.s
	if r.tx != nil {
		if m, ok := r.tx.movements[id]; ok {
			if m == nil {
				return nil
			}
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.decorate(*m)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movements[id]
	if !ok {
		return nil
	}
	return s.decorate(m)
}

func (r *movementRepo) Update(_ context.Context, m *entity.Movement) error {
	if r.read(m.ID) == nil {
		return domain.ErrNotFound
	}
	cp := plain(*m)
	if r.tx != nil {
		r.tx.movements[m.ID] = &cp
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.movements[m.ID] = cp
	return nil
}

func (r *movementRepo) Delete(_ context.Context, id string) error {
	if r.read(id) == nil {
		return domain.ErrNotFound
	}
	if r.tx != nil {
		r.tx.movements[id] = nil
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.movements, id)
	delete(r.s.seq, id)
	return nil
}

func (r *movementRepo) List(_ context.Context, f repository.ListFilter) ([]*entity.Movement, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Movement, 0, len(s.movements))
	for _, m := range s.movements {
		d := s.decorate(m)
		if !matches(f.Search, d.ProductSKU, d.ProductName, d.WarehouseName, string(d.Kind), d.Note) {
			continue
		}
		out = append(out, d)
	}
	s.sortMovements(out, f.OrderBy)
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *movementRepo) ListByProduct(_ context.Context, productID string) ([]*entity.Movement, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Movement, 0)
	for _, m := range s.movements {
		if m.ProductID == productID {
			out = append(out, s.decorate(m))
		}
	}
	s.sortMovements(out, "")
	return out, nil
}

// sortMovements orden por defecto: fecha descendente y luego inserción descendente.
func (s *Store) sortMovements(out []*entity.Movement, orderBy string) {
	field, desc := repository.SplitOrder(orderBy)
	if field == "" {
		field, desc = "date", true
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "quantity":
			if a.Quantity != b.Quantity {
				return a.Quantity < b.Quantity
			}
		case "kind":
			if a.Kind != b.Kind {
				return a.Kind < b.Kind
			}
		case "created_at":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
		}
		return s.seq[a.ID] < s.seq[b.ID]
	})
}

// decorate completa los campos de presentación. Requiere s.mu tomado.
func (s *Store) decorate(m entity.Movement) *entity.Movement {
	if p, ok := s.products[m.ProductID]; ok {
		m.ProductSKU, m.ProductName = p.SKU, p.Name
	}
	if w, ok := s.warehouses[m.WarehouseID]; ok {
		m.WarehouseName = w.Name
	}
	return &m
}

// decorateProduct completa categoría y proveedor. Requiere s.mu tomado.
func (s *Store) decorateProduct(p entity.Product) *entity.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	if sp, ok := s.suppliers[p.SupplierID]; ok {
		p.SupplierName = sp.BusinessName
	}
	return &p
}

func plain(m entity.Movement) entity.Movement {
	m.ProductSKU, m.ProductName, m.WarehouseName = "", "", ""
	return m
}

// ── Catálogo ─────────────────────────────────────────────────────────────────

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, c *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.categories {
		if other.Name == c.Name {
			return domain.ErrDuplicate
		}
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *categoryRepo) GetByID(_ context.Context, id string) (*entity.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *categoryRepo) Update(_ context.Context, c *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, other := range r.s.categories {
		if id != c.ID && other.Name == c.Name {
			return domain.ErrDuplicate
		}
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *categoryRepo) List(_ context.Context, f repository.ListFilter) ([]*entity.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if matches(f.Search, c.Name, c.Description) {
			cp := c
			out = append(out, &cp)
		}
	}
	field, desc := repository.SplitOrder(f.OrderBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		if field == "created_at" {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Name < b.Name
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *categoryRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return domain.ErrNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return domain.ErrReferenced
		}
	}
	delete(r.s.categories, id)
	return nil
}

type supplierRepo struct{ s *Store }

func (r *supplierRepo) Create(_ context.Context, sp *entity.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.suppliers[sp.ID] = *sp
	return nil
}

func (r *supplierRepo) GetByID(_ context.Context, id string) (*entity.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sp, ok := r.s.suppliers[id]
	if !ok {
		return nil, nil
	}
	return &sp, nil
}

func (r *supplierRepo) Update(_ context.Context, sp *entity.Supplier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[sp.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.suppliers[sp.ID] = *sp
	return nil
}

func (r *supplierRepo) List(_ context.Context, f repository.ListFilter) ([]*entity.Supplier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Supplier, 0, len(r.s.suppliers))
	for _, sp := range r.s.suppliers {
		if matches(f.Search, sp.BusinessName, sp.TaxID, sp.Email) {
			cp := sp
			out = append(out, &cp)
		}
	}
	field, desc := repository.SplitOrder(f.OrderBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "tax_id":
			return a.TaxID < b.TaxID
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.BusinessName < b.BusinessName
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *supplierRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.suppliers[id]; !ok {
		return domain.ErrNotFound
	}
	for _, p := range r.s.products {
		if p.SupplierID == id {
			return domain.ErrReferenced
		}
	}
	delete(r.s.suppliers, id)
	return nil
}

type warehouseRepo struct{ s *Store }

func (r *warehouseRepo) Create(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.warehouses {
		if other.Name == w.Name && other.Location == w.Location {
			return domain.ErrDuplicate
		}
	}
	r.s.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (r *warehouseRepo) Update(_ context.Context, w *entity.Warehouse) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.warehouses[w.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, other := range r.s.warehouses {
		if id != w.ID && other.Name == w.Name && other.Location == w.Location {
			return domain.ErrDuplicate
		}
	}
	r.s.warehouses[w.ID] = *w
	return nil
}

func (r *warehouseRepo) List(_ context.Context, f repository.ListFilter) ([]*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Warehouse, 0, len(r.s.warehouses))
	for _, w := range r.s.warehouses {
		if matches(f.Search, w.Name, w.Location) {
			cp := w
			out = append(out, &cp)
		}
	}
	field, desc := repository.SplitOrder(f.OrderBy)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if desc {
			a, b = b, a
		}
		switch field {
		case "location":
			return a.Location < b.Location
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Name < b.Name
		}
	})
	return paginate(out, f.Limit, f.Offset), nil
}

func (r *warehouseRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.warehouses[id]; !ok {
		return domain.ErrNotFound
	}
	for _, m := range r.s.movements {
		if m.WarehouseID == id {
			return domain.ErrReferenced
		}
	}
	delete(r.s.warehouses, id)
	return nil
}

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Email == u.Email {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func matches(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
