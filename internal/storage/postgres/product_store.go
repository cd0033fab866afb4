package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/shopcore/internal/domain"
)

type productOpKind string

const (
	productOpAdd    productOpKind = "add"
	productOpUpdate productOpKind = "update"
	productOpDelete productOpKind = "delete"
)

type productOp struct {
	kind    productOpKind
	product domain.Product
}

// ProductStore — PostgreSQL-реализация ProductRepository. Записи копятся
// в pending-наборе и применяются одной транзакцией в Commit; чтения всегда
// идут напрямую в базу и pending-набор не видят.
type ProductStore struct {
	db *sql.DB

	mu      sync.Mutex
	pending []productOp
}

// NewProductStore создаёт хранилище каталога поверх открытого Store.
func NewProductStore(store *Store) *ProductStore {
	return &ProductStore{db: store.DB()}
}

func (s *ProductStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.db.QueryRowContext(queryCtx, selectProductSQL+` WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select product: %w", err)
	}

	if err := s.loadCollections(queryCtx, product, domain.IncludeAll); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *ProductStore) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := s.db.QueryRowContext(queryCtx, selectProductSQL+` WHERE sku = $1`, sku)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select product by sku: %w", err)
	}

	if err := s.loadCollections(queryCtx, product, domain.IncludeAll); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *ProductStore) Add(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return domain.ErrProductIDRequired
	}
	s.stage(productOpAdd, product)
	return nil
}

func (s *ProductStore) Update(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return domain.ErrProductIDRequired
	}
	s.stage(productOpUpdate, product)
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return domain.ErrProductIDRequired
	}
	s.stage(productOpDelete, product)
	return nil
}

// stage снимает копию агрегата на момент постановки: последующие мутации
// указателя не должны менять уже запланированную запись.
func (s *ProductStore) stage(kind productOpKind, product *domain.Product) {
	snapshot := *product
	snapshot.Variants = append([]domain.ProductVariant(nil), product.Variants...)
	snapshot.Images = append([]domain.ProductImage(nil), product.Images...)
	snapshot.Categories = append([]domain.ProductCategory(nil), product.Categories...)
	snapshot.ClearEvents()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, productOp{kind: kind, product: snapshot})
}

// Commit применяет pending-набор одной транзакцией. Набор сбрасывается
// до выполнения: после неудачного коммита операции нужно ставить заново.
func (s *ProductStore) Commit(ctx context.Context) error {
	s.mu.Lock()
	ops := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	txCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, op := range ops {
		switch op.kind {
		case productOpAdd:
			err = insertProduct(txCtx, tx, op.product)
		case productOpUpdate:
			err = updateProduct(txCtx, tx, op.product)
		case productOpDelete:
			err = deleteProduct(txCtx, tx, op.product.ID)
		default:
			err = fmt.Errorf("unsupported product op: %s", op.kind)
		}
		if err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit product ops: %w", err)
	}

	return nil
}

func (s *ProductStore) GetPaginated(ctx context.Context, req domain.ProductPageRequest) (*domain.ProductPage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var filter domain.ProductFilter
	if req.Filter != nil {
		filter = *req.Filter
	}
	where, args := buildProductFilter(filter)

	var total int64
	if err := s.db.QueryRowContext(queryCtx,
		`SELECT COUNT(*) FROM products p`+where, args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectProductSQL, where, orderByClause(req.OrderBy), len(args)+1, len(args)+2,
	)
	args = append(args, req.PageSize, req.Offset())

	rows, err := s.db.QueryContext(queryCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select product page: %w", err)
	}
	defer rows.Close()

	items, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	for _, product := range items {
		if err := s.loadCollections(queryCtx, product, req.Include); err != nil {
			return nil, err
		}
	}

	return &domain.ProductPage{
		Items:      items,
		TotalCount: total,
		PageIndex:  req.PageIndex,
		PageSize:   req.PageSize,
	}, nil
}

func (s *ProductStore) SearchProducts(ctx context.Context, term string) ([]*domain.Product, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(queryCtx, selectProductSQL+`
		WHERE p.active
		  AND (p.name ILIKE $1 OR p.description ILIKE $1 OR p.brand ILIKE $1 OR p.sku ILIKE $1)
		ORDER BY p.name ASC, p.id ASC
		LIMIT $2
	`, pattern, domain.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	items, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}

	for _, product := range items {
		if err := s.loadCollections(queryCtx, product, domain.IncludeAll); err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (s *ProductStore) GetStockLevels(ctx context.Context, ids []string) (map[string]int32, error) {
	levels := make(map[string]int32, len(ids))
	if len(ids) == 0 {
		return levels, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, `
		SELECT id, stock_quantity
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select stock levels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			qty int32
		)
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		levels[id] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock levels: %w", err)
	}

	return levels, nil
}

const selectProductSQL = `
	SELECT p.id, p.name, p.description, p.brand, p.sku,
	       p.price_minor, p.stock_quantity, p.active,
	       p.version, p.created_at, p.updated_at
	FROM products p
`

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID, &product.Name, &product.Description, &product.Brand, &product.SKU,
		&product.PriceMinor, &product.StockQuantity, &product.Active,
		&product.Version, &product.CreatedAt, &product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func scanProducts(rows *sql.Rows) ([]*domain.Product, error) {
	items := make([]*domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		items = append(items, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return items, nil
}

func (s *ProductStore) loadCollections(ctx context.Context, product *domain.Product, include domain.ProductInclude) error {
	if include.Has(domain.IncludeVariants) {
		if err := s.loadVariants(ctx, product); err != nil {
			return err
		}
	}
	if include.Has(domain.IncludeImages) {
		if err := s.loadImages(ctx, product); err != nil {
			return err
		}
	}
	if include.Has(domain.IncludeCategories) {
		if err := s.loadCategories(ctx, product); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductStore) loadVariants(ctx context.Context, product *domain.Product) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, name, value, price_adjustment_minor
		FROM product_variants
		WHERE product_id = $1
		ORDER BY position ASC
	`, product.ID)
	if err != nil {
		return fmt.Errorf("load product variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ProductID, &v.Name, &v.Value, &v.PriceAdjustmentMinor); err != nil {
			return fmt.Errorf("scan product variant: %w", err)
		}
		product.Variants = append(product.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product variants: %w", err)
	}
	return nil
}

func (s *ProductStore) loadImages(ctx context.Context, product *domain.Product) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, is_main
		FROM product_images
		WHERE product_id = $1
		ORDER BY position ASC
	`, product.ID)
	if err != nil {
		return fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.URL, &img.IsMain); err != nil {
			return fmt.Errorf("scan product image: %w", err)
		}
		product.Images = append(product.Images, img)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product images: %w", err)
	}
	return nil
}

func (s *ProductStore) loadCategories(ctx context.Context, product *domain.Product) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, category_name
		FROM product_categories
		WHERE product_id = $1
		ORDER BY position ASC
	`, product.ID)
	if err != nil {
		return fmt.Errorf("load product categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.ProductCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return fmt.Errorf("scan product category: %w", err)
		}
		product.Categories = append(product.Categories, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product categories: %w", err)
	}
	return nil
}

func insertProduct(ctx context.Context, tx *sql.Tx, product domain.Product) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, brand, sku,
			price_minor, stock_quantity, active,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		product.ID, product.Name, product.Description, product.Brand, product.SKU,
		product.PriceMinor, product.StockQuantity, product.Active,
		product.Version, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		switch uniqueConstraint(err) {
		case "products_sku_key":
			return domain.ErrDuplicateSKU
		case "products_pkey":
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return writeProductCollections(ctx, tx, product)
}

func updateProduct(ctx context.Context, tx *sql.Tx, product domain.Product) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    brand = $3,
		    sku = $4,
		    price_minor = $5,
		    stock_quantity = $6,
		    active = $7,
		    version = version + 1,
		    updated_at = $8
		WHERE id = $9
		  AND version = $10
	`,
		product.Name, product.Description, product.Brand, product.SKU,
		product.PriceMinor, product.StockQuantity, product.Active,
		product.UpdatedAt, product.ID, product.Version,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	if err := clearProductCollections(ctx, tx, product.ID); err != nil {
		return err
	}
	return writeProductCollections(ctx, tx, product)
}

func deleteProduct(ctx context.Context, tx *sql.Tx, id string) error {
	if err := clearProductCollections(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func clearProductCollections(ctx context.Context, tx *sql.Tx, productID string) error {
	for _, table := range []string{"product_variants", "product_images", "product_categories"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE product_id = $1", table), productID,
		); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func writeProductCollections(ctx context.Context, tx *sql.Tx, product domain.Product) error {
	for pos, v := range product.Variants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_variants (product_id, position, name, value, price_adjustment_minor)
			VALUES ($1,$2,$3,$4,$5)
		`, product.ID, pos, v.Name, v.Value, v.PriceAdjustmentMinor); err != nil {
			return fmt.Errorf("insert product variant: %w", err)
		}
	}

	for pos, img := range product.Images {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_images (product_id, position, url, is_main)
			VALUES ($1,$2,$3,$4)
		`, product.ID, pos, img.URL, img.IsMain); err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	for pos, c := range product.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_categories (product_id, position, category_id, category_name)
			VALUES ($1,$2,$3,$4)
		`, product.ID, pos, c.ID, c.Name); err != nil {
			return fmt.Errorf("insert product category: %w", err)
		}
	}

	return nil
}

func buildProductFilter(filter domain.ProductFilter) (string, []any) {
	clauses := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if filter.Brand != "" {
		args = append(args, filter.Brand)
		clauses = append(clauses, fmt.Sprintf("p.brand = $%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = $%d)",
			len(args),
		))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "p.active")
	}
	if filter.MinPriceMinor > 0 {
		args = append(args, filter.MinPriceMinor)
		clauses = append(clauses, fmt.Sprintf("p.price_minor >= $%d", len(args)))
	}
	if filter.MaxPriceMinor > 0 {
		args = append(args, filter.MaxPriceMinor)
		clauses = append(clauses, fmt.Sprintf("p.price_minor <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func orderByClause(orderBy domain.ProductOrderBy) string {
	switch orderBy {
	case domain.OrderByPriceAsc:
		return "p.price_minor ASC, p.id ASC"
	case domain.OrderByPriceDesc:
		return "p.price_minor DESC, p.id ASC"
	case domain.OrderByNewest:
		return "p.created_at DESC, p.id DESC"
	default:
		return "p.name ASC, p.id ASC"
	}
}

var _ domain.ProductRepository = (*ProductStore)(nil)
