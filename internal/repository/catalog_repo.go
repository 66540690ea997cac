package repository

import (
	"context"

	"magirls/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogRepository reads and writes products, variants and their barcodes.
// Lookups only ever see active products and variants.
type CatalogRepository interface {
	FindByCode(ctx context.Context, code string) (*model.VariantSnapshot, error)
	FindItem(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error)
	ListItems(ctx context.Context) ([]model.InventoryItem, error)
	ListLowStock(ctx context.Context, threshold int) ([]model.InventoryItem, error)
	CodesForVariant(ctx context.Context, variantID uuid.UUID) ([]string, error)

	// CreateProduct inserts the product together with its variants.
	CreateProduct(ctx context.Context, p *model.Product) error
	CreateBarcode(ctx context.Context, b *model.VariantBarcode) error
	// FindVariant loads a variant and its product regardless of active state.
	FindVariant(ctx context.Context, variantID uuid.UUID) (*model.ProductVariant, error)
	SaveProduct(ctx context.Context, p *model.Product) error
	SaveVariant(ctx context.Context, v *model.ProductVariant) error
	// DeactivateVariant soft-deletes a variant and reports whether its product
	// was deactivated too because no active variant remained.
	DeactivateVariant(ctx context.Context, variantID uuid.UUID) (bool, error)
}

type catalogRepo struct{ db *gorm.DB }

func NewCatalogRepository(db *gorm.DB) CatalogRepository { return &catalogRepo{db: db} }

const variantNameExpr = `COALESCE(pv.variant_name, NULLIF(CONCAT_WS(' / ', pv.color, pv.size), ''))`

const primaryCodeExpr = `(
	SELECT bv.barcode_code
	FROM barcode_variants bv
	WHERE bv.variant_id = pv.id
	ORDER BY bv.is_primary DESC, bv.created_at ASC
	LIMIT 1
)`

const itemSelect = `
	SELECT pv.id AS variant_id,
	       p.id AS product_id,
	       p.name AS product_name,
	       ` + variantNameExpr + ` AS variant_name,
	       p.brand, p.category, p.description, p.photo_url,
	       pv.color, pv.size, pv.location,
	       pv.sale_price, pv.purchase_price,
	       COALESCE(vs.qty_on_hand, 0) AS qty_on_hand,
	       ` + primaryCodeExpr + ` AS primary_code
	FROM product_variants pv
	JOIN products p ON p.id = pv.product_id
	LEFT JOIN v_variant_stock vs ON vs.variant_id = pv.id
	WHERE p.is_active = TRUE AND pv.is_active = TRUE`

func (r *catalogRepo) FindByCode(ctx context.Context, code string) (*model.VariantSnapshot, error) {
	var rows []model.VariantSnapshot
	err := getDB(ctx, r.db).Raw(`
		SELECT bv.barcode_code AS code,
		       pv.id AS variant_id,
		       p.name AS product_name,
		       `+variantNameExpr+` AS variant_name,
		       pv.sale_price,
		       pv.purchase_price,
		       COALESCE(vs.qty_on_hand, 0) AS qty_on_hand
		FROM barcode_variants bv
		JOIN product_variants pv ON pv.id = bv.variant_id
		JOIN products p ON p.id = pv.product_id
		LEFT JOIN v_variant_stock vs ON vs.variant_id = pv.id
		WHERE bv.barcode_code = ? AND p.is_active = TRUE AND pv.is_active = TRUE
		LIMIT 1`, code).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *catalogRepo) FindItem(ctx context.Context, variantID uuid.UUID) (*model.InventoryItem, error) {
	var rows []model.InventoryItem
	err := getDB(ctx, r.db).Raw(itemSelect+` AND pv.id = ? LIMIT 1`, variantID).Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

func (r *catalogRepo) ListItems(ctx context.Context) ([]model.InventoryItem, error) {
	var rows []model.InventoryItem
	err := getDB(ctx, r.db).Raw(itemSelect + ` ORDER BY p.name ASC, variant_name ASC`).Scan(&rows).Error
	return rows, translateError(err)
}

func (r *catalogRepo) ListLowStock(ctx context.Context, threshold int) ([]model.InventoryItem, error) {
	var rows []model.InventoryItem
	err := getDB(ctx, r.db).Raw(itemSelect+`
		AND COALESCE(vs.qty_on_hand, 0) <= ?
		ORDER BY qty_on_hand ASC, p.name ASC`, threshold).
		Scan(&rows).Error
	return rows, translateError(err)
}

func (r *catalogRepo) CodesForVariant(ctx context.Context, variantID uuid.UUID) ([]string, error) {
	var codes []string
	err := getDB(ctx, r.db).Model(&model.VariantBarcode{}).
		Where("variant_id = ?", variantID).
		Pluck("barcode_code", &codes).Error
	return codes, translateError(err)
}

func (r *catalogRepo) CreateProduct(ctx context.Context, p *model.Product) error {
	return translateError(getDB(ctx, r.db).Create(p).Error)
}

func (r *catalogRepo) CreateBarcode(ctx context.Context, b *model.VariantBarcode) error {
	return translateError(getDB(ctx, r.db).Create(b).Error)
}

func (r *catalogRepo) FindVariant(ctx context.Context, variantID uuid.UUID) (*model.ProductVariant, error) {
	var v model.ProductVariant
	if err := getDB(ctx, r.db).Preload("Product").First(&v, "id = ?", variantID).Error; err != nil {
		return nil, translateError(err)
	}
	return &v, nil
}

func (r *catalogRepo) SaveProduct(ctx context.Context, p *model.Product) error {
	return translateError(getDB(ctx, r.db).Omit("Variants").Save(p).Error)
}

func (r *catalogRepo) SaveVariant(ctx context.Context, v *model.ProductVariant) error {
	return translateError(getDB(ctx, r.db).Omit("Product").Save(v).Error)
}

func (r *catalogRepo) DeactivateVariant(ctx context.Context, variantID uuid.UUID) (bool, error) {
	db := getDB(ctx, r.db)
	var v model.ProductVariant
	if err := db.First(&v, "id = ?", variantID).Error; err != nil {
		return false, translateError(err)
	}
	if err := db.Model(&v).Update("is_active", false).Error; err != nil {
		return false, translateError(err)
	}

	var remaining int64
	err := db.Model(&model.ProductVariant{}).
		Where("product_id = ? AND is_active = TRUE", v.ProductID).
		Count(&remaining).Error
	if err != nil {
		return false, translateError(err)
	}
	if remaining > 0 {
		return false, nil
	}
	err = db.Model(&model.Product{}).Where("id = ?", v.ProductID).Update("is_active", false).Error
	return err == nil, translateError(err)
}
