package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/lib/pq"
	"github.com/safar/storefront-api/internal/apperr"
	"github.com/safar/storefront-api/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, purchase_price, sale_price, margin, stock, is_visible, images, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.PurchasePrice,
		&product.SalePrice,
		&product.Margin,
		&product.Stock,
		&product.IsVisible,
		pq.Array(&product.Images),
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

type CreateProductParams struct {
	Name          string
	Description   string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	Stock         int
	IsVisible     *bool
	Images        []string
}

func CreateProduct(ctx context.Context, db *sql.DB, params CreateProductParams) (*models.Product, error) {
	if params.Name == "" {
		return nil, apperr.Validationf("product name is required")
	}
	if params.Stock < 0 {
		return nil, apperr.Validationf("product stock must not be negative")
	}

	visible := true
	if params.IsVisible != nil {
		visible = *params.IsVisible
	}
	images := params.Images
	if images == nil {
		images = []string{}
	}
	margin := params.SalePrice.Sub(params.PurchasePrice)

	query := `
		INSERT INTO products (id, name, description, purchase_price, sale_price, margin, stock, is_visible, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		newID(), params.Name, params.Description, params.PurchasePrice,
		params.SalePrice, margin, params.Stock, visible, pq.Array(images)))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	return getProduct(ctx, db, id)
}

func getProduct(ctx context.Context, q querier, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product not found")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// ListProducts pages through the catalog, newest first. search matches the
// name as a substring; visible filters on is_visible and is how the public
// catalog hides unlisted products.
func ListProducts(ctx context.Context, db *sql.DB, page, limit int, search string, visible *bool) (*OffsetPage, error) {
	where := ""
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		where = " WHERE name ILIKE $" + strconv.Itoa(len(args))
	}
	if visible != nil {
		args = append(args, *visible)
		if where == "" {
			where = " WHERE"
		} else {
			where += " AND"
		}
		where += " is_visible = $" + strconv.Itoa(len(args))
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(products, total, page, limit), nil
}

type UpdateProductParams struct {
	Name          *string
	Description   *string
	PurchasePrice *decimal.Decimal
	SalePrice     *decimal.Decimal
	Stock         *int
	IsVisible     *bool
	Images        []string
}

// UpdateProduct applies the non-nil fields. Margin is recomputed whenever
// either price changes.
func UpdateProduct(ctx context.Context, db *sql.DB, id string, params UpdateProductParams) (*models.Product, error) {
	product, err := GetProduct(ctx, db, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		product.Name = *params.Name
	}
	if params.Description != nil {
		product.Description = *params.Description
	}
	if params.PurchasePrice != nil {
		product.PurchasePrice = *params.PurchasePrice
	}
	if params.SalePrice != nil {
		product.SalePrice = *params.SalePrice
	}
	if params.Stock != nil {
		if *params.Stock < 0 {
			return nil, apperr.Validationf("product stock must not be negative")
		}
		product.Stock = *params.Stock
	}
	if params.IsVisible != nil {
		product.IsVisible = *params.IsVisible
	}
	if params.Images != nil {
		product.Images = params.Images
	}

	if params.PurchasePrice != nil || params.SalePrice != nil {
		product.Margin = product.SalePrice.Sub(product.PurchasePrice)
	}

	query := `
		UPDATE products
		SET name = $1, description = $2, purchase_price = $3, sale_price = $4,
		    margin = $5, stock = $6, is_visible = $7, images = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING ` + productColumns

	updated, err := scanProduct(db.QueryRowContext(ctx, query,
		product.Name, product.Description, product.PurchasePrice, product.SalePrice,
		product.Margin, product.Stock, product.IsVisible, pq.Array(product.Images), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product not found")
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return updated, nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperr.NotFoundf("product not found")
	}

	return nil
}

func UpdateProductVisibility(ctx context.Context, db *sql.DB, id string, visible bool) (*models.Product, error) {
	query := `
		UPDATE products
		SET is_visible = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, visible, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product not found")
		}
		return nil, fmt.Errorf("update product visibility: %w", err)
	}

	return product, nil
}

// UpdateProductStock sets the absolute stock level (admin restock), unlike
// the relative adjustments the order workflow makes.
func UpdateProductStock(ctx context.Context, db *sql.DB, id string, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, apperr.Validationf("product stock must not be negative")
	}

	query := `
		UPDATE products
		SET stock = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, stock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product not found")
		}
		return nil, fmt.Errorf("update product stock: %w", err)
	}

	return product, nil
}

func AddProductImage(ctx context.Context, db *sql.DB, id string, imagePath string) (*models.Product, error) {
	query := `
		UPDATE products
		SET images = array_append(images, $1), updated_at = NOW()
		WHERE id = $2
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, imagePath, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFoundf("product not found")
		}
		return nil, fmt.Errorf("add product image: %w", err)
	}

	return product, nil
}

// decrementStock is the only place order fulfillment touches inventory.
// The conditional UPDATE makes check and decrement one atomic statement,
// so two concurrent fulfillments of the same product cannot oversell no
// matter the isolation level. Zero rows affected means the product either
// vanished or lacks stock; the follow-up read tells the two apart.
func decrementStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var name string
		err := tx.QueryRowContext(ctx, `SELECT name FROM products WHERE id = $1`, productID).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFoundf("product %s not found", productID)
		}
		if err != nil {
			return fmt.Errorf("check product %s: %w", productID, err)
		}
		return apperr.Conflictf("insufficient stock for product %s", name)
	}

	return nil
}
