package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/thalesgaldino/silvershop-api/internal/domain"
)

// Postgres serves catalog lookups from a pgx pool. Concurrent identical
// product lookups are collapsed with singleflight; storefront pages fan
// out many resolutions for the same ids within one request burst.
type Postgres struct {
	pool *pgxpool.Pool
	sfg  singleflight.Group
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Product(ctx context.Context, id int64) (*domain.Product, error) {
	v, err, _ := p.sfg.Do("product:"+strconv.FormatInt(id, 10), func() (interface{}, error) {
		var (
			prod  domain.Product
			price string
		)
		row := p.pool.QueryRow(ctx,
			`SELECT id, title, price::text, available FROM products WHERE id = $1`, id)
		if err := row.Scan(&prod.ID, &prod.Title, &price, &prod.Available); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("query product %d failed: %w", id, err)
		}
		if !prod.Available {
			return nil, ErrNotFound
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse product price %q: %w", price, err)
		}
		prod.Price = d
		return &prod, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (p *Postgres) Variation(ctx context.Context, id int64) (*domain.Variation, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, product_id, title, price::text, attributes FROM variations WHERE id = $1`, id)
	return scanVariation(row)
}

func (p *Postgres) VariationByAttributes(ctx context.Context, productID int64, attrs map[string]string) (*domain.Variation, error) {
	wanted, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes failed: %w", err)
	}
	row := p.pool.QueryRow(ctx,
		`SELECT id, product_id, title, price::text, attributes
		   FROM variations
		  WHERE product_id = $1 AND attributes @> $2::jsonb
		  ORDER BY id
		  LIMIT 1`, productID, string(wanted))
	return scanVariation(row)
}

func scanVariation(row pgx.Row) (*domain.Variation, error) {
	var (
		v     domain.Variation
		price string
		attrs []byte
	)
	if err := row.Scan(&v.ID, &v.ProductID, &v.Title, &price, &attrs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query variation failed: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse variation price %q: %w", price, err)
	}
	v.Price = d
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &v.Attributes); err != nil {
			return nil, fmt.Errorf("parse variation attributes: %w", err)
		}
	}
	return &v, nil
}

func (p *Postgres) ByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var (
		c          domain.Coupon
		percent    string
		minSub     string
		validFrom  *time.Time
		validUntil *time.Time
	)
	row := p.pool.QueryRow(ctx,
		`SELECT code, percent::text, min_subtotal::text, active, valid_from, valid_until
		   FROM coupons
		  WHERE upper(code) = upper($1)`, code)
	if err := row.Scan(&c.Code, &percent, &minSub, &c.Active, &validFrom, &validUntil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query coupon failed: %w", err)
	}
	var err error
	if c.Percent, err = decimal.NewFromString(percent); err != nil {
		return nil, fmt.Errorf("parse coupon percent %q: %w", percent, err)
	}
	if c.MinSubTotal, err = decimal.NewFromString(minSub); err != nil {
		return nil, fmt.Errorf("parse coupon min subtotal %q: %w", minSub, err)
	}
	if validFrom != nil {
		c.ValidFrom = *validFrom
	}
	if validUntil != nil {
		c.ValidUntil = *validUntil
	}
	return &c, nil
}

func (p *Postgres) FirstForZone(ctx context.Context, zoneID int64) (*domain.ShippingRate, error) {
	var (
		r      domain.ShippingRate
		amount string
	)
	row := p.pool.QueryRow(ctx,
		`SELECT id, method_id, zone_id, title, amount::text
		   FROM shipping_rates
		  WHERE zone_id = $1 AND method_id <> 0
		  ORDER BY id
		  LIMIT 1`, zoneID)
	if err := row.Scan(&r.ID, &r.MethodID, &r.ZoneID, &r.Title, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query shipping rate failed: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse shipping amount %q: %w", amount, err)
	}
	r.Amount = d
	return &r, nil
}
