package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mpi-retail/mpi/internal/customers"
	"github.com/mpi-retail/mpi/internal/pricing"
	"github.com/mpi-retail/mpi/internal/shared"
)

// IdempotencyPort guards against duplicate sale submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// MetricsPort records pipeline outcomes.
type MetricsPort interface {
	SaleCommitted()
	SaleRolledBack()
	LowStockAlert()
}

// AuditPort records committed sales.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReportInvalidator drops cached reports for an outlet after a commit.
type ReportInvalidator interface {
	Bump(ctx context.Context, outletID int64) error
}

// Options tunes pipeline behaviour.
type Options struct {
	// AllowNegativeStock records a backorder instead of rejecting a sale
	// that exceeds available stock.
	AllowNegativeStock bool
	// OrderNumberRetries bounds how often a collided order-number insert is
	// retried before the submission fails.
	OrderNumberRetries int
}

// Service runs the sale commit pipeline.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	idem    IdempotencyPort
	audit   AuditPort
	metrics MetricsPort
	reports ReportInvalidator
	opts    Options
	now     func() time.Time
}

// NewService builds Service. idem, audit, metrics and reports may be nil;
// the corresponding side effects are then skipped.
func NewService(logger *slog.Logger, repo Repository, idem IdempotencyPort, audit AuditPort, metrics MetricsPort, reports ReportInvalidator, opts Options) *Service {
	if opts.OrderNumberRetries <= 0 {
		opts.OrderNumberRetries = 3
	}
	return &Service{
		logger:  logger,
		repo:    repo,
		idem:    idem,
		audit:   audit,
		metrics: metrics,
		reports: reports,
		opts:    opts,
		now:     time.Now,
	}
}

type lowStockAlert struct {
	materialID int64
	name       string
	qty        float64
	minStock   float64
}

// CreateSale validates and commits one POS order. Order-number assignment,
// the sale and item inserts, every stock deduction and the loyalty accrual
// happen in a single database transaction; any failure rolls all of it back
// and releases the idempotency key.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput, idemKey string) (*Transaction, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if idemKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "sales"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("sales: idempotency key %q already used: %w", idemKey, shared.ErrConflict)
			}
			return nil, err
		}
	}

	var (
		result *Transaction
		alerts []lowStockAlert
		err    error
	)
	for attempt := 0; attempt < s.opts.OrderNumberRetries; attempt++ {
		alerts = alerts[:0]
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			committed, txAlerts, commitErr := s.commit(ctx, tx, input)
			if commitErr != nil {
				return commitErr
			}
			result = committed
			alerts = txAlerts
			return nil
		})
		if err == nil || !errors.Is(err, shared.ErrConflict) {
			break
		}
		s.logger.Warn("sale commit conflict, retrying",
			slog.Int("attempt", attempt+1), slog.Int64("outlet_id", input.OutletID))
	}
	if err != nil && errors.Is(err, shared.ErrConflict) {
		err = fmt.Errorf("%w after %d attempts: %v", ErrOrderNumberExhausted, s.opts.OrderNumberRetries, err)
	}
	if err != nil {
		if idemKey != "" && s.idem != nil {
			if derr := s.idem.Delete(ctx, idemKey); derr != nil {
				s.logger.Error("failed to release idempotency key", slog.String("key", idemKey), slog.Any("error", derr))
			}
		}
		if s.metrics != nil {
			s.metrics.SaleRolledBack()
		}
		return nil, err
	}

	s.afterCommit(ctx, result, alerts)
	return result, nil
}

// commit executes pipeline steps inside the transaction and returns the
// persisted sale plus any low-stock observations for post-commit alerting.
func (s *Service) commit(ctx context.Context, tx TxRepository, input CreateSaleInput) (*Transaction, []lowStockAlert, error) {
	outlet, err := tx.GetOutlet(ctx, input.OutletID)
	if err != nil {
		return nil, nil, err
	}
	if !outlet.IsActive {
		return nil, nil, (&shared.ValidationError{}).Add("outlet_id", "outlet is inactive")
	}

	// Level snapshot. A walk-in sale has no customer and sells at base
	// price; a member sells at the level currently stored on their row, not
	// at whatever their balance would resolve to. Upgrades land after the
	// accrual below, so a ladder edit never silently reprices a sale into a
	// level the member does not hold yet.
	var (
		customer *CustomerRow
		level    *pricing.PriceLevel
		levels   []pricing.PriceLevel
	)
	if input.CustomerID != nil {
		customer, err = tx.GetCustomerForUpdate(ctx, *input.CustomerID)
		if err != nil {
			return nil, nil, err
		}
		if customer.OutletID != input.OutletID {
			return nil, nil, (&shared.ValidationError{}).Add("customer_id", "customer belongs to another outlet")
		}
		if !customer.IsActive {
			return nil, nil, (&shared.ValidationError{}).Add("customer_id", "customer is inactive")
		}
		levels, err = tx.GetPriceLevels(ctx, input.OutletID)
		if err != nil {
			return nil, nil, err
		}
		level = pricing.LevelByID(levels, customer.LevelID)
		if level == nil {
			// Unassigned member, or the stored level was removed from the
			// ladder. Fall back to balance resolution.
			level, err = pricing.ResolveLevel(levels, customer.Points)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	items, products, err := s.priceItems(ctx, tx, input, level)
	if err != nil {
		return nil, nil, err
	}

	var subtotal float64
	for _, it := range items {
		subtotal += it.LineTotal
	}
	subtotal = shared.Round2(subtotal)
	if input.Discount > subtotal+input.Tax {
		return nil, nil, (&shared.ValidationError{}).Add("discount", "exceeds subtotal plus tax")
	}
	total := shared.Round2(subtotal + input.Tax - input.Discount)

	var cashReceived, change float64
	if input.PaymentMethod == PayCash {
		cashReceived = input.CashReceived
		if cashReceived < total {
			return nil, nil, (&shared.ValidationError{}).Add("cash_received", "less than total")
		}
		change = shared.Round2(cashReceived - total)
	}

	// Points computation happens before persistence so a broken loyalty
	// config fails the sale instead of committing with wrong points.
	var points int64
	if customer != nil {
		cfg, err := tx.GetPointsConfig(ctx, input.OutletID)
		if err != nil {
			return nil, nil, err
		}
		points, err = pricing.PointsForSale(cfg, total)
		if err != nil {
			return nil, nil, err
		}
	}

	day := s.now().Format("20060102")
	seq, err := tx.NextOrderSeq(ctx, input.OutletID, day)
	if err != nil {
		return nil, nil, err
	}
	orderNumber := fmt.Sprintf("%s-%s-%04d", outlet.Code, day, seq)
	// Derived, not random: a replayed insert of the same order produces the
	// same reference.
	externalRef := uuid.NewSHA1(uuid.Nil, []byte("SALE:"+orderNumber)).String()

	sale := &Transaction{
		OrderNumber:   orderNumber,
		ExternalRef:   externalRef,
		OutletID:      input.OutletID,
		EmployeeID:    input.EmployeeID,
		CustomerID:    input.CustomerID,
		ShiftID:       input.ShiftID,
		PaymentMethod: input.PaymentMethod,
		Subtotal:      subtotal,
		Tax:           input.Tax,
		Discount:      input.Discount,
		Total:         total,
		CashReceived:  cashReceived,
		Change:        change,
		PointsEarned:  points,
		Note:          input.Note,
	}
	if level != nil {
		sale.LevelID = &level.ID
	}
	saleID, err := tx.InsertTransaction(ctx, sale)
	if err != nil {
		return nil, nil, err
	}
	sale.ID = saleID
	if err := tx.InsertItems(ctx, saleID, items); err != nil {
		return nil, nil, err
	}
	for i := range items {
		items[i].TransactionID = saleID
	}
	sale.Items = items

	alerts, err := s.deductStock(ctx, tx, input, products)
	if err != nil {
		return nil, nil, err
	}

	if customer != nil {
		// Lifetime spend accrues on every member sale, points only when the
		// loyalty config awards them.
		balance, err := tx.AccrueCustomer(ctx, customer.ID, points, total)
		if err != nil {
			return nil, nil, err
		}
		if points > 0 {
			if err := tx.AppendPointsEntry(ctx, customers.PointsEntry{
				CustomerID:   customer.ID,
				Delta:        points,
				BalanceAfter: balance,
				Reason:       customers.ReasonSale,
				SaleID:       &saleID,
			}); err != nil {
				return nil, nil, err
			}
			newLevel, err := pricing.ResolveLevel(levels, balance)
			if err != nil {
				return nil, nil, err
			}
			if newLevel.ID != customer.LevelID {
				if err := tx.SetCustomerLevel(ctx, customer.ID, newLevel.ID); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	return sale, alerts, nil
}

// priceItems snapshots names, prices and costs for each submitted line. The
// returned product map carries every product the sale touches, bundle
// components included, keyed by id for the stock pass.
func (s *Service) priceItems(ctx context.Context, tx TxRepository, input CreateSaleInput, level *pricing.PriceLevel) ([]TransactionItem, map[int64]*ProductRow, error) {
	items := make([]TransactionItem, 0, len(input.Items))
	products := map[int64]*ProductRow{}

	loadProduct := func(id int64) (*ProductRow, error) {
		if p, ok := products[id]; ok {
			return p, nil
		}
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.OutletID != input.OutletID {
			return nil, (&shared.ValidationError{}).Add("items", fmt.Sprintf("product %d belongs to another outlet", id))
		}
		products[id] = p
		return p, nil
	}

	for _, in := range input.Items {
		switch in.Kind {
		case KindProduct:
			p, err := loadProduct(in.RefID)
			if err != nil {
				return nil, nil, err
			}
			unitPrice := p.BasePrice
			if level != nil {
				if price, ok, err := tx.GetProductPrice(ctx, p.ID, level.ID); err != nil {
					return nil, nil, err
				} else if ok {
					unitPrice = price
				}
			}
			items = append(items, TransactionItem{
				Kind:      KindProduct,
				RefID:     p.ID,
				Name:      p.Name,
				Qty:       in.Qty,
				UnitPrice: unitPrice,
				UnitCost:  p.CostPrice,
				LineTotal: shared.Round2(unitPrice * in.Qty),
			})
		case KindBundle:
			b, err := tx.GetBundle(ctx, in.RefID)
			if err != nil {
				return nil, nil, err
			}
			if b.OutletID != input.OutletID {
				return nil, nil, (&shared.ValidationError{}).Add("items", fmt.Sprintf("bundle %d belongs to another outlet", in.RefID))
			}
			if len(b.Lines) == 0 {
				return nil, nil, (&shared.ValidationError{}).Add("items", fmt.Sprintf("bundle %d has no components", in.RefID))
			}
			var unitCost float64
			for _, line := range b.Lines {
				p, err := loadProduct(line.ProductID)
				if err != nil {
					return nil, nil, err
				}
				unitCost += p.CostPrice * line.Qty
			}
			items = append(items, TransactionItem{
				Kind:      KindBundle,
				RefID:     b.ID,
				Name:      b.Name,
				Qty:       in.Qty,
				UnitPrice: b.BundlePrice,
				UnitCost:  shared.Round2(unitCost),
				LineTotal: shared.Round2(b.BundlePrice * in.Qty),
			})
		}
	}
	return items, products, nil
}

// deductStock applies recipe-expanded deductions. Products with a recipe
// consume raw materials and tracked products consume their own stock; the
// two are independent, so a product flagged as both consumes both. Bundles
// expand into their component products first.
func (s *Service) deductStock(ctx context.Context, tx TxRepository, input CreateSaleInput, products map[int64]*ProductRow) ([]lowStockAlert, error) {
	// Aggregate quantity per product so one product appearing in several
	// lines deducts once with the summed quantity.
	perProduct := map[int64]float64{}
	for _, in := range input.Items {
		switch in.Kind {
		case KindProduct:
			perProduct[in.RefID] += in.Qty
		case KindBundle:
			b, err := tx.GetBundle(ctx, in.RefID)
			if err != nil {
				return nil, err
			}
			for _, line := range b.Lines {
				perProduct[line.ProductID] += line.Qty * in.Qty
			}
		}
	}

	var alerts []lowStockAlert
	for productID, qty := range perProduct {
		p := products[productID]
		if p == nil {
			loaded, err := tx.GetProduct(ctx, productID)
			if err != nil {
				return nil, err
			}
			p = loaded
		}
		if p.HasRecipe {
			lines, err := tx.GetRecipeLines(ctx, productID)
			if err != nil {
				return nil, err
			}
			for _, line := range lines {
				res, err := tx.DecrementMaterialStock(ctx, line.RawMaterialID, line.Qty*qty, s.opts.AllowNegativeStock)
				if err != nil {
					return nil, err
				}
				if res.NewQty < res.MinStock {
					alerts = append(alerts, lowStockAlert{
						materialID: line.RawMaterialID,
						name:       res.Name,
						qty:        res.NewQty,
						minStock:   res.MinStock,
					})
				}
			}
		}
		if p.TrackInventory && p.StockQty != nil {
			if _, err := tx.DecrementProductStock(ctx, productID, qty, s.opts.AllowNegativeStock); err != nil {
				return nil, err
			}
		}
	}
	return alerts, nil
}

// afterCommit runs the side effects that must not abort a committed sale.
func (s *Service) afterCommit(ctx context.Context, sale *Transaction, alerts []lowStockAlert) {
	if s.metrics != nil {
		s.metrics.SaleCommitted()
	}
	for _, a := range alerts {
		if s.metrics != nil {
			s.metrics.LowStockAlert()
		}
		s.logger.Warn("raw material below minimum stock",
			slog.Int64("material_id", a.materialID),
			slog.String("name", a.name),
			slog.Float64("stock_qty", a.qty),
			slog.Float64("min_stock", a.minStock))
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  sale.EmployeeID,
			Action:   "sale.commit",
			Entity:   "sale",
			EntityID: strconv.FormatInt(sale.ID, 10),
			Meta: map[string]any{
				"order_number":  sale.OrderNumber,
				"total":         sale.Total,
				"points_earned": sale.PointsEarned,
			},
		}); err != nil {
			s.logger.Warn("audit write failed", slog.Any("error", err))
		}
	}
	if s.reports != nil {
		if err := s.reports.Bump(ctx, sale.OutletID); err != nil {
			s.logger.Warn("report cache invalidation failed", slog.Any("error", err))
		}
	}
	s.logger.Info("sale committed",
		slog.String("order_number", sale.OrderNumber),
		slog.Int64("outlet_id", sale.OutletID),
		slog.Float64("total", sale.Total))
}

// GetSale returns a transaction hydrated with its items.
func (s *Service) GetSale(ctx context.Context, id int64) (*Transaction, error) {
	sale, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetTransactionItems(ctx, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

// ListSales returns an outlet's transactions in [from, to).
func (s *Service) ListSales(ctx context.Context, outletID int64, from, to time.Time) ([]Transaction, error) {
	if !from.Before(to) {
		return nil, (&shared.ValidationError{}).Add("to", "must be after from")
	}
	return s.repo.ListTransactions(ctx, outletID, from, to)
}
