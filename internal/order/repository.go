package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

// Contact identifies the order owner for notification dispatch.
type Contact struct {
	Email    string
	FullName string
}

// AdminUpdate carries the fields the admin correction path may change.
// Nil fields are left untouched.
type AdminUpdate struct {
	Status            *Status
	PageCountVerified *int
	FinalPrice        *int64
}

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error
	SetPaymentPending(ctx context.Context, id uuid.UUID, reference string) error
	MarkPaid(ctx context.Context, id uuid.UUID, reference string) (bool, error)
	AddFile(ctx context.Context, file *OrderFile) error
	UpdateAdminFields(ctx context.Context, id uuid.UUID, update AdminUpdate) error
	AppendTimeline(ctx context.Context, id uuid.UUID, status Status, notes string) error
	OwnerContact(ctx context.Context, id uuid.UUID) (*Contact, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

// Create inserts the order, its source files and the first timeline entry in
// one transaction, so a file-insert failure can never leave an orphaned
// order behind.
func (r *postgresRepository) Create(ctx context.Context, orderInput *Order) (err error) {
	if orderInput.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order ID: %w", genErr)
		}
		orderInput.ID = genID
	}

	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", orderInput.ID).Msg("Panic recovered during order create, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderInput.ID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			log.Warn().Err(err).Stringer("order_id", orderInput.ID).Msg("Order create transaction failed, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", orderInput.ID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	now := time.Now().UTC()
	orderInput.CreatedAt = now
	orderInput.UpdatedAt = now

	queryOrder := `
		INSERT INTO orders (id, user_id, status, payment_status, urgency_days, physical_copy, hard_copy_address,
			page_count_estimated, original_price, final_price, currency, duitku_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.Exec(ctx, queryOrder,
		orderInput.ID,
		orderInput.UserID,
		string(orderInput.Status),
		string(orderInput.PaymentStatus),
		orderInput.UrgencyDays,
		orderInput.PhysicalCopy,
		orderInput.HardCopyAddress,
		orderInput.PageCountEstimated,
		orderInput.OriginalPrice,
		orderInput.FinalPrice,
		orderInput.Currency,
		orderInput.DuitkuReference,
		orderInput.CreatedAt,
		orderInput.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	queryFile := `
		INSERT INTO order_files (id, order_id, file_path, file_type, page_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range orderInput.Files {
		file := &orderInput.Files[i]

		fileID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order file ID: %w", genErr)
		}
		file.ID = fileID
		file.OrderID = orderInput.ID
		file.UploadedAt = now

		_, err = tx.Exec(ctx, queryFile,
			file.ID,
			file.OrderID,
			file.FilePath,
			string(file.FileType),
			file.PageCount,
			file.UploadedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order file for order %s: %w", orderInput.ID, err)
		}
	}

	queryTimeline := `
		INSERT INTO order_timeline (id, order_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	timelineID, genErr := uuid.NewV4()
	if genErr != nil {
		return fmt.Errorf("repository: failed to generate timeline ID: %w", genErr)
	}
	_, err = tx.Exec(ctx, queryTimeline, timelineID, orderInput.ID, string(orderInput.Status), "order created", now)
	if err != nil {
		return fmt.Errorf("repository: failed to insert timeline entry for order %s: %w", orderInput.ID, err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT id, user_id, status, payment_status, urgency_days, physical_copy, hard_copy_address,
			page_count_estimated, page_count_verified, original_price, final_price, currency,
			duitku_reference, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, queryOrder, id).Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.PaymentStatus,
		&o.UrgencyDays,
		&o.PhysicalCopy,
		&o.HardCopyAddress,
		&o.PageCountEstimated,
		&o.PageCountVerified,
		&o.OriginalPrice,
		&o.FinalPrice,
		&o.Currency,
		&o.DuitkuReference,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	files, err := r.filesByOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Files = files

	return &o, nil
}

func (r *postgresRepository) filesByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderFile, error) {
	query := `
		SELECT id, order_id, file_path, file_type, page_count, uploaded_at
		FROM order_files
		WHERE order_id = $1
		ORDER BY uploaded_at
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order files for order %s: %w", orderID, err)
	}
	defer rows.Close()

	files := make([]OrderFile, 0)
	for rows.Next() {
		var f OrderFile
		if err := rows.Scan(&f.ID, &f.OrderID, &f.FilePath, &f.FileType, &f.PageCount, &f.UploadedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order file for order %s: %w", orderID, err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order files for order %s: %w", orderID, err)
	}

	return files, nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT id, user_id, status, payment_status, urgency_days, physical_copy, hard_copy_address,
			page_count_estimated, page_count_verified, original_price, final_price, currency,
			duitku_reference, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID,
			&o.UserID,
			&o.Status,
			&o.PaymentStatus,
			&o.UrgencyDays,
			&o.PhysicalCopy,
			&o.HardCopyAddress,
			&o.PageCountEstimated,
			&o.PageCountVerified,
			&o.OriginalPrice,
			&o.FinalPrice,
			&o.Currency,
			&o.DuitkuReference,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user %s: %w", userID, err)
		}
		o.Files = make([]OrderFile, 0)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user %s: %w", userID, err)
	}

	return orders, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status) error {
	query := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	cmdTag, err := r.db.Exec(ctx, query, string(newStatus), time.Now().UTC(), id)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", id).Stringer("new_status", newStatus).Msg("repository: failed to update order status")
		return fmt.Errorf("repository: failed to update order status %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) SetPaymentPending(ctx context.Context, id uuid.UUID, reference string) error {
	query := `
		UPDATE orders
		SET payment_status = $1, duitku_reference = $2, updated_at = $3
		WHERE id = $4 AND payment_status <> $5
	`

	cmdTag, err := r.db.Exec(ctx, query, string(PaymentPending), reference, time.Now().UTC(), id, string(PaymentPaid))
	if err != nil {
		return fmt.Errorf("repository: failed to set payment pending for order %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// MarkPaid applies the paid transition at most once. The conditional UPDATE
// makes a retried gateway callback a no-op: the second call reports
// transitioned=false and the caller skips timeline and notification.
func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, reference string) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = $1, status = $2, duitku_reference = $3, updated_at = $4
		WHERE id = $5 AND payment_status <> $1
	`

	cmdTag, err := r.db.Exec(ctx, query, string(PaymentPaid), string(StatusProcessing), reference, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		// Already paid, or unknown order. Distinguish for the caller's log.
		var exists bool
		if scanErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); scanErr != nil {
			return false, fmt.Errorf("repository: failed to check order %s existence: %w", id, scanErr)
		}
		if !exists {
			return false, ErrOrderNotFound
		}
		return false, nil
	}

	return true, nil
}

func (r *postgresRepository) AddFile(ctx context.Context, file *OrderFile) error {
	if file.ID == uuid.Nil {
		genID, genErr := uuid.NewV4()
		if genErr != nil {
			return fmt.Errorf("repository: failed to generate order file ID: %w", genErr)
		}
		file.ID = genID
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO order_files (id, order_id, file_path, file_type, page_count, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query, file.ID, file.OrderID, file.FilePath, string(file.FileType), file.PageCount, file.UploadedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert file for order %s: %w", file.OrderID, err)
	}

	return nil
}

func (r *postgresRepository) UpdateAdminFields(ctx context.Context, id uuid.UUID, update AdminUpdate) error {
	query := `
		UPDATE orders
		SET status = COALESCE($1, status),
			page_count_verified = COALESCE($2, page_count_verified),
			final_price = COALESCE($3, final_price),
			updated_at = $4
		WHERE id = $5
	`

	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	cmdTag, err := r.db.Exec(ctx, query, status, update.PageCountVerified, update.FinalPrice, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update admin fields for order %s: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) AppendTimeline(ctx context.Context, id uuid.UUID, status Status, notes string) error {
	timelineID, genErr := uuid.NewV4()
	if genErr != nil {
		return fmt.Errorf("repository: failed to generate timeline ID: %w", genErr)
	}

	query := `
		INSERT INTO order_timeline (id, order_id, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query, timelineID, id, string(status), notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to append timeline entry for order %s: %w", id, err)
	}

	return nil
}

func (r *postgresRepository) OwnerContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	query := `
		SELECT p.email, p.full_name
		FROM orders o
		JOIN profiles p ON p.id = o.user_id
		WHERE o.id = $1
	`

	var c Contact
	err := r.db.QueryRow(ctx, query, id).Scan(&c.Email, &c.FullName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select owner contact for order %s: %w", id, err)
	}

	return &c, nil
}
