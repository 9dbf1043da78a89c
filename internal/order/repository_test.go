package order_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarjuman/order-service/internal/order"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	host := os.Getenv("DB_HOST")
	if host != "" {
		connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host,
			envOr("DB_PORT", "5432"),
			envOr("DB_USER", "postgres"),
			envOr("DB_PASSWORD", "postgres"),
			envOr("DB_NAME", "tarjuman_test"),
			envOr("DB_SSLMODE", "disable"),
		)

		pool, err := pgxpool.New(context.Background(), connStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
			os.Exit(1)
		}
		testPool = pool
	}

	exitCode := m.Run()

	if testPool != nil {
		testPool.Close()
	}
	os.Exit(exitCode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRepo(t *testing.T) order.Repository {
	if testPool == nil {
		t.Skip("DB_HOST not set, skipping repository integration tests")
	}

	truncate := func() {
		_, err := testPool.Exec(context.Background(),
			"TRUNCATE TABLE order_timeline, order_files, orders, profiles CASCADE")
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(truncate)

	return order.NewRepository(testPool)
}

func insertProfile(t *testing.T) uuid.UUID {
	id := uuid.Must(uuid.NewV4())
	_, err := testPool.Exec(context.Background(), `
		INSERT INTO profiles (id, email, full_name, role, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, 'user', '', now(), now())
	`, id, fmt.Sprintf("user-%s@example.com", id), "Test User")
	require.NoError(t, err)
	return id
}

func newTestOrder(userID uuid.UUID) *order.Order {
	return &order.Order{
		UserID:             userID,
		Status:             order.StatusPaymentPending,
		PaymentStatus:      order.PaymentUnpaid,
		UrgencyDays:        9,
		PageCountEstimated: 10,
		OriginalPrice:      750000,
		FinalPrice:         750000,
		Currency:           "IDR",
		Files: []order.OrderFile{
			{FilePath: "uploads/a.pdf", FileType: order.FileSource, PageCount: 6},
			{FilePath: "uploads/b.pdf", FileType: order.FileSource, PageCount: 4},
		},
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	userID := insertProfile(t)
	ctx := context.Background()

	o := newTestOrder(userID)
	require.NoError(t, repo.Create(ctx, o))
	require.NotEqual(t, uuid.Nil, o.ID)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, order.StatusPaymentPending, got.Status)
	assert.Equal(t, order.PaymentUnpaid, got.PaymentStatus)
	assert.Equal(t, int64(750000), got.FinalPrice)
	require.Len(t, got.Files, 2)
	assert.Equal(t, order.FileSource, got.Files[0].FileType)
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.GetByID(context.Background(), uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepositoryMarkPaidIdempotent(t *testing.T) {
	repo := setupRepo(t)
	userID := insertProfile(t)
	ctx := context.Background()

	o := newTestOrder(userID)
	require.NoError(t, repo.Create(ctx, o))

	transitioned, err := repo.MarkPaid(ctx, o.ID, "DK-REF-1")
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Gateway retry: must be a no-op, not a second transition.
	transitioned, err = repo.MarkPaid(ctx, o.ID, "DK-REF-1")
	require.NoError(t, err)
	assert.False(t, transitioned)

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)
	assert.Equal(t, order.StatusProcessing, got.Status)
	assert.Equal(t, "DK-REF-1", got.DuitkuReference)

	_, err = repo.MarkPaid(ctx, uuid.Must(uuid.NewV4()), "DK-REF-2")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestRepositoryListByUser(t *testing.T) {
	repo := setupRepo(t)
	userID := insertProfile(t)
	otherID := insertProfile(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newTestOrder(userID)))
	require.NoError(t, repo.Create(ctx, newTestOrder(userID)))
	require.NoError(t, repo.Create(ctx, newTestOrder(otherID)))

	orders, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = repo.ListByUser(ctx, uuid.Must(uuid.NewV4()))
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestRepositoryAdminFieldsAndTimeline(t *testing.T) {
	repo := setupRepo(t)
	userID := insertProfile(t)
	ctx := context.Background()

	o := newTestOrder(userID)
	require.NoError(t, repo.Create(ctx, o))

	pages := 12
	price := int64(900000)
	status := order.StatusProcessing
	require.NoError(t, repo.UpdateAdminFields(ctx, o.ID, order.AdminUpdate{
		Status:            &status,
		PageCountVerified: &pages,
		FinalPrice:        &price,
	}))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PageCountVerified)
	assert.Equal(t, 12, *got.PageCountVerified)
	assert.Equal(t, int64(900000), got.FinalPrice)
	assert.Equal(t, order.StatusProcessing, got.Status)

	require.NoError(t, repo.AppendTimeline(ctx, o.ID, order.StatusReview, "draft uploaded"))

	var timelineCount int
	require.NoError(t, testPool.QueryRow(ctx,
		"SELECT count(*) FROM order_timeline WHERE order_id = $1", o.ID).Scan(&timelineCount))
	// One entry from Create plus the one appended above.
	assert.Equal(t, 2, timelineCount)
}

func TestRepositoryOwnerContact(t *testing.T) {
	repo := setupRepo(t)
	userID := insertProfile(t)
	ctx := context.Background()

	o := newTestOrder(userID)
	require.NoError(t, repo.Create(ctx, o))

	contact, err := repo.OwnerContact(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", contact.FullName)
	assert.Contains(t, contact.Email, "@example.com")
}
