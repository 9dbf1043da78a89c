package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tarjuman/order-service/internal/duitku"
	"github.com/tarjuman/order-service/internal/notify"
	"github.com/tarjuman/order-service/internal/pricing"
	"github.com/tarjuman/order-service/internal/promo"
)

var (
	ErrNoFiles                 = errors.New("order must contain at least one file")
	ErrInvalidPageCount        = errors.New("file page count must be greater than zero")
	ErrHardCopyAddressRequired = errors.New("hard copy orders require a shipping address")
	ErrNotOwner                = errors.New("order does not belong to the requesting user")
	ErrAlreadyPaid             = errors.New("order is already paid")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// PromoRejectedError reports why a submitted promo code could not be applied
// at order creation.
type PromoRejectedError struct {
	Code   string
	Reason promo.RejectReason
}

func (e *PromoRejectedError) Error() string {
	return fmt.Sprintf("promo code %q rejected: %s", e.Code, e.Reason)
}

// Gateway is the slice of the payment gateway the lifecycle needs.
type Gateway interface {
	RequestTransaction(ctx context.Context, req duitku.TransactionRequest) (*duitku.TransactionResponse, error)
}

type FileInput struct {
	Path      string
	PageCount int
}

// CreateInput deliberately has no price field: the price is always
// recomputed server-side from pages, tier and promo, so a tampered
// client-side total can never reach the database.
type CreateInput struct {
	UserID          uuid.UUID
	Files           []FileInput
	UrgencyDays     int
	HardCopy        bool
	HardCopyAddress string
	PromoCode       string
}

type PaymentInput struct {
	OrderID       uuid.UUID
	UserID        uuid.UUID
	PaymentMethod string
	Email         string
	CustomerName  string
	PhoneNumber   string
}

// PaymentSession is what the checkout page needs to send the buyer to the
// gateway.
type PaymentSession struct {
	Reference  string `json:"reference"`
	PaymentURL string `json:"payment_url"`
	VANumber   string `json:"va_number,omitempty"`
	QRString   string `json:"qr_string,omitempty"`
	Amount     int64  `json:"amount"`
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Order, error)
	Get(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error)
	InitiatePayment(ctx context.Context, input PaymentInput) (*PaymentSession, error)
	ProcessCallback(ctx context.Context, params duitku.CallbackParams) error
	UploadDraft(ctx context.Context, orderID uuid.UUID, filePath string, pageCount int) error
	Finalize(ctx context.Context, orderID uuid.UUID, filePath string) error
	AdminUpdate(ctx context.Context, orderID uuid.UUID, update AdminUpdate) error
}

type service struct {
	repo      Repository
	promoRepo promo.Repository
	gateway   Gateway
	notifier  notify.Notifier
}

func NewService(repo Repository, promoRepo promo.Repository, gateway Gateway, notifier notify.Notifier) Service {
	return &service{
		repo:      repo,
		promoRepo: promoRepo,
		gateway:   gateway,
		notifier:  notifier,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	if len(input.Files) == 0 {
		return nil, ErrNoFiles
	}
	if input.HardCopy && input.HardCopyAddress == "" {
		return nil, ErrHardCopyAddressRequired
	}

	totalPages := 0
	files := make([]OrderFile, 0, len(input.Files))
	for _, f := range input.Files {
		if f.PageCount <= 0 {
			return nil, fmt.Errorf("service: %w: %s", ErrInvalidPageCount, f.Path)
		}
		totalPages += f.PageCount
		files = append(files, OrderFile{
			FilePath:  f.Path,
			FileType:  FileSource,
			PageCount: f.PageCount,
		})
	}

	discountPercent := 0
	var redeemID uuid.UUID
	if input.PromoCode != "" {
		p, reason, err := s.checkPromo(ctx, input.PromoCode)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			return nil, &PromoRejectedError{Code: promo.Normalize(input.PromoCode), Reason: reason}
		}
		discountPercent = p.DiscountPercent
		redeemID = p.ID
	}

	originalPrice := pricing.ComputePrice(totalPages, input.UrgencyDays, input.HardCopy, 0)
	finalPrice := pricing.ComputePrice(totalPages, input.UrgencyDays, input.HardCopy, discountPercent)

	address := ""
	if input.HardCopy {
		address = input.HardCopyAddress
	}

	o := &Order{
		UserID:             input.UserID,
		Status:             StatusPaymentPending,
		PaymentStatus:      PaymentUnpaid,
		Files:              files,
		UrgencyDays:        input.UrgencyDays,
		PhysicalCopy:       input.HardCopy,
		HardCopyAddress:    address,
		PageCountEstimated: totalPages,
		OriginalPrice:      originalPrice,
		FinalPrice:         finalPrice,
		Currency:           "IDR",
	}

	if redeemID != uuid.Nil {
		if err := s.promoRepo.Redeem(ctx, redeemID); err != nil {
			if errors.Is(err, promo.ErrQuotaExhausted) {
				return nil, &PromoRejectedError{Code: promo.Normalize(input.PromoCode), Reason: promo.ReasonQuotaExhausted}
			}
			return nil, fmt.Errorf("service: failed to redeem promo code: %w", err)
		}
	}

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("user_id", input.UserID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", o.UserID).
		Int("pages", totalPages).
		Int64("final_price", finalPrice).
		Msg("Order created")

	return o, nil
}

func (s *service) checkPromo(ctx context.Context, code string) (*promo.PromoCode, promo.RejectReason, error) {
	p, err := s.promoRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, promo.ErrPromoNotFound) {
			return nil, promo.ReasonNotFound, nil
		}
		return nil, "", fmt.Errorf("service: failed to look up promo code: %w", err)
	}
	if reason := promo.Usable(p, time.Now()); reason != "" {
		return nil, reason, nil
	}
	return p, "", nil
}

func (s *service) Get(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	if !isAdmin && o.UserID != requesterID {
		return nil, ErrNotOwner
	}

	return o, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) InitiatePayment(ctx context.Context, input PaymentInput) (*PaymentSession, error) {
	o, err := s.Get(ctx, input.OrderID, input.UserID, false)
	if err != nil {
		return nil, err
	}

	if o.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}

	resp, err := s.gateway.RequestTransaction(ctx, duitku.TransactionRequest{
		OrderID:        o.ID.String(),
		Amount:         o.FinalPrice,
		PaymentMethod:  input.PaymentMethod,
		ProductDetails: fmt.Sprintf("Document translation (%d pages)", o.PageCountEstimated),
		Email:          input.Email,
		CustomerName:   input.CustomerName,
		PhoneNumber:    input.PhoneNumber,
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: gateway transaction request failed")
		return nil, err
	}

	if err := s.repo.SetPaymentPending(ctx, o.ID, resp.Reference); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Str("reference", resp.Reference).Msg("service: failed to store gateway reference")
		return nil, fmt.Errorf("service: failed to store gateway reference: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("reference", resp.Reference).Msg("Payment initiated")

	return &PaymentSession{
		Reference:  resp.Reference,
		PaymentURL: resp.PaymentURL,
		VANumber:   resp.VANumber,
		QRString:   resp.QRString,
		Amount:     o.FinalPrice,
	}, nil
}

// ProcessCallback applies a signature-verified gateway callback. Errors are
// for the caller's log only: the HTTP handler answers 200 to the gateway
// regardless, to stop its retry storm.
func (s *service) ProcessCallback(ctx context.Context, params duitku.CallbackParams) error {
	orderID, err := uuid.FromString(params.MerchantOrderID)
	if err != nil {
		return fmt.Errorf("service: callback carries malformed order id %q: %w", params.MerchantOrderID, err)
	}

	if !params.Paid() {
		log.Info().
			Str("result_code", params.ResultCode).
			Stringer("order_id", orderID).
			Msg("Callback with non-success result code, no mutation")
		return nil
	}

	transitioned, err := s.repo.MarkPaid(ctx, orderID, params.Reference)
	if err != nil {
		return fmt.Errorf("service: failed to apply paid transition: %w", err)
	}

	if !transitioned {
		// Gateway retry: the order is already paid. No duplicate timeline
		// entry, no duplicate email.
		log.Info().Stringer("order_id", orderID).Msg("Callback for already-paid order ignored")
		return nil
	}

	if err := s.repo.AppendTimeline(ctx, orderID, StatusProcessing, "payment received"); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to append timeline entry")
	}

	log.Info().Stringer("order_id", orderID).Str("reference", params.Reference).Msg("Order paid, now processing")

	s.notifyOwner(ctx, orderID, func(name string) notify.Email {
		return notify.OrderProcessingEmail(name, orderID.String())
	})

	return nil
}

func (s *service) UploadDraft(ctx context.Context, orderID uuid.UUID, filePath string, pageCount int) error {
	file := &OrderFile{
		OrderID:   orderID,
		FilePath:  filePath,
		FileType:  FileWatermarked,
		PageCount: pageCount,
	}
	if err := s.repo.AddFile(ctx, file); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to record draft file")
		return fmt.Errorf("service: failed to record draft file: %w", err)
	}

	if err := s.changeStatus(ctx, orderID, StatusReview, "draft uploaded"); err != nil {
		return err
	}

	s.notifyOwner(ctx, orderID, func(name string) notify.Email {
		return notify.DraftReadyEmail(name, orderID.String())
	})

	return nil
}

func (s *service) Finalize(ctx context.Context, orderID uuid.UUID, filePath string) error {
	file := &OrderFile{
		OrderID:  orderID,
		FilePath: filePath,
		FileType: FileFinal,
	}
	if err := s.repo.AddFile(ctx, file); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to record final file")
		return fmt.Errorf("service: failed to record final file: %w", err)
	}

	if err := s.changeStatus(ctx, orderID, StatusCompleted, "final documents delivered"); err != nil {
		return err
	}

	s.notifyOwner(ctx, orderID, func(name string) notify.Email {
		return notify.OrderCompletedEmail(name, orderID.String())
	})

	return nil
}

// AdminUpdate is the externally triggered correction path: it may set
// fields and status without the pipeline transition check.
func (s *service) AdminUpdate(ctx context.Context, orderID uuid.UUID, update AdminUpdate) error {
	if err := s.repo.UpdateAdminFields(ctx, orderID, update); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to apply admin update")
		return fmt.Errorf("service: failed to apply admin update: %w", err)
	}

	if update.Status != nil {
		if err := s.repo.AppendTimeline(ctx, orderID, *update.Status, "admin correction"); err != nil {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to append timeline entry")
		}
	}

	return nil
}

func (s *service) changeStatus(ctx context.Context, orderID uuid.UUID, newStatus Status, notes string) error {
	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if current.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("Order status already set, no update needed")
		return nil
	}

	if !CanTransition(current.Status, newStatus) {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("service: %w: %s -> %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.repo.UpdateStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	if err := s.repo.AppendTimeline(ctx, orderID, newStatus, notes); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to append timeline entry")
	}

	log.Info().Stringer("order_id", orderID).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("Order status updated")
	return nil
}

// notifyOwner dispatches a status email best-effort: lookup or send
// failures are logged and never roll back the transition that triggered
// them.
func (s *service) notifyOwner(ctx context.Context, orderID uuid.UUID, build func(name string) notify.Email) {
	contact, err := s.repo.OwnerContact(ctx, orderID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to resolve owner contact for notification")
		return
	}

	name := contact.FullName
	if name == "" {
		name = "User"
	}

	email := build(name)
	if err := s.notifier.Send(ctx, contact.Email, name, email.Subject, email.HTML); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("to", contact.Email).Msg("Failed to send notification email")
	}
}
