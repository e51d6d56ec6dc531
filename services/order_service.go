package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/stickerhub/sticker-shop-api/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CheckoutRequest carries the payment choice and contact details of a checkout
type CheckoutRequest struct {
	PaymentMethod string
	FullName      string
	Email         string
	PickupDate    string
	PickupTime    string
}

// CheckoutResult is a placed order and, for stripe, the hosted checkout page to redirect to
type CheckoutResult struct {
	Order       *models.Order
	RedirectURL string
}

// OrderResult is an order after a transition. Warnings list side effects that
// failed after the transition was committed.
type OrderResult struct {
	Order    *models.Order
	Warnings []string
}

// OrderQuery selects a page of placed orders
type OrderQuery struct {
	Page   int
	Limit  int
	Status string
	UserID *uint
}

// OrderService moves orders through checkout, payment and fulfilment
type OrderService struct {
	db       *gorm.DB
	ledger   *StockLedger
	catalog  *CatalogService
	gateway  PaymentGateway
	notifier *Notifier
	baseURL  string
}

// NewOrderService creates an order service. catalog, gateway and notifier may be nil;
// without a gateway stripe checkouts are rejected. The catalog's cached listings are
// dropped whenever an order moves stock.
func NewOrderService(db *gorm.DB, ledger *StockLedger, catalog *CatalogService, gateway PaymentGateway, notifier *Notifier, baseURL string) *OrderService {
	return &OrderService{
		db:       db,
		ledger:   ledger,
		catalog:  catalog,
		gateway:  gateway,
		notifier: notifier,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// Checkout moves the user's cart to pending (stripe) or unpaid (cash, tikkie).
// Nothing is written when the cart is empty, stock is short or the gateway fails.
func (s *OrderService) Checkout(ctx context.Context, userID uint, req CheckoutRequest) (*CheckoutResult, error) {
	if !models.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidMethod
	}

	db := s.db.WithContext(ctx)

	var cart models.Order
	err := db.Where("user_id = ? AND status = ?", userID, models.OrderStatusCart).First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	order, err := LoadOrder(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := s.ledger.CheckStock(db, order.ID); err != nil {
		return nil, err
	}

	details := models.PaymentDetails{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		PickupDate: req.PickupDate,
		PickupTime: req.PickupTime,
	}

	var (
		session     *CheckoutSession
		returnToken string
	)
	if req.PaymentMethod == models.PaymentMethodStripe {
		returnToken = uuid.NewString()
		session, err = s.createCheckoutSession(ctx, order, details.Email, returnToken)
		if err != nil {
			return nil, err
		}
		details.CheckoutURL = session.URL
	}

	status := models.AwaitingStatusFor(req.PaymentMethod)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous payment: %w", err)
		}

		payment := models.Payment{
			OrderID:       order.ID,
			PaymentMethod: req.PaymentMethod,
			Status:        status,
			ReturnToken:   returnToken,
			Details:       datatypes.NewJSONType(details),
		}
		if session != nil {
			payment.GatewaySessionID = &session.ID
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		return moveOrder(tx, order.ID, models.OrderStatusCart, status)
	})
	if err != nil {
		return nil, err
	}

	order, err = LoadOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{Order: order}
	if session != nil {
		result.RedirectURL = session.URL
	}
	return result, nil
}

// ConfirmPayment commits the stock of an order awaiting payment and moves it to the
// committed status of its payment method. Stripe orders need a paid gateway session.
// Confirming an order whose stock is already committed returns it unchanged.
func (s *OrderService) ConfirmPayment(ctx context.Context, userID, orderID uint, sessionID string) (*OrderResult, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.confirm(ctx, order, sessionID)
}

// ConfirmGatewayPayment finalizes a stripe order from the gateway's success redirect,
// which carries no bearer token. Knowing the order's checkout session ID stands in for
// the owner's credentials.
func (s *OrderService) ConfirmGatewayPayment(ctx context.Context, orderID uint, sessionID string) (*OrderResult, error) {
	if sessionID == "" {
		return nil, ErrPaymentNotConfirmed.WithMessage("Missing checkout session")
	}
	order, err := LoadOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	payment := order.Payment
	if payment == nil || payment.GatewaySessionID == nil ||
		subtle.ConstantTimeCompare([]byte(*payment.GatewaySessionID), []byte(sessionID)) != 1 {
		return nil, ErrOrderNotFound
	}
	return s.confirm(ctx, order, sessionID)
}

func (s *OrderService) confirm(ctx context.Context, order *models.Order, sessionID string) (*OrderResult, error) {
	if order.IsStockCommitted() {
		return &OrderResult{Order: order}, nil
	}
	if !models.IsAwaitingPayment(order.Status) || order.Payment == nil {
		return nil, ErrInvalidTransition.WithMessage("Order %d is not awaiting payment (status: %s)", order.ID, order.Status)
	}

	method := order.Payment.PaymentMethod
	if method == models.PaymentMethodStripe {
		if err := s.verifyGatewayPayment(ctx, order.ID, order.Payment, sessionID); err != nil {
			return nil, err
		}
	}

	committed := models.CommittedStatusFor(method)
	alreadyDone := false
	var categories []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := moveOrder(tx, order.ID, order.Status, committed); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				alreadyDone = true
			}
			return err
		}
		if err := s.ledger.CommitStock(tx, order); err != nil {
			return err
		}
		var err error
		if categories, err = stickerCategories(tx, order.ID); err != nil {
			return err
		}
		return setPaymentStatus(tx, order.ID, committed)
	})
	if err != nil {
		if !alreadyDone {
			return nil, err
		}
		// A concurrent confirmation won; report its result
		order, err = LoadOrder(ctx, s.db, order.ID)
		if err != nil {
			return nil, err
		}
		if !order.IsStockCommitted() {
			return nil, ErrInvalidTransition.WithMessage("Order %d is not awaiting payment (status: %s)", order.ID, order.Status)
		}
		return &OrderResult{Order: order}, nil
	}
	s.refreshCatalog(ctx, categories)

	order, err = LoadOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	result := &OrderResult{Order: order}
	if err := s.notifyOwner(order, "Order confirmation", confirmationMessage(order, method)); err != nil {
		log.Printf("Failed to queue confirmation email for order %d: %v", order.ID, err)
		result.Warnings = append(result.Warnings, "Confirmation email could not be sent")
	}
	return result, nil
}

// CancelPayment handles an abandoned checkout. The order goes back to being the
// user's cart, or is cancelled when the user already started a new cart.
func (s *OrderService) CancelPayment(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.cancelCheckout(ctx, order)
}

// CancelGatewayPayment handles the gateway's cancel redirect, which carries no bearer
// token. The return token generated at checkout authenticates it.
func (s *OrderService) CancelGatewayPayment(ctx context.Context, orderID uint, token string) (*models.Order, error) {
	if token == "" {
		return nil, ErrOrderNotFound
	}
	order, err := LoadOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil || order.Payment.ReturnToken == "" ||
		subtle.ConstantTimeCompare([]byte(order.Payment.ReturnToken), []byte(token)) != 1 {
		return nil, ErrOrderNotFound
	}
	return s.cancelCheckout(ctx, order)
}

func (s *OrderService) cancelCheckout(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.Status == models.OrderStatusCart {
		return order, nil
	}
	if !models.IsAwaitingPayment(order.Status) {
		return nil, ErrInvalidTransition.WithMessage("Order %d can no longer be cancelled (status: %s)", order.ID, order.Status)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openCarts int64
		if err := tx.Model(&models.Order{}).
			Where("user_id = ? AND status = ? AND id <> ?", order.UserID, models.OrderStatusCart, order.ID).
			Count(&openCarts).Error; err != nil {
			return fmt.Errorf("failed to check for open cart: %w", err)
		}

		if openCarts > 0 {
			if err := moveOrder(tx, order.ID, order.Status, models.OrderStatusCancelled); err != nil {
				return err
			}
			return setPaymentStatus(tx, order.ID, models.OrderStatusCancelled)
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Payment{}).Error; err != nil {
			return fmt.Errorf("failed to remove payment: %w", err)
		}
		return moveOrder(tx, order.ID, order.Status, models.OrderStatusCart)
	})
	if err != nil {
		return nil, err
	}

	return LoadOrder(ctx, s.db, order.ID)
}

// UpdateStatus applies an administrator's status change. Cancelling an order with
// committed stock puts the stock back. The change is recorded in the order's messages.
func (s *OrderService) UpdateStatus(ctx context.Context, adminID, orderID uint, status string) (*OrderResult, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsValidOrderStatus(status) {
		return nil, ErrInvalidStatus.WithMessage("Invalid status %q", status)
	}

	if status == models.OrderStatusCancelled {
		if err := s.expireCheckout(ctx, orderID); err != nil {
			return nil, err
		}
	}

	var (
		order      models.Order
		previous   string
		categories []string
		released   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			return notFoundOr(err, ErrOrderNotFound, "failed to load order")
		}
		previous = order.Status
		if !models.CanAdminTransition(order.Status, status) {
			return ErrInvalidTransition.WithMessage("Cannot change order status from %s to %s", order.Status, status)
		}

		if status == models.OrderStatusCancelled && order.IsStockCommitted() {
			var err error
			if categories, err = stickerCategories(tx, order.ID); err != nil {
				return err
			}
			if err := s.ledger.ReleaseStock(tx, &order); err != nil {
				return err
			}
			released = true
		}
		if err := moveOrder(tx, order.ID, order.Status, status); err != nil {
			return err
		}
		if err := setPaymentStatus(tx, order.ID, status); err != nil {
			return err
		}

		message := models.Message{
			OrderID:  order.ID,
			SenderID: adminID,
			Kind:     models.MessageKindStatus,
			Text:     fmt.Sprintf("Order status changed from %s to %s", previous, status),
		}
		if err := tx.Create(&message).Error; err != nil {
			return fmt.Errorf("failed to record status change: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if released {
		s.refreshCatalog(ctx, categories)
	}

	loaded, err := LoadOrder(ctx, s.db, order.ID)
	if err != nil {
		return nil, err
	}

	result := &OrderResult{Order: loaded}
	text := fmt.Sprintf("Your order #%d is now %s.", loaded.ID, status)
	if err := s.notifyOwner(loaded, fmt.Sprintf("Order #%d update", loaded.ID), text); err != nil {
		log.Printf("Failed to queue status email for order %d: %v", loaded.ID, err)
		result.Warnings = append(result.Warnings, "Status email could not be sent")
	}
	return result, nil
}

// ListOrders returns a page of placed orders, newest first, and the total count
func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	if q.Status != "" && (!models.IsValidOrderStatus(q.Status) || q.Status == models.OrderStatusCart) {
		return nil, 0, ErrInvalidStatus.WithMessage("Invalid status %q", q.Status)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}

	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("status <> ?", models.OrderStatusCart)
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orders := []models.Order{}
	if err := query.
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Sticker").
		Preload("Payment").
		Order("created_at DESC, id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// GetOrder returns an order to its owner or to an administrator
func (s *OrderService) GetOrder(ctx context.Context, orderID uint, user *models.User) (*models.Order, error) {
	order, err := LoadOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin && order.UserID != user.ID {
		return nil, ErrForbidden
	}
	return order, nil
}

// DeleteOrder removes an order with its lines, payment and messages.
// Stock committed to an order that was not finished is put back first.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) error {
	var (
		categories []string
		released   bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return notFoundOr(err, ErrOrderNotFound, "failed to load order")
		}

		if order.Status != models.OrderStatusFinished && order.IsStockCommitted() {
			var err error
			if categories, err = stickerCategories(tx, order.ID); err != nil {
				return err
			}
			if err := s.ledger.ReleaseStock(tx, &order); err != nil {
				return err
			}
			released = true
		}

		for _, model := range []interface{}{&models.Message{}, &models.Payment{}, &models.OrderItem{}} {
			if err := tx.Where("order_id = ?", order.ID).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete order %d: %w", order.ID, err)
			}
		}
		if err := tx.Delete(&order).Error; err != nil {
			return fmt.Errorf("failed to delete order %d: %w", order.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if released {
		s.refreshCatalog(ctx, categories)
	}
	return nil
}

func (s *OrderService) ownedOrder(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := LoadOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) createCheckoutSession(ctx context.Context, order *models.Order, email, returnToken string) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, ErrPaymentGateway.WithMessage("Card payments are not available")
	}

	items := make([]CheckoutLineItem, 0, len(order.Items))
	for _, item := range order.Items {
		line := CheckoutLineItem{UnitAmount: item.PriceAtTime, Quantity: item.Quantity}
		if item.Sticker != nil {
			line.Name = item.Sticker.Name
			line.Description = item.Sticker.Description
		}
		items = append(items, line)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		OrderID:       order.ID,
		CustomerEmail: email,
		Items:         items,
		SuccessURL:    fmt.Sprintf("%s/api/v1/checkout/success?order_id=%d&session_id={CHECKOUT_SESSION_ID}", s.baseURL, order.ID),
		CancelURL:     fmt.Sprintf("%s/api/v1/checkout/cancel?order_id=%d&token=%s", s.baseURL, order.ID, returnToken),
	})
	if err != nil {
		log.Printf("Failed to create checkout session for order %d: %v", order.ID, err)
		return nil, ErrPaymentGateway
	}
	return session, nil
}

func (s *OrderService) verifyGatewayPayment(ctx context.Context, orderID uint, payment *models.Payment, sessionID string) error {
	if payment.GatewaySessionID == nil {
		return ErrPaymentNotConfirmed.WithMessage("No checkout session for this order")
	}
	if sessionID != "" && sessionID != *payment.GatewaySessionID {
		return ErrPaymentNotConfirmed.WithMessage("Checkout session does not belong to this order")
	}
	if s.gateway == nil {
		return ErrPaymentGateway.WithMessage("Card payments are not available")
	}

	session, err := s.gateway.GetCheckoutSession(ctx, *payment.GatewaySessionID)
	if err != nil {
		log.Printf("Failed to fetch checkout session %s: %v", *payment.GatewaySessionID, err)
		return ErrPaymentGateway
	}
	if session.ClientReferenceID != strconv.FormatUint(uint64(orderID), 10) {
		log.Printf("Checkout session %s references order %q, expected %d", session.ID, session.ClientReferenceID, orderID)
		return ErrPaymentNotConfirmed.WithMessage("Checkout session does not belong to this order")
	}
	if !session.IsPaid() {
		return ErrPaymentNotConfirmed
	}
	return nil
}

// expireCheckout closes the open checkout session of a stripe order awaiting payment,
// so the customer cannot pay for an order that is being cancelled. A session that was
// already paid blocks the cancellation.
func (s *OrderService) expireCheckout(ctx context.Context, orderID uint) error {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Payment").First(&order, orderID).Error
	if err != nil {
		return notFoundOr(err, ErrOrderNotFound, "failed to load order")
	}
	payment := order.Payment
	if !models.IsAwaitingPayment(order.Status) || payment == nil ||
		payment.PaymentMethod != models.PaymentMethodStripe || payment.GatewaySessionID == nil {
		return nil
	}
	if s.gateway == nil {
		log.Printf("No payment gateway configured, checkout session %s of order %d stays open", *payment.GatewaySessionID, order.ID)
		return nil
	}

	sessionID := *payment.GatewaySessionID
	if _, err = s.gateway.ExpireCheckoutSession(ctx, sessionID); err == nil {
		return nil
	}
	log.Printf("Failed to expire checkout session %s of order %d: %v", sessionID, order.ID, err)

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	switch {
	case err != nil:
		log.Printf("Failed to fetch checkout session %s: %v", sessionID, err)
		return ErrPaymentGateway.WithMessage("Checkout session of order %d could not be closed", order.ID)
	case session.IsPaid():
		return ErrPaymentReceived.WithMessage("The customer already paid for order %d; confirm the payment instead", order.ID)
	case session.Status == GatewaySessionExpired:
		return nil
	default:
		return ErrPaymentGateway.WithMessage("Checkout session of order %d could not be closed", order.ID)
	}
}

// refreshCatalog drops cached listings after an order moved the stock of stickers in categories
func (s *OrderService) refreshCatalog(ctx context.Context, categories []string) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx, categories...)
	}
}

// stickerCategories returns the names of the categories of an order's stickers
func stickerCategories(tx *gorm.DB, orderID uint) ([]string, error) {
	var names []string
	err := tx.Model(&models.OrderItem{}).
		Joins("JOIN stickers ON stickers.id = order_items.sticker_id").
		Joins("JOIN categories ON categories.id = stickers.category_id").
		Where("order_items.order_id = ?", orderID).
		Distinct().
		Pluck("categories.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order categories: %w", err)
	}
	return names, nil
}

// notifyOwner emails the order's contact address, falling back to the owner's account email
func (s *OrderService) notifyOwner(order *models.Order, subject, message string) error {
	to := paymentEmail(order.Payment)
	if to == "" {
		var user models.User
		if err := s.db.Select("email").First(&user, order.UserID).Error; err != nil {
			return fmt.Errorf("failed to load order owner: %w", err)
		}
		to = user.Email
	}
	return s.notifier.Notify(to, subject, message)
}

// moveOrder changes an order's status only if it still has the expected status
func moveOrder(tx *gorm.DB, orderID uint, from, to string) error {
	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition.WithMessage("Order %d is no longer %s", orderID, from)
	}
	return nil
}

func setPaymentStatus(tx *gorm.DB, orderID uint, status string) error {
	if err := tx.Model(&models.Payment{}).Where("order_id = ?", orderID).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return nil
}

func paymentEmail(payment *models.Payment) string {
	if payment == nil {
		return ""
	}
	return payment.Details.Data().Email
}

func confirmationMessage(order *models.Order, method string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order #%d. ", order.ID)
	for _, item := range order.Items {
		name := fmt.Sprintf("sticker %d", item.StickerID)
		if item.Sticker != nil {
			name = item.Sticker.Name
		}
		fmt.Fprintf(&b, "%dx %s (%s). ", item.Quantity, name, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s. ", order.TotalPrice.StringFixed(2))
	switch method {
	case models.PaymentMethodCash:
		b.WriteString("Please pay in cash when you pick up your order.")
	case models.PaymentMethodTikkie:
		b.WriteString("You will receive a Tikkie payment request from us.")
	default:
		b.WriteString("Your payment has been received.")
	}
	return b.String()
}
