package grpcsvc

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/bookstore/internal/domain"
)

const (
	// MetadataUserID и MetadataUserRole передают актора вызова.
	MetadataUserID   = "x-user-id"
	MetadataUserRole = "x-user-role"
)

// Lifecycle выполняет административные операции над заказом.
type Lifecycle interface {
	CancelOrder(ctx context.Context, orderID string, actor domain.Actor, reason string) (domain.Order, error)
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus, message, trackingID string, actor domain.Actor) (domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID, provider, transactionID string, actor domain.Actor) (domain.Order, error)
}

// Reports — выборки для админки.
type Reports interface {
	ListOrders(ctx context.Context, actor domain.Actor, filter domain.OrderFilter, page domain.PageRequest) (domain.OrderPage, error)
	AdminStats(ctx context.Context, actor domain.Actor, window domain.DateRange) (domain.AdminStats, error)
}

// Inventory корректирует остатки.
type Inventory interface {
	AdjustStock(ctx context.Context, bookID string, deltaQuantity, deltaSales int64) (domain.Book, error)
}

// OrderAdmin реализует gRPC API для внутренних инструментов поверх сервисов заказа.
type OrderAdmin struct {
	lifecycle Lifecycle
	reports   Reports
	inventory Inventory
	logger    *log.Entry
}

var _ OrderAdminServer = (*OrderAdmin)(nil)

// NewOrderAdmin конструирует сервис с зависимостями.
func NewOrderAdmin(lc Lifecycle, reports Reports, inventory Inventory, logger *log.Entry) *OrderAdmin {
	if logger == nil {
		logger = log.WithField("component", "order-admin")
	}
	return &OrderAdmin{lifecycle: lc, reports: reports, inventory: inventory, logger: logger}
}

// CancelOrder отменяет заказ от имени владельца.
func (s *OrderAdmin) CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := s.lifecycle.CancelOrder(ctx, orderID, actor, stringField(req, "reason"))
	if err != nil {
		return nil, s.toStatus(err, "CancelOrder")
	}
	return newStruct(map[string]any{"order": orderValue(order)})
}

// SetOrderStatus выставляет статус заказа (только администратор).
func (s *OrderAdmin) SetOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}
	next, err := domain.ParseOrderStatus(stringField(req, "status"))
	if err != nil {
		return nil, s.toStatus(err, "SetOrderStatus")
	}

	order, err := s.lifecycle.SetOrderStatus(ctx, orderID, next, stringField(req, "message"), stringField(req, "tracking_id"), actor)
	if err != nil {
		return nil, s.toStatus(err, "SetOrderStatus")
	}
	return newStruct(map[string]any{"order": orderValue(order)})
}

// ConfirmPayment отмечает заказ оплаченным (только администратор).
func (s *OrderAdmin) ConfirmPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	orderID := stringField(req, "order_id")
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, err := s.lifecycle.ConfirmPayment(ctx, orderID, stringField(req, "provider"), stringField(req, "transaction_id"), actor)
	if err != nil {
		return nil, s.toStatus(err, "ConfirmPayment")
	}
	return newStruct(map[string]any{"order": orderValue(order)})
}

// ListOrders возвращает страницу заказов. Для покупателя выборка ограничена его заказами.
func (s *OrderAdmin) ListOrders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	filter := domain.OrderFilter{Search: stringField(req, "search")}
	if raw := stringField(req, "status"); raw != "" && raw != "all" {
		if filter.Status, err = domain.ParseOrderStatus(raw); err != nil {
			return nil, s.toStatus(err, "ListOrders")
		}
	}
	page := domain.PageRequest{Page: int(intField(req, "page")), Size: int(intField(req, "limit"))}

	result, err := s.reports.ListOrders(ctx, actor, filter, page)
	if err != nil {
		return nil, s.toStatus(err, "ListOrders")
	}
	return newStruct(orderPageValue(result))
}

// AdjustStock меняет остаток и счётчик продаж книги (только администратор).
func (s *OrderAdmin) AdjustStock(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, status.Error(codes.PermissionDenied, domain.ErrForbidden.Error())
	}
	bookID := stringField(req, "book_id")
	if bookID == "" {
		return nil, status.Error(codes.InvalidArgument, "book_id is required")
	}

	book, err := s.inventory.AdjustStock(ctx, bookID, intField(req, "delta_quantity"), intField(req, "delta_sales"))
	if err != nil {
		return nil, s.toStatus(err, "AdjustStock")
	}
	return newStruct(map[string]any{"book": bookValue(book)})
}

// GetAdminStats собирает сводку админки за окно [from, to).
func (s *OrderAdmin) GetAdminStats(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var window domain.DateRange
	if window.From, err = timeField(req, "from"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid from: %v", err)
	}
	if window.To, err = timeField(req, "to"); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid to: %v", err)
	}

	stats, err := s.reports.AdminStats(ctx, actor, window)
	if err != nil {
		return nil, s.toStatus(err, "GetAdminStats")
	}
	return newStruct(adminStatsValue(stats))
}

func (s *OrderAdmin) toStatus(err error, operation string) error {
	code := codeFor(err)
	if code == codes.Internal {
		s.logger.WithError(err).WithField("operation", operation).Error("Order admin call failed")
	}
	return status.Error(code, err.Error())
}

// codeFor сопоставляет доменную ошибку с кодом gRPC.
func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrActorRequired):
		return codes.Unauthenticated
	case domain.IsInventoryAdjustment(err):
		var adj *domain.InventoryAdjustmentError
		if errors.As(err, &adj) && adj.Compensated() {
			return codes.Aborted
		}
		return codes.DataLoss
	case domain.IsValidation(err):
		return codes.InvalidArgument
	case domain.IsForbidden(err):
		return codes.PermissionDenied
	case domain.IsNotFound(err):
		return codes.NotFound
	case domain.IsInvalidTransition(err), errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrInsufficientSales):
		return codes.FailedPrecondition
	case domain.IsVersionConflict(err):
		return codes.Aborted
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func actorFromContext(ctx context.Context) (domain.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, MetadataUserID+" metadata is required")
	}
	actor := domain.Actor{
		ID:   strings.TrimSpace(firstValue(md, MetadataUserID)),
		Role: domain.Role(strings.ToLower(strings.TrimSpace(firstValue(md, MetadataUserRole)))),
	}
	if actor.ID == "" {
		return domain.Actor{}, status.Error(codes.Unauthenticated, MetadataUserID+" metadata is required")
	}
	if actor.Role == "" {
		actor.Role = domain.RoleCustomer
	}
	if !actor.Role.Valid() {
		return domain.Actor{}, status.Errorf(codes.InvalidArgument, "unknown role %q", string(actor.Role))
	}
	return actor, nil
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

func stringField(s *structpb.Struct, key string) string {
	return strings.TrimSpace(s.GetFields()[key].GetStringValue())
}

func intField(s *structpb.Struct, key string) int64 {
	return int64(s.GetFields()[key].GetNumberValue())
}

func timeField(s *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(s, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}
