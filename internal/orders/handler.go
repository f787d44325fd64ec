package orders

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/pricing"
	"restoran-pos/internal/validation"
)

// IdempotencyHeader carries the client's retry token. It wins over clientRequestId.
const IdempotencyHeader = "Idempotency-Key"

type addOnRequest struct {
	Name     string           `json:"name" validate:"required,max=100"`
	Price    *decimal.Decimal `json:"price"`
	Quantity int              `json:"quantity" validate:"gte=0"`
}

type itemRequest struct {
	MenuItem            uint             `json:"menuItem" validate:"required"`
	Quantity            int              `json:"quantity" validate:"required,min=1"`
	Variant             string           `json:"variant" validate:"max=100"`
	Price               *decimal.Decimal `json:"price"`
	AddOns              []addOnRequest   `json:"addOns" validate:"omitempty,dive"`
	SpecialInstructions string           `json:"specialInstructions" validate:"max=500"`
}

type customerRequest struct {
	Name  string `json:"name" validate:"max=100"`
	Phone string `json:"phone" validate:"max=30"`
	Email string `json:"email" validate:"omitempty,email"`
}

type discountRequest struct {
	Type   string          `json:"type" validate:"required,discount"`
	Value  decimal.Decimal `json:"value"`
	Reason string          `json:"reason" validate:"max=255"`
}

type CreateOrderRequest struct {
	ClientRequestID   string           `json:"clientRequestId" validate:"max=100"`
	OrderType         string           `json:"orderType" validate:"required,ordertype"`
	Table             *uint            `json:"table"`
	Waiter            *uint            `json:"waiter"`
	Customer          *customerRequest `json:"customer"`
	Items             []itemRequest    `json:"items" validate:"required,min=1,dive"`
	Discount          *discountRequest `json:"discount"`
	TaxRate           *decimal.Decimal `json:"taxRate"`
	ServiceChargeRate *decimal.Decimal `json:"serviceChargeRate"`
	DeliveryCharge    decimal.Decimal  `json:"deliveryCharge"`
	DeliveryAddress   string           `json:"deliveryAddress" validate:"max=500"`
	Notes             string           `json:"notes" validate:"max=1000"`
}

func (r CreateOrderRequest) input(key string) CreateInput {
	in := CreateInput{
		IdempotencyKey:    key,
		OrderType:         models.OrderType(r.OrderType),
		TableID:           r.Table,
		WaiterID:          r.Waiter,
		TaxRate:           r.TaxRate,
		ServiceChargeRate: r.ServiceChargeRate,
		DeliveryCharge:    r.DeliveryCharge,
		DeliveryAddress:   r.DeliveryAddress,
		Notes:             r.Notes,
	}
	if r.Customer != nil {
		in.Customer = &Customer{Name: r.Customer.Name, Phone: r.Customer.Phone, Email: r.Customer.Email}
	}
	if r.Discount != nil {
		in.Discount = &pricing.Discount{
			Type:   models.DiscountType(r.Discount.Type),
			Value:  r.Discount.Value,
			Reason: r.Discount.Reason,
		}
	}
	in.Items = make([]pricing.Line, 0, len(r.Items))
	for _, it := range r.Items {
		line := pricing.Line{
			MenuItemID:          it.MenuItem,
			Quantity:            it.Quantity,
			Variant:             it.Variant,
			Price:               it.Price,
			SpecialInstructions: it.SpecialInstructions,
		}
		for _, a := range it.AddOns {
			line.AddOns = append(line.AddOns, pricing.AddOn{Name: a.Name, Price: a.Price, Quantity: a.Quantity})
		}
		in.Items = append(in.Items, line)
	}
	return in
}

type statusRequest struct {
	Status string `json:"status" validate:"required,orderstatus"`
	Reason string `json:"reason" validate:"max=255"`
}

type itemStatusRequest struct {
	Status string `json:"status" validate:"required,itemstatus"`
}

type paymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method" validate:"required,paymethod"`
	TransactionID string          `json:"transactionId" validate:"max=100"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

// ActorFrom builds the Actor for the authenticated request.
func ActorFrom(c *fiber.Ctx) (Actor, error) {
	u, ok := auth.CurrentUser(c)
	if !ok {
		return Actor{}, apperr.Unauthorized("not authenticated")
	}
	return Actor{UserID: u.ID, Name: u.Name, Role: u.Role}, nil
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return uint(id), nil
}

func paramIndex(c *fiber.Ctx) (int, error) {
	idx, err := c.ParamsInt("itemIndex")
	if err != nil || idx < 0 {
		return 0, apperr.Validation("invalid item index")
	}
	return idx, nil
}

// POST /orders
func CreateHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		var body CreateOrderRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}

		key := strings.TrimSpace(c.Get(IdempotencyHeader))
		if key == "" {
			key = strings.TrimSpace(body.ClientRequestID)
		}

		res, err := svc.Create(c.UserContext(), actor, body.input(key))
		if err != nil {
			return err
		}
		status := fiber.StatusCreated
		if res.Replayed {
			status = fiber.StatusOK
		}
		return c.Status(status).JSON(fiber.Map{
			"order":            res.Order,
			"idempotentReplay": res.Replayed,
		})
	}
}

func parseTime(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func optionalUint(c *fiber.Ctx, key string) (*uint, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	n := c.QueryInt(key, -1)
	if n <= 0 {
		return nil, apperr.Validationf("invalid %s", key)
	}
	u := uint(n)
	return &u, nil
}

// GET /orders?status=pending,confirmed&orderType=&table=&waiter=&from=&to=&page=&limit=
func ListHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}

		var f ListFilter
		for _, s := range strings.Split(c.Query("status"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Statuses = append(f.Statuses, models.OrderStatus(s))
			}
		}
		f.OrderType = models.OrderType(c.Query("orderType"))
		if f.TableID, err = optionalUint(c, "table"); err != nil {
			return err
		}
		if f.WaiterID, err = optionalUint(c, "waiter"); err != nil {
			return err
		}
		if f.From, err = parseTime(c.Query("from"), false); err != nil {
			return apperr.Validation("from must be YYYY-MM-DD or RFC3339")
		}
		if f.To, err = parseTime(c.Query("to"), true); err != nil {
			return apperr.Validation("to must be YYYY-MM-DD or RFC3339")
		}

		f.Page = c.QueryInt("page", 1)
		if f.Page < 1 {
			f.Page = 1
		}
		f.Limit = c.QueryInt("limit", 20)
		if f.Limit < 1 || f.Limit > 100 {
			f.Limit = 20
		}

		list, total, err := svc.List(c.UserContext(), actor, f)
		if err != nil {
			return err
		}
		if list == nil {
			list = []models.Order{}
		}
		pages := (total + int64(f.Limit) - 1) / int64(f.Limit)
		return c.JSON(fiber.Map{
			"orders": list,
			"pagination": fiber.Map{
				"page":  f.Page,
				"limit": f.Limit,
				"total": total,
				"pages": pages,
			},
		})
	}
}

// GET /orders/:id
func GetHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		o, err := svc.Get(c.UserContext(), actor, id)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// PATCH /orders/:id/status
func UpdateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body statusRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		o, err := svc.UpdateStatus(c.UserContext(), actor, id, models.OrderStatus(body.Status), body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// PATCH /orders/:id/items/:itemIndex/status
func UpdateItemStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		idx, err := paramIndex(c)
		if err != nil {
			return err
		}
		var body itemStatusRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		o, err := svc.UpdateItemStatus(c.UserContext(), actor, id, idx, models.ItemStatus(body.Status), RollUpReadyOrServed)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// POST /orders/:id/payments
func AddPaymentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body paymentRequest
		if err := validation.BindJSON(c, &body); err != nil {
			return err
		}
		o, err := svc.AddPayment(c.UserContext(), actor, id, PaymentInput{
			Amount:        body.Amount,
			Method:        body.Method,
			TransactionID: body.TransactionID,
		})
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}

// DELETE /orders/:id cancels; the reason comes from the body or ?reason=.
func CancelHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := ActorFrom(c)
		if err != nil {
			return err
		}
		id, err := paramID(c, "id")
		if err != nil {
			return err
		}
		var body cancelRequest
		if len(c.Body()) > 0 {
			if err := validation.BindJSON(c, &body); err != nil {
				return err
			}
		}
		if body.Reason == "" {
			body.Reason = c.Query("reason")
		}
		o, err := svc.Cancel(c.UserContext(), actor, id, body.Reason)
		if err != nil {
			return err
		}
		return c.JSON(o)
	}
}
