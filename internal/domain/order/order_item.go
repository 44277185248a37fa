package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// OrderLine is the input for one order line at checkout
type OrderLine struct {
	ProductID      uuid.UUID
	ProductName    string
	SKU            string
	UnitPrice      valueobject.Money
	Quantity       int
	CommissionRate decimal.Decimal // Merchant's platform rate at checkout, percent
}

// OrderItem is one purchased line of an order.
// Product name, SKU, price, and commission rate are snapshots taken at
// checkout so later catalog or merchant changes never alter the order.
type OrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	MerchantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	SKU              string          `gorm:"type:varchar(100)"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Quantity         int             `gorm:"not null"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // UnitPrice * Quantity
	CommissionRate   decimal.Decimal `gorm:"type:decimal(5,2);not null"`  // Percent
	CommissionAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Platform's cut of the line
	MerchantEarnings decimal.Decimal `gorm:"type:decimal(18,4);not null"` // LineTotal - CommissionAmount
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderItem creates an order item from a checkout line.
// The commission is rounded half-up to whole cents; the rounding remainder
// stays on the merchant side so the two parts always sum to the line total.
func NewOrderItem(orderID, merchantID uuid.UUID, line OrderLine) (*OrderItem, error) {
	if line.ProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if line.ProductName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if line.Quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if !line.UnitPrice.IsPositive() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price must be positive")
	}
	if line.CommissionRate.IsNegative() || line.CommissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_COMMISSION_RATE", "Commission rate must be between 0 and 100 percent")
	}

	lineTotal := line.UnitPrice.MultiplyByInt(int64(line.Quantity))
	commission := lineTotal.CalculatePercentage(line.CommissionRate).Round(2)
	earnings, err := lineTotal.Subtract(commission)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &OrderItem{
		ID:               uuid.New(),
		OrderID:          orderID,
		MerchantID:       merchantID,
		ProductID:        line.ProductID,
		ProductName:      line.ProductName,
		SKU:              line.SKU,
		UnitPrice:        line.UnitPrice.Amount(),
		Quantity:         line.Quantity,
		LineTotal:        lineTotal.Amount(),
		CommissionRate:   line.CommissionRate,
		CommissionAmount: commission.Amount(),
		MerchantEarnings: earnings.Amount(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// GetUnitPriceMoney returns the unit price as Money
func (i *OrderItem) GetUnitPriceMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.UnitPrice)
}

// GetLineTotalMoney returns the line total as Money
func (i *OrderItem) GetLineTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.LineTotal)
}

// GetCommissionMoney returns the platform's cut as Money
func (i *OrderItem) GetCommissionMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.CommissionAmount)
}

// GetMerchantEarningsMoney returns the merchant's share as Money
func (i *OrderItem) GetMerchantEarningsMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(i.MerchantEarnings)
}
