package model

import (
	"time"
)

type OrderStatus string   // 주문 상태 코드
type PaymentStatus string // 결제 상태 코드
type PaymentMethod string // 결제 수단

const (
	OrderStatusPending    OrderStatus = "pending"    // 주문 접수
	OrderStatusProcessing OrderStatus = "processing" // 상품 준비 중
	OrderStatusShipped    OrderStatus = "shipped"    // 배송 중
	OrderStatusCompleted  OrderStatus = "completed"  // 구매 완료
	OrderStatusCancelled  OrderStatus = "cancelled"  // 주문 취소

	PaymentStatusPending       PaymentStatus = "pending"        // 결제 대기 (현장/착불)
	PaymentStatusPendingIntent PaymentStatus = "pending_intent" // 외부 결제 승인 대기
	PaymentStatusCompleted     PaymentStatus = "completed"      // 결제 완료
	PaymentStatusFailed        PaymentStatus = "failed"         // 결제 실패
	PaymentStatusRefunded      PaymentStatus = "refunded"       // 환불 완료

	PaymentMethodCash     PaymentMethod = "cash"     // 현금 (착불)
	PaymentMethodKakaoPay PaymentMethod = "kakaopay" // 카카오페이 (외부 결제)
)

// IsValid reports whether m is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodKakaoPay
}

// IsExternal reports whether the method goes through an external processor.
func (m PaymentMethod) IsExternal() bool {
	return m == PaymentMethodKakaoPay
}

type Order struct {
	ID                  uint          `gorm:"primarykey" json:"id"`                                                    // 주문 ID
	OrderNumber         string        `gorm:"type:varchar(36);uniqueIndex;not null" json:"order_number"`               // 주문 번호 (결제사 참조용)
	UserID              uint          `gorm:"not null;index" json:"user_id"`                                           // 주문자 ID
	AddressID           uint          `gorm:"index" json:"address_id"`                                                 // 배송지 ID
	ShippingAddress     string        `gorm:"type:text" json:"shipping_address"`                                       // 배송지 스냅샷
	TotalAmount         float64       `gorm:"not null" json:"total_amount"`                                            // 총 결제 금액
	Status              OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`         // 주문 상태
	PaymentMethod       PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`                         // 결제 수단
	PaymentStatus       PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"` // 결제 상태
	PaymentTID          string        `gorm:"type:varchar(64);index" json:"payment_tid,omitempty"`                     // 결제 거래 ID
	PaymentApprovedAt   *time.Time    `json:"payment_approved_at,omitempty"`                                           // 결제 승인 시각
	RefundedAt          *time.Time    `json:"refunded_at,omitempty"`                                                   // 환불 시각
	NeedsReconciliation bool          `gorm:"default:false;index" json:"needs_reconciliation"`                         // 수동 정산 필요 여부
	ReconciliationNote  string        `gorm:"type:text" json:"reconciliation_note,omitempty"`                          // 정산 메모
	CreatedAt           time.Time     `gorm:"index" json:"created_at"`                                                 // 생성 시각
	UpdatedAt           time.Time     `json:"updated_at"`                                                              // 수정 시각

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"` // 주문 항목 목록
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a priced snapshot of a cart line taken at order creation.
type OrderItem struct {
	ID             uint      `gorm:"primarykey" json:"id"`                           // 주문 항목 ID
	OrderID        uint      `gorm:"not null;index" json:"order_id"`                 // 주문 ID
	ProductID      uint      `gorm:"not null;index" json:"product_id"`               // 상품 ID
	ProductName    string    `gorm:"not null" json:"product_name"`                   // 상품명 스냅샷
	Quantity       int       `gorm:"not null" json:"quantity"`                       // 수량
	Price          float64   `gorm:"not null" json:"price"`                          // 주문 시점 단가 (옵션 포함)
	OptionKey      string    `gorm:"type:varchar(255);default:''" json:"option_key"` // 정규화된 옵션 조합
	OptionSnapshot string    `gorm:"type:text" json:"option_snapshot"`               // 옵션 정보 스냅샷
	CreatedAt      time.Time `json:"created_at"`                                     // 생성 시각

	Options []OrderItemOption `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE" json:"options,omitempty"` // 옵션 스냅샷 목록
}

func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal is the line total at purchase time.
func (i *OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// OptionValueIDs returns the option values whose stock this line reserved.
func (i *OrderItem) OptionValueIDs() []uint {
	ids := make([]uint, 0, len(i.Options))
	for _, opt := range i.Options {
		ids = append(ids, opt.OptionValueID)
	}
	return NormalizeOptionIDs(ids)
}

type OrderItemOption struct {
	ID              uint    `gorm:"primarykey" json:"id"`                  // 옵션 스냅샷 ID
	OrderItemID     uint    `gorm:"not null;index" json:"order_item_id"`   // 주문 항목 ID
	OptionValueID   uint    `gorm:"not null;index" json:"option_value_id"` // 옵션 값 ID
	OptionTypeName  string  `gorm:"not null" json:"option_type_name"`      // 옵션 그룹명 스냅샷
	Value           string  `gorm:"not null" json:"value"`                 // 옵션 값 스냅샷
	AdditionalPrice float64 `gorm:"default:0" json:"additional_price"`     // 추가 금액 스냅샷
}

func (OrderItemOption) TableName() string {
	return "order_item_options"
}
