package model

import "time"

type EventActor string // 상태 변경 주체

const (
	ActorCustomer EventActor = "customer" // 고객
	ActorAdmin    EventActor = "admin"    // 관리자
	ActorSystem   EventActor = "system"   // 시스템 (스케줄러 등)
)

// OrderEvent is one row of the append-only order audit trail.
type OrderEvent struct {
	ID            uint          `gorm:"primarykey" json:"id"`                            // 이벤트 ID
	OrderID       uint          `gorm:"not null;index" json:"order_id"`                  // 주문 ID
	FromStatus    OrderStatus   `gorm:"type:varchar(20)" json:"from_status"`             // 이전 상태 (생성 시 빈 값)
	ToStatus      OrderStatus   `gorm:"type:varchar(20);not null" json:"to_status"`      // 변경 상태
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null" json:"payment_status"` // 변경 후 결제 상태
	Actor         EventActor    `gorm:"type:varchar(20);not null" json:"actor"`          // 변경 주체
	Note          string        `gorm:"type:text" json:"note,omitempty"`                 // 메모
	CreatedAt     time.Time     `json:"created_at"`                                      // 기록 시각
}

func (OrderEvent) TableName() string {
	return "order_events"
}
