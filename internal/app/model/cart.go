package model

import (
	"time"
)

// Cart is the per-customer basket. It is created on first access and only
// ever emptied, never deleted.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`                // 장바구니 ID
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"` // 고객 ID (1:1)
	CreatedAt time.Time `json:"created_at"`                          // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                          // 수정 시각

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // 장바구니 항목
}

func (Cart) TableName() string {
	return "carts"
}

// CartItem is identified by (CartID, ProductID, OptionKey); the unique index
// keeps one line per product and option set.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                                               // 장바구니 항목 ID
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_line,priority:1" json:"cart_id"`                                 // 장바구니 ID
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_items_line,priority:2;index" json:"product_id"`                        // 상품 ID
	OptionKey string    `gorm:"type:varchar(255);not null;default:'';uniqueIndex:idx_cart_items_line,priority:3" json:"option_key"` // 정규화된 옵션 조합
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`                                                                 // 수량
	CreatedAt time.Time `json:"created_at"`                                                                                         // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                                                                                         // 수정 시각
}

func (CartItem) TableName() string {
	return "cart_items"
}

// OptionValueIDs decodes the line's option key.
func (i *CartItem) OptionValueIDs() []uint {
	ids, err := ParseOptionKey(i.OptionKey)
	if err != nil {
		return []uint{}
	}
	return ids
}
