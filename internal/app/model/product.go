package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                                                  // 상품 ID
	Name          string         `gorm:"not null" json:"name"`                                                                  // 상품명
	Description   string         `gorm:"type:text" json:"description"`                                                          // 상품 설명
	Price         float64        `gorm:"not null" json:"price"`                                                                 // 기본 가격
	StockQuantity int            `gorm:"not null;default:0;check:chk_products_stock,stock_quantity >= 0" json:"stock_quantity"` // 상품 재고
	ImageURL      string         `json:"image_url"`                                                                             // 대표 이미지
	CreatedAt     time.Time      `json:"created_at"`                                                                            // 생성 시각
	UpdatedAt     time.Time      `json:"updated_at"`                                                                            // 수정 시각
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                                                        // 삭제 시각(소프트 삭제)

	OptionTypes []OptionType `gorm:"foreignKey:ProductID" json:"option_types,omitempty"` // 옵션 그룹 목록
}

func (Product) TableName() string {
	return "products"
}

// IsDeleted reports whether the catalog soft-deleted the product.
func (p *Product) IsDeleted() bool {
	return p.DeletedAt.Valid
}
