package model

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType is a product-defined attribute category such as "Size".
type OptionType struct {
	ID        uint      `gorm:"primarykey" json:"id"`             // 옵션 그룹 ID
	ProductID uint      `gorm:"index;not null" json:"product_id"` // 소속 상품 ID
	Name      string    `gorm:"not null" json:"name"`             // 옵션 그룹명 (예: 사이즈)
	Position  int       `gorm:"default:0" json:"position"`        // 표시 순서
	CreatedAt time.Time `json:"created_at"`                       // 생성 시각
	UpdatedAt time.Time `json:"updated_at"`                       // 수정 시각

	Values []OptionValue `gorm:"foreignKey:OptionTypeID" json:"values,omitempty"` // 옵션 값 목록
}

func (OptionType) TableName() string {
	return "option_types"
}

// OptionValue is one concrete choice inside an OptionType. Its stock is
// tracked independently of the product stock.
type OptionValue struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                                       // 옵션 값 ID
	OptionTypeID    uint      `gorm:"index;not null" json:"option_type_id"`                                                       // 옵션 그룹 ID
	ProductID       uint      `gorm:"index;not null" json:"product_id"`                                                           // 소속 상품 ID
	Value           string    `gorm:"not null" json:"value"`                                                                      // 옵션 값 (예: M)
	AdditionalPrice float64   `gorm:"default:0" json:"additional_price"`                                                          // 추가 금액 (음수 가능)
	StockQuantity   int       `gorm:"not null;default:0;check:chk_option_values_stock,stock_quantity >= 0" json:"stock_quantity"` // 옵션 재고
	CreatedAt       time.Time `json:"created_at"`                                                                                 // 생성 시각
	UpdatedAt       time.Time `json:"updated_at"`                                                                                 // 수정 시각

	OptionType OptionType `gorm:"foreignKey:OptionTypeID" json:"-"` // 옵션 그룹 정보
}

func (OptionValue) TableName() string {
	return "option_values"
}

// OptionKey returns the canonical form of an option selection: ids sorted
// ascending, deduplicated, joined by commas. The empty selection is "".
func OptionKey(optionValueIDs []uint) string {
	ids := NormalizeOptionIDs(optionValueIDs)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}

// NormalizeOptionIDs returns a sorted copy of ids without duplicates.
func NormalizeOptionIDs(optionValueIDs []uint) []uint {
	ids := make([]uint, 0, len(optionValueIDs))
	seen := make(map[uint]struct{}, len(optionValueIDs))
	for _, id := range optionValueIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ParseOptionKey is the inverse of OptionKey.
func ParseOptionKey(key string) ([]uint, error) {
	if key == "" {
		return []uint{}, nil
	}
	parts := strings.Split(key, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
