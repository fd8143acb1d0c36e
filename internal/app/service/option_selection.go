package service

import (
	"fmt"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
)

// selectedOption is one chosen value together with its type name.
type selectedOption struct {
	TypeName string
	Value    model.OptionValue
}

// optionSelection is a validated choice of exactly one value per option type.
type optionSelection struct {
	Options []selectedOption // in option type display order
	Key     string
}

func (s *optionSelection) ValueIDs() []uint {
	ids := make([]uint, len(s.Options))
	for i, opt := range s.Options {
		ids[i] = opt.Value.ID
	}
	return model.NormalizeOptionIDs(ids)
}

// PriceDelta is the sum of the selected values' additional prices.
func (s *optionSelection) PriceDelta() float64 {
	var delta float64
	for _, opt := range s.Options {
		delta += opt.Value.AdditionalPrice
	}
	return delta
}

// Snapshot renders the selection as "Size: M, Color: Red".
func (s *optionSelection) Snapshot() string {
	parts := make([]string, len(s.Options))
	for i, opt := range s.Options {
		parts[i] = fmt.Sprintf("%s: %s", opt.TypeName, opt.Value.Value)
	}
	return strings.Join(parts, ", ")
}

// selectOptions checks optionValueIDs against the product's option types.
// product must have OptionTypes and their Values loaded.
func selectOptions(product *model.Product, optionValueIDs []uint) (*optionSelection, error) {
	ids := model.NormalizeOptionIDs(optionValueIDs)

	if len(product.OptionTypes) == 0 {
		if len(ids) > 0 {
			return nil, &OptionMismatchError{ProductID: product.ID, Reason: "product has no options"}
		}
		return &optionSelection{Options: []selectedOption{}, Key: ""}, nil
	}

	type owner struct {
		typeIndex int
		value     model.OptionValue
	}
	byValueID := map[uint]owner{}
	for ti, optionType := range product.OptionTypes {
		for _, v := range optionType.Values {
			byValueID[v.ID] = owner{typeIndex: ti, value: v}
		}
	}

	chosen := make([]*model.OptionValue, len(product.OptionTypes))
	for _, id := range ids {
		o, ok := byValueID[id]
		if !ok {
			return nil, &OptionMismatchError{
				ProductID: product.ID,
				Reason:    fmt.Sprintf("option value %d does not belong to this product", id),
			}
		}
		if chosen[o.typeIndex] != nil {
			return nil, &OptionMismatchError{
				ProductID: product.ID,
				Reason:    fmt.Sprintf("more than one value selected for %s", product.OptionTypes[o.typeIndex].Name),
			}
		}
		v := o.value
		chosen[o.typeIndex] = &v
	}

	var missing []string
	selection := &optionSelection{Options: make([]selectedOption, 0, len(chosen))}
	for ti, v := range chosen {
		if v == nil {
			missing = append(missing, product.OptionTypes[ti].Name)
			continue
		}
		selection.Options = append(selection.Options, selectedOption{
			TypeName: product.OptionTypes[ti].Name,
			Value:    *v,
		})
	}
	if len(missing) > 0 {
		return nil, &OptionMismatchError{ProductID: product.ID, MissingTypes: missing}
	}

	selection.Key = model.OptionKey(ids)
	return selection, nil
}
