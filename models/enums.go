package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type AccountRole string

const (
	AccountRoleHQ    AccountRole = "HQ"
	AccountRoleStore AccountRole = "STORE"
)

func (r AccountRole) IsValid() bool {
	return r == AccountRoleHQ || r == AccountRoleStore
}

// convert input to enum type
func (r *AccountRole) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("account role must be string")
	}
	switch strings.ToUpper(strings.TrimSpace(str)) {
	case "HQ":
		*r = AccountRoleHQ
	case "STORE":
		*r = AccountRoleStore
	default:
		return errors.New("invalid account role")
	}
	return nil
}

// DefectCategory is the reason a store gives for a returned item.
type DefectCategory string

const (
	DefectCategoryShippingDamage      DefectCategory = "配送時破損"
	DefectCategoryManufacturingDefect DefectCategory = "製造不良(寸法/糊)"
	DefectCategoryDirtOrWater         DefectCategory = "汚れ・水濡れ"
	DefectCategoryMisdelivery         DefectCategory = "誤配送・数量不足"
	DefectCategoryOther               DefectCategory = "その他"
)

// DefectCategories lists the closed set in display order.
func DefectCategories() []DefectCategory {
	return []DefectCategory{
		DefectCategoryShippingDamage,
		DefectCategoryManufacturingDefect,
		DefectCategoryDirtOrWater,
		DefectCategoryMisdelivery,
		DefectCategoryOther,
	}
}

func (c DefectCategory) IsValid() bool {
	for _, known := range DefectCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// ParseDefectCategory maps "" to absent and rejects values outside the closed set.
func ParseDefectCategory(s string) (*DefectCategory, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	c := DefectCategory(s)
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return &c, nil
}
