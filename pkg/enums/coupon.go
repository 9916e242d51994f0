package enums

import "fmt"

// CouponStatus tracks whether a coupon can still be applied.
type CouponStatus string

const (
	CouponStatusAvailable CouponStatus = "available"
	CouponStatusUsed      CouponStatus = "used"
	CouponStatusExpired   CouponStatus = "expired"
)

var validCouponStatuses = []CouponStatus{
	CouponStatusAvailable,
	CouponStatusUsed,
	CouponStatusExpired,
}

// String implements fmt.Stringer.
func (c CouponStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponStatus.
func (c CouponStatus) IsValid() bool {
	for _, candidate := range validCouponStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponStatus converts raw input into a CouponStatus.
func ParseCouponStatus(value string) (CouponStatus, error) {
	for _, candidate := range validCouponStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon status %q", value)
}

// DiscountType describes how a coupon reduces the subtotal.
type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeFixed   DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercent,
	DiscountTypeFixed,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
