package service

import (
	"github.com/nexpag/nexpag/internal/models"
)

// CommissionSplit divides a settlement's net amount between the
// product owner and an affiliate.
type CommissionSplit struct {
	OwnerShare     models.Money
	AffiliateShare models.Money
}

// SplitCommission applies the link's frozen commission percentage to
// the net amount. The affiliate share is rounded half up once; the
// owner keeps the exact remainder so the two shares always sum to
// net. A nil link assigns everything to the owner.
func SplitCommission(net models.Money, link *models.AffiliateLink) CommissionSplit {
	if link == nil || !net.IsPositive() {
		return CommissionSplit{OwnerShare: net}
	}
	affiliate := net.ApplyPercent(link.CommissionPercent.Decimal)
	if affiliate.IsNegative() {
		affiliate = 0
	}
	if affiliate.Cents() > net.Cents() {
		affiliate = net
	}
	return CommissionSplit{
		OwnerShare:     net.Sub(affiliate),
		AffiliateShare: affiliate,
	}
}
