package cache

import (
	"context"
	"fmt"
	"time"
)

const balanceCacheTTL = 30 * time.Second

// BalanceSnapshot is a short-lived cached view of a merchant balance.
// Amounts are integer cents. The ledger stays the source of truth;
// every ledger write must invalidate this entry.
type BalanceSnapshot struct {
	MerchantID uint  `json:"merchant_id"`
	Available  int64 `json:"available"`
	Pending    int64 `json:"pending"`
	Total      int64 `json:"total"`
	UpdatedAt  int64 `json:"updated_at"`
}

func balanceKey(merchantID uint) string {
	return fmt.Sprintf("balance:merchant:%d", merchantID)
}

// GetBalance reads a cached balance snapshot.
func GetBalance(ctx context.Context, merchantID uint) (*BalanceSnapshot, bool, error) {
	if merchantID == 0 {
		return nil, false, nil
	}
	var snapshot BalanceSnapshot
	hit, err := GetJSON(ctx, balanceKey(merchantID), &snapshot)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &snapshot, true, nil
}

// SetBalance writes a cached balance snapshot.
func SetBalance(ctx context.Context, snapshot *BalanceSnapshot) error {
	if snapshot == nil || snapshot.MerchantID == 0 {
		return nil
	}
	snapshot.UpdatedAt = time.Now().Unix()
	return SetJSON(ctx, balanceKey(snapshot.MerchantID), snapshot, balanceCacheTTL)
}

// DelBalance drops the cached balance snapshot after a ledger write.
func DelBalance(ctx context.Context, merchantID uint) error {
	if merchantID == 0 {
		return nil
	}
	return Del(ctx, balanceKey(merchantID))
}
