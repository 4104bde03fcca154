package ledger

import (
	"fmt"
	"math"
	"time"

	"moneytracker/models"
)

// ResolveRate 在汇率表中解析 from→to 在 asOf 时点的生效汇率。
// 同币种恒等返回 1；否则选取 effective_at 不晚于 asOf 且最新的正向记录；
// 没有正向记录时尝试反向记录并取倒数；两个方向都没有则返回 ErrRateUnavailable。
// 绝不回退到硬编码默认值，由调用方决定如何向用户呈现缺失。
func ResolveRate(rates []models.ExchangeRate, from, to string, asOf time.Time) (float64, error) {
	if !models.ValidCurrency(from) || !models.ValidCurrency(to) {
		return 0, fmt.Errorf("%w: %s→%s", ErrUnsupportedCurrency, from, to)
	}
	if from == to {
		return 1, nil
	}

	if r, ok := latest(rates, from, to, asOf); ok {
		if !validRate(r.Rate) {
			return 0, fmt.Errorf("%w: 记录 #%d (%s→%s = %v)", ErrInvalidRate, r.ID, from, to, r.Rate)
		}
		return r.Rate, nil
	}

	// 反向兜底：只有 MOP→CNY 记录时，CNY→MOP 取其倒数
	if r, ok := latest(rates, to, from, asOf); ok {
		if !validRate(r.Rate) {
			return 0, fmt.Errorf("%w: 记录 #%d (%s→%s = %v)", ErrInvalidRate, r.ID, to, from, r.Rate)
		}
		return 1 / r.Rate, nil
	}

	return 0, fmt.Errorf("%w: %s→%s", ErrRateUnavailable, from, to)
}

// Convert 将金额从 from 换算为 to。同币种原样返回，不经过乘法，
// 避免引入浮点误差。
func Convert(amount float64, from, to string, rates []models.ExchangeRate, asOf time.Time) (float64, error) {
	if from == to {
		if !models.ValidCurrency(from) {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, from)
		}
		return amount, nil
	}
	rate, err := ResolveRate(rates, from, to, asOf)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

// latest 选取指定货币对中 effective_at<=asOf 且最新的一条记录
func latest(rates []models.ExchangeRate, from, to string, asOf time.Time) (models.ExchangeRate, bool) {
	var best models.ExchangeRate
	found := false
	for _, r := range rates {
		if r.FromCurrency != from || r.ToCurrency != to {
			continue
		}
		if r.EffectiveAt.After(asOf) {
			continue
		}
		if !found || r.EffectiveAt.After(best.EffectiveAt) {
			best = r
			found = true
		}
	}
	return best, found
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}
