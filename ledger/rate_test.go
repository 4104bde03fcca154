package ledger

import (
	"testing"
	"time"

	"moneytracker/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateRecord(id uint, from, to string, rate float64, effectiveAt time.Time) models.ExchangeRate {
	return models.ExchangeRate{
		ID:           id,
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         rate,
		EffectiveAt:  effectiveAt,
	}
}

func TestResolveRate_Identity(t *testing.T) {
	now := time.Now()

	// 同币种恒等返回 1，与汇率表内容无关（包括空表）
	for _, currency := range []string{models.CurrencyCNY, models.CurrencyMOP} {
		rate, err := ResolveRate(nil, currency, currency, now)
		require.NoError(t, err)
		assert.Equal(t, 1.0, rate)
	}

	rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", 1.08, now)}
	rate, err := ResolveRate(rates, "CNY", "CNY", now)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestResolveRate_Direct(t *testing.T) {
	now := time.Now()
	rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", 1.12, now.Add(-time.Hour))}

	rate, err := ResolveRate(rates, "CNY", "MOP", now)
	require.NoError(t, err)
	assert.Equal(t, 1.12, rate)
}

func TestResolveRate_InverseFallback(t *testing.T) {
	now := time.Now()
	// 只有 CNY→MOP 记录时，MOP→CNY 取倒数
	rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", 1.12, now.Add(-time.Hour))}

	rate, err := ResolveRate(rates, "MOP", "CNY", now)
	require.NoError(t, err)
	assert.InDelta(t, 1/1.12, rate, 1e-12)
}

func TestResolveRate_LatestWins(t *testing.T) {
	now := time.Now()
	rates := []models.ExchangeRate{
		rateRecord(1, "CNY", "MOP", 1.10, now.Add(-48*time.Hour)),
		rateRecord(2, "CNY", "MOP", 1.15, now.Add(-time.Hour)),
		// 未来生效的记录不参与选取
		rateRecord(3, "CNY", "MOP", 9.99, now.Add(time.Hour)),
	}

	rate, err := ResolveRate(rates, "CNY", "MOP", now)
	require.NoError(t, err)
	assert.Equal(t, 1.15, rate)

	// asOf 回拨到更早时点，应选中当时生效的旧记录
	rate, err = ResolveRate(rates, "CNY", "MOP", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1.10, rate)
}

func TestResolveRate_Unavailable(t *testing.T) {
	now := time.Now()

	_, err := ResolveRate(nil, "CNY", "MOP", now)
	assert.ErrorIs(t, err, ErrRateUnavailable)

	// 只有未来生效的记录，等价于无可用汇率
	rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", 1.15, now.Add(time.Hour))}
	_, err = ResolveRate(rates, "CNY", "MOP", now)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestResolveRate_InvalidStoredRate(t *testing.T) {
	now := time.Now()

	for _, bad := range []float64{0, -1.15} {
		rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", bad, now.Add(-time.Hour))}
		_, err := ResolveRate(rates, "CNY", "MOP", now)
		assert.ErrorIs(t, err, ErrInvalidRate)

		// 反向兜底同样拒绝非正汇率
		_, err = ResolveRate(rates, "MOP", "CNY", now)
		assert.ErrorIs(t, err, ErrInvalidRate)
	}
}

func TestResolveRate_UnsupportedCurrency(t *testing.T) {
	_, err := ResolveRate(nil, "USD", "CNY", time.Now())
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)

	_, err = ResolveRate(nil, "CNY", "HKD", time.Now())
	assert.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestConvert_IdentityExact(t *testing.T) {
	now := time.Now()

	// 同币种原样返回，空表也不报错
	for _, amount := range []float64{0, 0.1, 99.99, -123.45, 1e9} {
		got, err := Convert(amount, "MOP", "MOP", nil, now)
		require.NoError(t, err)
		assert.Equal(t, amount, got)
	}
}

func TestConvert_CrossCurrency(t *testing.T) {
	now := time.Now()
	rates := []models.ExchangeRate{rateRecord(1, "CNY", "MOP", 1.12, now.Add(-time.Hour))}

	got, err := Convert(100, "CNY", "MOP", rates, now)
	require.NoError(t, err)
	assert.InDelta(t, 112, got, 1e-9)

	// 反向换算等于除以正向汇率
	got, err = Convert(112, "MOP", "CNY", rates, now)
	require.NoError(t, err)
	assert.InDelta(t, 112/1.12, got, 1e-9)

	_, err = Convert(1, "CNY", "MOP", nil, now)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestClassify(t *testing.T) {
	// 无显式标记时按符号判断
	kind, magnitude := Classify(models.Transaction{Amount: -55.5})
	assert.Equal(t, models.KindExpense, kind)
	assert.Equal(t, 55.5, magnitude)

	kind, magnitude = Classify(models.Transaction{Amount: 200})
	assert.Equal(t, models.KindIncome, kind)
	assert.Equal(t, 200.0, magnitude)

	// 零金额视为收入（非负）
	kind, magnitude = Classify(models.Transaction{Amount: 0})
	assert.Equal(t, models.KindIncome, kind)
	assert.Equal(t, 0.0, magnitude)

	// 显式标记优先于符号：导入数据可能符号与标记不一致
	kind, magnitude = Classify(models.Transaction{Amount: 88, Kind: models.KindExpense})
	assert.Equal(t, models.KindExpense, kind)
	assert.Equal(t, 88.0, magnitude)

	kind, magnitude = Classify(models.Transaction{Amount: -300, Kind: models.KindIncome})
	assert.Equal(t, models.KindIncome, kind)
	assert.Equal(t, 300.0, magnitude)
}
