package numeric

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentToDecimal(t *testing.T) {
	for _, d := range []uint8{0, 1, 6, 8, 18, 24} {
		got := ExponentToDecimal(d)
		want := "1" + zeros(int(d))
		assert.Equal(t, want, got.String())
		assert.True(t, got.Equal(got.Truncate(0)), "no fractional part for %d", d)
	}
}

func TestSafeDivByZero(t *testing.T) {
	for _, x := range []string{"0", "1", "-7.5", "123456789.123456789"} {
		assert.True(t, SafeDiv(decimal.RequireFromString(x), Zero).IsZero())
	}
	assert.Equal(t, "0.25", SafeDiv(One, decimal.NewFromInt(4)).String())
}

func TestDivRoundsHalfUpAtTwentyPlaces(t *testing.T) {
	got := Div(decimal.NewFromInt(2), decimal.NewFromInt(3))
	assert.Equal(t, "0.66666666666666666667", got.String())

	got = Div(decimal.NewFromInt(-2), decimal.NewFromInt(3))
	assert.Equal(t, "-0.66666666666666666667", got.String())
}

func TestFastExponentiationIdentities(t *testing.T) {
	v := decimal.RequireFromString("1.0001")
	assert.True(t, FastExponentiation(v, 0).Equal(One))
	assert.True(t, FastExponentiation(v, 1).Equal(v))
	assert.Equal(t, "1024", FastExponentiation(Two, 10).String())
	assert.Equal(t, "0.25", FastExponentiation(Two, -2).String())
}

func TestFastExponentiationMatchesRepeatedMultiplication(t *testing.T) {
	v := decimal.RequireFromString("1.0001")
	tolerance := decimal.New(1, -14)

	for _, n := range []int64{2, 3, 5, 7, 10, 17, 64, 101, 1000} {
		naive := One
		for i := int64(0); i < n; i++ {
			naive = naive.Mul(v).Round(Scale)
		}
		got := FastExponentiation(v, n)
		diff := got.Sub(naive).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance), "n=%d got=%s naive=%s", n, got, naive)
	}
}

func TestFastExponentiationRecursionShape(t *testing.T) {
	v := decimal.RequireFromString("1.0001")
	for _, n := range []int64{4, 9, 30, 31} {
		half := FastExponentiation(v, n/2).Round(Scale)
		want := half.Mul(half).Round(Scale)
		if n%2 == 1 {
			want = want.Mul(v.Round(Scale)).Round(Scale)
		}
		assert.True(t, FastExponentiation(v, n).Equal(want), "n=%d", n)
	}
}

func TestTickIndexToPricesRoundTrip(t *testing.T) {
	price0, price1 := TickIndexToPrices(0)
	assert.True(t, price0.Equal(One))
	assert.True(t, price1.Equal(One))

	tolerance := decimal.New(1, -12)
	for _, tick := range []int32{-5000, -60, -1, 1, 60, 5000} {
		price0, price1 := TickIndexToPrices(tick)
		require.True(t, price0.IsPositive(), "tick %d", tick)
		product := price0.Mul(price1)
		assert.True(t, product.Sub(One).Abs().LessThanOrEqual(tolerance), "tick %d product %s", tick, product)
		assert.True(t, price1.Equal(price1.Round(Scale)))
	}

	up, _ := TickIndexToPrices(1)
	assert.Equal(t, "1.0001", up.String())
}

func TestSqrtPriceX96ToTokenPrices(t *testing.T) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)

	price0, price1 := SqrtPriceX96ToTokenPrices(q96, 18, 18)
	assert.True(t, price0.Equal(One))
	assert.True(t, price1.Equal(One))

	price0, price1 = SqrtPriceX96ToTokenPrices(q96, 6, 18)
	assert.Equal(t, "0.000000000001", price1.String())
	assert.Equal(t, "1000000000000", price0.String())

	price0, price1 = SqrtPriceX96ToTokenPrices(new(big.Int), 18, 18)
	assert.True(t, price0.IsZero())
	assert.True(t, price1.IsZero())
}

func TestFeeTierToTickSpacing(t *testing.T) {
	cases := map[uint32]int32{10000: 200, 3000: 60, 500: 10, 100: 1}
	for fee, want := range cases {
		got, err := FeeTierToTickSpacing(fee)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := FeeTierToTickSpacing(2500)
	require.ErrorIs(t, err, ErrUnsupportedFeeTier)
}

func TestConvertTokenToDecimal(t *testing.T) {
	assert.Equal(t, "1.5", ConvertTokenToDecimal(big.NewInt(1500000), 6).String())
	assert.Equal(t, "42", ConvertTokenToDecimal(big.NewInt(42), 0).String())
	assert.Equal(t, "-0.000000000000000001", ConvertTokenToDecimal(big.NewInt(-1), 18).String())
}

func TestParseBig(t *testing.T) {
	v, err := ParseBig("-123456789012345678901234567890")
	require.NoError(t, err)
	assert.Equal(t, "-123456789012345678901234567890", v.String())

	v, err = ParseBig("")
	require.NoError(t, err)
	assert.Zero(t, v.Sign())

	_, err = ParseBig("0x10")
	require.Error(t, err)
}

func zeros(n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = '0'
	}
	return string(out)
}
