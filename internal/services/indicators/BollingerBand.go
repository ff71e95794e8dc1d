package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

type BBandsService struct{}

type BBandsResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	PercentB  float64
	Bandwidth float64
}

func NewBBandsService() *BBandsService {
	return &BBandsService{}
}

// Calculate returns bands around the SMA of the last period prices using the
// population standard deviation. Short input collapses all three bands onto
// the latest price.
func (s *BBandsService) Calculate(prices []float64, period int, deviations float64) BBandsResult {
	if len(prices) == 0 {
		return BBandsResult{PercentB: 0.5}
	}
	current := prices[len(prices)-1]
	if period <= 1 || len(prices) < period {
		return BBandsResult{Upper: current, Middle: current, Lower: current, PercentB: 0.5}
	}

	upper, middle, lower := talib.BBands(prices, period, deviations, deviations, talib.SMA)
	last := len(prices) - 1
	res := BBandsResult{
		Upper:  upper[last],
		Middle: middle[last],
		Lower:  lower[last],
	}
	// talib can leave a NaN on a perfectly flat window
	if math.IsNaN(res.Upper) || math.IsNaN(res.Lower) {
		res.Upper, res.Lower = res.Middle, res.Middle
	}

	res.PercentB = 0.5
	if width := res.Upper - res.Lower; width > 0 {
		res.PercentB = (current - res.Lower) / width
	}
	if res.Middle != 0 {
		res.Bandwidth = (res.Upper - res.Lower) / res.Middle
	}
	return res
}
