package indicators

type MACDService struct {
	ema *EMAService
}

type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

const (
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
)

func NewMACDService() *MACDService {
	return &MACDService{
		ema: NewEMAService(),
	}
}

// Calculate returns MACD line, signal line, and histogram for the latest
// price. The signal is the 9-period EMA of the MACD values taken from index
// 26 onward.
func (s *MACDService) Calculate(prices []float64) MACDResult {
	if len(prices) == 0 {
		return MACDResult{}
	}

	macd := s.ema.Calculate(prices, MACDFastPeriod) - s.ema.Calculate(prices, MACDSlowPeriod)

	var macdValues []float64
	if len(prices) > MACDSlowPeriod {
		fast := s.ema.Series(prices, MACDFastPeriod)
		slow := s.ema.Series(prices, MACDSlowPeriod)
		macdValues = make([]float64, 0, len(prices)-MACDSlowPeriod)
		for i := MACDSlowPeriod; i < len(prices); i++ {
			macdValues = append(macdValues, fast[i]-slow[i])
		}
	}

	signal := macd
	if len(macdValues) > 0 {
		signal = s.ema.Calculate(macdValues, MACDSignalPeriod)
	}

	return MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}
