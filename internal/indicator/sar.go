package indicator

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goldbridge/internal/models"
	"goldbridge/pkg/utils"
)

// sar.go - индикатор Parabolic SAR (Stop and Reverse)
//
// Назначение:
// Потоковый расчёт SAR по серии баров OHLC. Значение SAR следует за
// трендом с ускорением AF и разворачивается при пробое ценой.
//
// Алгоритм:
// SAR_next = SAR + AF × (EP - SAR). В восходящем тренде разворот при
// low < SAR_next, в нисходящем при high > SAR_next. После разворота
// SAR = прежний EP, AF сбрасывается. SAR никогда не заходит внутрь
// диапазона предыдущего и текущего бара.

// Ошибки индикатора
var (
	ErrNotEnoughBars = errors.New("at least 2 candles required for SAR")
)

// Point представляет значение индикатора на одном баре
type Point struct {
	SAR   float64
	Trend string // UPTREND, DOWNTREND
	EP    float64
	AF    float64
}

// SAR вычисляет Parabolic SAR по серии баров
type SAR struct {
	symbol    string
	timeframe int // минуты
	step      float64
	max       float64
	logger    *zap.Logger
}

// New создаёт индикатор с заданными параметрами ускорения.
// step по умолчанию 0.02, max 0.2.
func New(symbol string, timeframe int, step, max float64, logger *zap.Logger) *SAR {
	if step <= 0 {
		step = 0.02
	}
	if max < step {
		max = 0.2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SAR{
		symbol:    symbol,
		timeframe: timeframe,
		step:      step,
		max:       max,
		logger:    logger.Named("sar"),
	}
}

// Compute возвращает значения индикатора для каждого бара.
//
// Первый бар инициализируется как восходящий тренд:
// sar = low, ep = high, af = step.
func (s *SAR) Compute(candles []models.Candle) ([]Point, error) {
	if len(candles) < 2 {
		return nil, ErrNotEnoughBars
	}

	points := make([]Point, len(candles))
	points[0] = Point{
		SAR:   candles[0].Low,
		Trend: models.TrendUp,
		EP:    candles[0].High,
		AF:    s.step,
	}

	for i := 1; i < len(candles); i++ {
		prev := points[i-1]
		high := candles[i].High
		low := candles[i].Low

		next := prev.SAR + prev.AF*(prev.EP-prev.SAR)

		if prev.Trend == models.TrendUp {
			if low < next {
				// Разворот вниз: SAR встаёт на прежний экстремум
				points[i] = Point{
					SAR:   prev.EP,
					Trend: models.TrendDown,
					EP:    low,
					AF:    s.step,
				}
				continue
			}

			p := Point{SAR: next, Trend: models.TrendUp, EP: prev.EP, AF: prev.AF}
			if high > prev.EP {
				p.EP = high
				p.AF = utils.Min(prev.AF+s.step, s.max)
			}
			// SAR не поднимается выше минимумов предыдущего и текущего бара
			p.SAR = utils.Min(p.SAR, utils.Min(candles[i-1].Low, low))
			points[i] = p
			continue
		}

		// Нисходящий тренд
		if high > next {
			points[i] = Point{
				SAR:   prev.EP,
				Trend: models.TrendUp,
				EP:    high,
				AF:    s.step,
			}
			continue
		}

		p := Point{SAR: next, Trend: models.TrendDown, EP: prev.EP, AF: prev.AF}
		if low < prev.EP {
			p.EP = low
			p.AF = utils.Min(prev.AF+s.step, s.max)
		}
		// SAR не опускается ниже максимумов предыдущего и текущего бара
		p.SAR = utils.Max(p.SAR, utils.Max(candles[i-1].High, high))
		points[i] = p
	}

	return points, nil
}

// Snapshot вычисляет индикатор и возвращает показание последнего бара
// вместе с текущей ценой bid.
func (s *SAR) Snapshot(candles []models.Candle, bid float64) (*models.SARReading, error) {
	points, err := s.Compute(candles)
	if err != nil {
		return nil, err
	}

	last := points[len(points)-1]
	signal := models.SideBuy
	if last.Trend == models.TrendDown {
		signal = models.SideSell
	}

	distance := utils.Abs(bid - last.SAR)
	distancePct := 0.0
	if bid > 0 {
		distancePct = distance / bid * 100
	}

	ts := candles[len(candles)-1].Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return &models.SARReading{
		Symbol:      s.symbol,
		Timeframe:   s.TimeframeString(),
		Price:       bid,
		SAR:         utils.RoundToDigits(last.SAR, 2),
		Trend:       last.Trend,
		Signal:      signal,
		EP:          utils.RoundToDigits(last.EP, 2),
		AF:          utils.RoundToDigits(last.AF, 4),
		Distance:    utils.RoundToDigits(distance, 2),
		DistancePct: utils.RoundToDigits(distancePct, 3),
		Timestamp:   ts.Format(time.RFC3339),
	}, nil
}

// StopLevel возвращает уровень стопа по SAR для позиции указанной стороны.
//
// Для BUY стоп должен быть ниже цены (восходящий тренд), для SELL выше.
// Несовпадение тренда с запрошенной стороной логируется, значение SAR
// возвращается в любом случае.
func (s *SAR) StopLevel(reading *models.SARReading, side string) float64 {
	if reading == nil {
		return 0
	}

	switch side {
	case models.SideBuy:
		if reading.Trend != models.TrendUp {
			s.logger.Warn("SAR trend opposes BUY position",
				zap.String("trend", reading.Trend),
				zap.Float64("sar", reading.SAR))
		}
	case models.SideSell:
		if reading.Trend != models.TrendDown {
			s.logger.Warn("SAR trend opposes SELL position",
				zap.String("trend", reading.Trend),
				zap.Float64("sar", reading.SAR))
		}
	}

	return reading.SAR
}

// TimeframeString возвращает таймфрейм в виде "15M", "1H" и т.п.
func (s *SAR) TimeframeString() string {
	switch {
	case s.timeframe >= 1440 && s.timeframe%1440 == 0:
		return fmt.Sprintf("%dD", s.timeframe/1440)
	case s.timeframe >= 60 && s.timeframe%60 == 0:
		return fmt.Sprintf("%dH", s.timeframe/60)
	default:
		return fmt.Sprintf("%dM", s.timeframe)
	}
}
