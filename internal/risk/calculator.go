package risk

import (
	"errors"
	"fmt"

	"goldbridge/internal/models"
	"goldbridge/pkg/utils"
)

// calculator.go - расчёт стопов и размера позиции
//
// Назначение:
// Расчёт SL/TP относительно цены входа и объёма позиции по проценту
// риска от баланса. Все цены округляются до точности символа, объём
// до шага лота брокера.

// Ошибки расчёта
var (
	ErrInvalidStop     = errors.New("stop loss on wrong side of entry price")
	ErrZeroStopDist    = errors.New("stop loss distance is zero")
	ErrInvalidBalance  = errors.New("account balance must be positive")
	ErrInvalidRiskPct  = errors.New("risk percentage must be in (0, 100]")
)

// Levels представляет рассчитанные уровни сделки
type Levels struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	SLDistance float64
	RRRatio    float64
}

// Calculator рассчитывает параметры сделки для одного символа
type Calculator struct {
	info    models.SymbolInfo
	rrRatio float64
}

// NewCalculator создаёт калькулятор с параметрами символа.
// rrRatio - отношение расстояния TP к расстоянию SL (по умолчанию 2.0).
func NewCalculator(info models.SymbolInfo, rrRatio float64) *Calculator {
	if rrRatio <= 0 {
		rrRatio = 2.0
	}
	return &Calculator{info: info, rrRatio: rrRatio}
}

// SetSymbolInfo обновляет параметры символа (после ответа советника)
func (c *Calculator) SetSymbolInfo(info models.SymbolInfo) {
	c.info = info
}

// SymbolInfo возвращает текущие параметры символа
func (c *Calculator) SymbolInfo() models.SymbolInfo {
	return c.info
}

// SLTPByPrice рассчитывает уровни SL/TP от заданной цены стопа.
//
// Для BUY стоп должен быть ниже входа, для SELL выше, иначе ошибка.
// TP откладывается от входа на rrRatio × расстояние до стопа.
func (c *Calculator) SLTPByPrice(side string, entry, stopPrice float64) (*Levels, error) {
	if err := utils.ValidateSide(side); err != nil {
		return nil, err
	}
	if err := utils.ValidatePrice(entry); err != nil {
		return nil, err
	}
	if err := utils.ValidatePrice(stopPrice); err != nil {
		return nil, err
	}

	switch side {
	case models.SideBuy:
		if stopPrice >= entry {
			return nil, fmt.Errorf("%w: BUY entry %.5f, stop %.5f", ErrInvalidStop, entry, stopPrice)
		}
	case models.SideSell:
		if stopPrice <= entry {
			return nil, fmt.Errorf("%w: SELL entry %.5f, stop %.5f", ErrInvalidStop, entry, stopPrice)
		}
	}

	dist := utils.Abs(entry - stopPrice)
	if dist == 0 {
		return nil, ErrZeroStopDist
	}

	var tp float64
	if side == models.SideBuy {
		tp = entry + c.rrRatio*dist
	} else {
		tp = entry - c.rrRatio*dist
	}

	return &Levels{
		Entry:      utils.RoundToDigits(entry, c.info.Digits),
		StopLoss:   utils.RoundToDigits(stopPrice, c.info.Digits),
		TakeProfit: utils.RoundToDigits(tp, c.info.Digits),
		SLDistance: utils.RoundToDigits(dist, c.info.Digits),
		RRRatio:    c.rrRatio,
	}, nil
}

// PositionSize рассчитывает объём позиции по проценту риска.
//
// riskAmount = balance × riskPct / 100
// lots = riskAmount / (slDistance × contractSize)
// Объём округляется к ближайшему шагу лота и ограничивается
// диапазоном [VolumeMin, VolumeMax].
func (c *Calculator) PositionSize(balance, riskPct, entry, stopPrice float64) (float64, *models.RiskInfo, error) {
	if balance <= 0 {
		return 0, nil, ErrInvalidBalance
	}
	if riskPct <= 0 || riskPct > 100 {
		return 0, nil, ErrInvalidRiskPct
	}

	dist := utils.Abs(entry - stopPrice)
	if dist == 0 {
		return 0, nil, ErrZeroStopDist
	}

	riskAmount := balance * riskPct / 100
	lots := riskAmount / (dist * c.info.ContractSize)

	lots = utils.RoundToLotStep(lots, c.info.VolumeStep)
	lots = utils.Clamp(lots, c.info.VolumeMin, c.info.VolumeMax)

	info := &models.RiskInfo{
		RiskPercentage: riskPct,
		RiskAmount:     riskAmount,
		SLDistance:     dist,
		RRRatio:        c.rrRatio,
	}

	return lots, info, nil
}
