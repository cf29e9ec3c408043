package ledger

import (
	"sort"
	"time"

	"goldbridge/internal/models"
	"goldbridge/pkg/utils"
)

// stats.go - агрегированная статистика по журналу
//
// Win rate считается от закрытых сделок, серия убытков от самой
// свежей закрытой сделки назад.

// StatsForDay возвращает статистику за один день
func (l *Ledger) StatsForDay(day time.Time) (models.Stats, error) {
	records, err := l.TradesForDay(day)
	if err != nil {
		return models.Stats{}, err
	}
	return aggregate(records), nil
}

// StatsRange возвращает статистику за диапазон дней [from, to]
func (l *Ledger) StatsRange(from, to time.Time) (models.Stats, error) {
	var all []models.TradeRecord
	for day := utils.DayStart(from); !day.After(to); day = day.AddDate(0, 0, 1) {
		records, err := l.TradesForDay(day)
		if err != nil {
			return models.Stats{}, err
		}
		all = append(all, records...)
	}
	return aggregate(all), nil
}

func aggregate(records []models.TradeRecord) models.Stats {
	var st models.Stats
	st.TotalTrades = len(records)

	closed := make([]models.TradeRecord, 0, len(records))
	for i := range records {
		switch records[i].Status {
		case models.TradeStatusOpen:
			st.OpenTrades++
		case models.TradeStatusClosed:
			closed = append(closed, records[i])
		}
	}
	st.ClosedTrades = len(closed)

	for i := range closed {
		if closed[i].ProfitLoss == nil {
			continue
		}
		pl := *closed[i].ProfitLoss
		st.NetProfit += pl
		if pl > 0 {
			st.Wins++
			st.GrossProfit += pl
		} else if pl < 0 {
			st.Losses++
			st.GrossLoss += pl
		}
	}

	if st.ClosedTrades > 0 {
		st.WinRate = float64(st.Wins) * 100 / float64(st.ClosedTrades)
	}

	sort.Slice(closed, func(i, j int) bool {
		if closed[i].ExitTime == nil || closed[j].ExitTime == nil {
			return false
		}
		return closed[i].ExitTime.After(*closed[j].ExitTime)
	})
	for i := range closed {
		if !closed[i].IsLoss() {
			break
		}
		st.ConsecutiveLosses++
	}

	return st
}
