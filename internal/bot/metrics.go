package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"goldbridge/internal/models"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Анализ производительности в production

// ============ Метрики моста ============

// BridgeConnected - статус подключения советника (1/0)
var BridgeConnected = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "bridge",
		Name:      "connected",
		Help:      "Expert advisor connection status (1=connected, 0=disconnected)",
	},
)

// BridgeFramesTotal - количество принятых кадров по типам
var BridgeFramesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "goldbridge",
		Subsystem: "bridge",
		Name:      "frames_total",
		Help:      "Total number of frames received from the expert advisor",
	},
	[]string{"type"}, // market_data, position, heartbeat, order_result, response, rates
)

// CommandLatency - время от отправки команды до ответа советника
var CommandLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "goldbridge",
		Subsystem: "bridge",
		Name:      "command_latency_ms",
		Help:      "Command round trip latency in milliseconds",
		Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
	[]string{"action"},
)

// MarketDataAge - возраст последнего тика
var MarketDataAge = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "bridge",
		Name:      "market_data_age_seconds",
		Help:      "Age of the last market data frame in seconds",
	},
)

// ============ Метрики торговли ============

// TradesTotal - общее количество сделок
var TradesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "trades_total",
		Help:      "Total number of trades",
	},
	[]string{"side", "result"}, // side: BUY, SELL; result: win, loss, flat, failed
)

// PnlTotal - суммарный реализованный P/L в валюте счёта
var PnlTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "pnl_total",
		Help:      "Total realized profit and loss in account currency",
	},
)

// BotState - текущее состояние бота
var BotState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "bot_state",
		Help:      "Current bot state (1 for the active state, 0 otherwise)",
	},
	[]string{"state"}, // waiting_for_signal, opening, monitoring, closed, paused, stopped
)

// SARValue - последнее значение индикатора
var SARValue = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "sar_value",
		Help:      "Latest parabolic SAR value",
	},
)

// SignalsTotal - сигналы индикатора и их судьба
var SignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "signals_total",
		Help:      "Number of indicator signals by outcome",
	},
	[]string{"signal", "outcome"}, // outcome: entered, rejected_breaker, rejected_risk, rejected_filter
)

// TrailingUpdatesTotal - перестановки стопа по индикатору
var TrailingUpdatesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "goldbridge",
		Subsystem: "trading",
		Name:      "trailing_updates_total",
		Help:      "Number of trailing stop modifications",
	},
)

// ============ Метрики риска ============

// BreakerPaused - активна ли пауза предохранителя
var BreakerPaused = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "risk",
		Name:      "breaker_paused",
		Help:      "Circuit breaker pause status (1=paused, 0=trading allowed)",
	},
)

// BreakerPausesTotal - срабатывания предохранителя
var BreakerPausesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "goldbridge",
		Subsystem: "risk",
		Name:      "breaker_pauses_total",
		Help:      "Number of circuit breaker activations",
	},
	[]string{"kind"}, // consecutive, severe, loss_rate, daily_loss
)

// ConsecutiveLosses - текущая серия убытков
var ConsecutiveLosses = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "risk",
		Name:      "consecutive_losses",
		Help:      "Current consecutive loss streak",
	},
)

// AccountBalance - баланс счёта из последнего тика
var AccountBalance = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "risk",
		Name:      "account_balance",
		Help:      "Account balance reported by the terminal",
	},
)

// AccountEquity - средства счёта из последнего тика
var AccountEquity = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "goldbridge",
		Subsystem: "risk",
		Name:      "account_equity",
		Help:      "Account equity reported by the terminal",
	},
)

// ============ Вспомогательные функции ============

// RecordTrade записывает закрытую сделку
func RecordTrade(side string, pnl float64) {
	result := "flat"
	if pnl > 0 {
		result = "win"
	} else if pnl < 0 {
		result = "loss"
	}
	TradesTotal.WithLabelValues(side, result).Inc()
	PnlTotal.Add(pnl)
}

// RecordFailedTrade записывает отклонённый ордер
func RecordFailedTrade(side string) {
	TradesTotal.WithLabelValues(side, "failed").Inc()
}

// UpdateBotState выставляет gauge активного состояния
func UpdateBotState(active string) {
	for _, s := range []string{
		models.StateWaitingForSignal,
		models.StateOpening,
		models.StateMonitoring,
		models.StateClosed,
		models.StatePaused,
		models.StateStopped,
	} {
		v := 0.0
		if s == active {
			v = 1.0
		}
		BotState.WithLabelValues(stateLabel(s)).Set(v)
	}
}

func stateLabel(s string) string {
	switch s {
	case models.StateWaitingForSignal:
		return "waiting_for_signal"
	case models.StateOpening:
		return "opening"
	case models.StateMonitoring:
		return "monitoring"
	case models.StateClosed:
		return "closed"
	case models.StatePaused:
		return "paused"
	case models.StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// UpdateBridgeStatus обновляет метрики подключения советника
func UpdateBridgeStatus(connected bool, dataAgeSeconds float64) {
	if connected {
		BridgeConnected.Set(1)
	} else {
		BridgeConnected.Set(0)
	}
	MarketDataAge.Set(dataAgeSeconds)
}

// UpdateAccount обновляет метрики счёта
func UpdateAccount(balance, equity float64) {
	AccountBalance.Set(balance)
	AccountEquity.Set(equity)
}
