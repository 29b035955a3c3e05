package types

type Side string

type Action string

type Severity string

type SessionStatus string

type RiskLevel string

type Metric string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"

	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"

	SessionCreated   SessionStatus = "CREATED"
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionFailed    SessionStatus = "FAILED"

	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"

	MetricDrawdown      Metric = "drawdown"
	MetricDailyLoss     Metric = "daily_loss"
	MetricVaR           Metric = "var"
	MetricConcentration Metric = "concentration"
)

// Rank orders severities so that a higher value is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	}
	return 0
}

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

var ConvertAction = map[string]Action{
	"buy":  ActionBuy,
	"BUY":  ActionBuy,
	"sell": ActionSell,
	"SELL": ActionSell,
	"hold": ActionHold,
	"HOLD": ActionHold,
}
