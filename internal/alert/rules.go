package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/newthinker/crossover/internal/backtest"
)

// exprPattern matches "metric op value", e.g. "max_drawdown > 0.2"
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule defines an alert rule over backtest statistics.
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

// Alert is a rule that fired for one result.
type Alert struct {
	Rule     string  `json:"rule"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

// Validate checks the expression parses and names a known metric.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule name is empty")
	}
	name, _, _, err := r.parse()
	if err != nil {
		return err
	}
	if _, ok := StatsMetrics(backtest.Stats{})[name]; !ok {
		return fmt.Errorf("alert rule %s: unknown metric %q", r.Name, name)
	}
	return nil
}

func (r *Rule) parse() (metric, op string, threshold float64, err error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return "", "", 0, fmt.Errorf("alert rule %s: cannot parse %q", r.Name, r.Expr)
	}
	threshold, err = strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("alert rule %s: %w", r.Name, err)
	}
	return matches[1], matches[2], threshold, nil
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	metricName, op, threshold, err := r.parse()
	if err != nil {
		return false
	}

	value, exists := metrics[metricName]
	if !exists {
		return false
	}

	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message.
func (r *Rule) FormatMessage() string {
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
}

// StatsMetrics exposes backtest statistics under the names rules refer to.
func StatsMetrics(s backtest.Stats) map[string]float64 {
	return map[string]float64{
		"enter_count":         float64(s.EnterCount),
		"exit_count":          float64(s.ExitCount),
		"cumulative_return":   s.CumulativeReturn,
		"buy_and_hold_return": s.BuyAndHoldReturn,
		"excess_return":       s.CumulativeReturn - s.BuyAndHoldReturn,
		"total_trades":        float64(s.TotalTrades),
		"win_rate":            s.WinRate,
		"max_drawdown":        s.MaxDrawdown,
		"sharpe_ratio":        s.SharpeRatio,
		"exposure_ratio":      s.ExposureRatio,
	}
}

// Check returns the rules that fire for a result, in rule order. Empty
// results never fire.
func Check(rules []Rule, result *backtest.Result) []Alert {
	if result == nil || result.Empty {
		return nil
	}

	metrics := StatsMetrics(result.Stats)
	var fired []Alert
	for _, rule := range rules {
		if !rule.Evaluate(metrics) {
			continue
		}
		metric, _, _, _ := rule.parse()
		fired = append(fired, Alert{
			Rule:     rule.Name,
			Severity: rule.Severity,
			Message:  rule.FormatMessage(),
			Value:    metrics[metric],
		})
	}
	return fired
}
